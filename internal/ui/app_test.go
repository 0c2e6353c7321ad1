package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/yuflow/internal/storage"
	"github.com/tgienger/yuflow/internal/storage/web"
	"github.com/tgienger/yuflow/internal/ui/views"
)

type sourceFunc func(ctx context.Context) (storage.Adapter, error)

func (f sourceFunc) Adapter(ctx context.Context) (storage.Adapter, error) { return f(ctx) }

func newStore(t *testing.T) *web.Adapter {
	t.Helper()
	store := web.New("")
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

func staticSource(store storage.Adapter) AdapterSource {
	return sourceFunc(func(context.Context) (storage.Adapter, error) { return store, nil })
}

func TestApp_StartsOnCategories(t *testing.T) {
	app := NewApp(staticSource(newStore(t)), views.TaskListOptions{})

	msg := app.Init()()
	ready, ok := msg.(storeReadyMsg)
	require.True(t, ok)
	assert.Empty(t, ready.open)

	app.Update(msg)
	assert.Equal(t, ViewCategories, app.currentView)
	assert.Nil(t, app.taskList)
}

func TestApp_ReopensLastCategory(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetSetting(context.Background(), LastCategorySetting, "1"))
	app := NewApp(staticSource(store), views.TaskListOptions{})

	msg := app.Init()().(storeReadyMsg)
	require.NotNil(t, msg.last)
	assert.Equal(t, int64(1), msg.last.ID)

	app.Update(msg)
	assert.Equal(t, ViewTasks, app.currentView)
	assert.NotNil(t, app.taskList)
}

func TestApp_ReopensAllTasks(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetSetting(context.Background(), LastCategorySetting, "all"))
	app := NewApp(staticSource(store), views.TaskListOptions{})

	app.Update(app.Init()())

	assert.Equal(t, ViewTasks, app.currentView)
}

func TestApp_IgnoresStaleCategory(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetSetting(context.Background(), LastCategorySetting, "42"))
	app := NewApp(staticSource(store), views.TaskListOptions{})

	app.Update(app.Init()())

	assert.Equal(t, ViewCategories, app.currentView)
}

func TestApp_BackToCategoriesClearsSetting(t *testing.T) {
	store := newStore(t)
	app := NewApp(staticSource(store), views.TaskListOptions{})
	app.Update(app.Init()())

	_, cmd := app.Update(views.SelectedCategory{})
	require.NotNil(t, cmd)
	assert.Nil(t, app.saveSetting("all")())
	assert.Equal(t, ViewTasks, app.currentView)

	app.Update(views.BackToCategories{})
	assert.Equal(t, ViewCategories, app.currentView)
	assert.Nil(t, app.saveSetting("")())

	got, err := store.GetSetting(context.Background(), LastCategorySetting)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "", *got)
}

func TestApp_StorageFailure(t *testing.T) {
	boom := errors.New("locked")
	app := NewApp(sourceFunc(func(context.Context) (storage.Adapter, error) { return nil, boom }), views.TaskListOptions{})

	app.Update(app.Init()())

	assert.Equal(t, ViewLoading, app.currentView)
	assert.ErrorIs(t, app.err, boom)
	assert.Contains(t, app.View(), "locked")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
