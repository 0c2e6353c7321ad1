package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/storage"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), DriverPure, filepath.Join(t.TempDir(), "yuflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_SeedsGeneralOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "yuflow.db")

	db, err := Open(ctx, DriverPure, path)
	require.NoError(t, err)
	_, err = db.CreateCategory(ctx, models.CreateCategoryInput{Name: "Work"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, DriverPure, path)
	require.NoError(t, err)
	defer db.Close()

	cats, err := db.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, int64(1), cats[0].ID)
	assert.Equal(t, "General", cats[0].Name)
	assert.Equal(t, models.DefaultCategoryColor, cats[0].Color)
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	assert.Contains(t, dsn(DriverCGO, "/tmp/a.db"), "_foreign_keys=on")
	assert.Contains(t, dsn(DriverPure, "/tmp/a.db"), "_pragma=foreign_keys%281%29")
	assert.Equal(t, "file:memdb?mode=memory", dsn(DriverPure, "file:memdb?mode=memory"))
}

func TestTimestampsSortLexically(t *testing.T) {
	early := formatTime(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	late := formatTime(time.Date(2026, 1, 2, 3, 4, 5, 100, time.UTC))
	assert.Len(t, late, len(early))
	assert.Less(t, early, late)

	parsed, err := parseTime(late)
	require.NoError(t, err)
	assert.Equal(t, 100, parsed.Nanosecond())
}

func TestTasks_FiltersInSQL(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	now := time.Date(2026, 10, 21, 10, 30, 0, 0, time.UTC)
	db.Clock = func() time.Time { return now }

	due := time.Date(2026, 10, 21, 18, 0, 0, 0, time.UTC)
	nextMonth := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	general := int64(1)

	a, err := db.CreateTask(ctx, models.CreateTaskInput{Title: "Buy 100% juice", Priority: models.PriorityHigh, DueDate: &due, CategoryID: &general})
	require.NoError(t, err)
	b, err := db.CreateTask(ctx, models.CreateTaskInput{Title: "Read", Description: "a JUICY novel", DueDate: &nextMonth})
	require.NoError(t, err)
	_, err = db.CreateTask(ctx, models.CreateTaskInput{Title: "Nap_time"})
	require.NoError(t, err)

	titles := func(f *models.TaskFilters) []string {
		tasks, err := db.ListTasks(ctx, f)
		require.NoError(t, err)
		out := []string{}
		for _, task := range tasks {
			out = append(out, task.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Nap_time", "Read", "Buy 100% juice"}, titles(nil))
	assert.Equal(t, []string{"Read", "Buy 100% juice"}, titles(&models.TaskFilters{Search: " juic "}))
	assert.Equal(t, []string{"Buy 100% juice"}, titles(&models.TaskFilters{Search: "100%"}))
	assert.Equal(t, []string{"Nap_time"}, titles(&models.TaskFilters{Search: "p_t"}))
	assert.Empty(t, titles(&models.TaskFilters{Search: "0_"}))
	assert.Equal(t, []string{"Buy 100% juice"}, titles(&models.TaskFilters{DateRange: models.DateRangeToday}))
	assert.Equal(t, []string{"Buy 100% juice"}, titles(&models.TaskFilters{DateRange: models.DateRangeMonth}))
	assert.Len(t, titles(&models.TaskFilters{DateRange: models.DateRangeAll}), 3)
	assert.Equal(t, []string{"Buy 100% juice"}, titles(&models.TaskFilters{Priority: models.PriorityHigh, CategoryID: &general}))

	done := true
	_, err = db.UpdateTask(ctx, models.UpdateTaskInput{ID: b.ID, Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, []string{"Read"}, titles(&models.TaskFilters{Completed: &done}))

	got, err := db.GetTask(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, now, got.CreatedAt)
}

func TestTasks_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	db.Clock = func() time.Time { return created }

	task, err := db.CreateTask(ctx, models.CreateTaskInput{Title: "Draft"})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.False(t, task.Completed)

	db.Clock = func() time.Time { return created.Add(time.Hour) }
	title := "Final"
	updated, err := db.UpdateTask(ctx, models.UpdateTaskInput{ID: task.ID, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, created.Add(time.Hour), updated.UpdatedAt)

	_, err = db.UpdateTask(ctx, models.UpdateTaskInput{ID: 999, Title: &title})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	missing := int64(42)
	_, err = db.UpdateTask(ctx, models.UpdateTaskInput{ID: task.ID, CategoryID: &missing})
	assert.ErrorIs(t, err, storage.ErrValidation)

	tag, err := db.CreateTag(ctx, models.CreateTagInput{Name: "home"})
	require.NoError(t, err)
	require.NoError(t, db.AddTagToTask(ctx, task.ID, tag.ID))
	require.NoError(t, db.DeleteTask(ctx, task.ID))
	require.NoError(t, db.DeleteTask(ctx, task.ID))

	links, err := db.ListTaskTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestTags_AddToTaskChecksBothSides(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	task, err := db.CreateTask(ctx, models.CreateTaskInput{Title: "Walk"})
	require.NoError(t, err)
	tag, err := db.CreateTag(ctx, models.CreateTagInput{Name: "outside"})
	require.NoError(t, err)

	assert.ErrorIs(t, db.AddTagToTask(ctx, task.ID, 99), storage.ErrNotFound)
	assert.ErrorIs(t, db.AddTagToTask(ctx, 99, tag.ID), storage.ErrNotFound)

	require.NoError(t, db.AddTagToTask(ctx, task.ID, tag.ID))
	require.NoError(t, db.AddTagToTask(ctx, task.ID, tag.ID))
	tags, err := db.GetTaskTags(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	require.NoError(t, db.DeleteTag(ctx, tag.ID))
	tags, err = db.GetTaskTags(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestSettingsAndClearAll(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	v, err := db.GetSetting(ctx, "theme")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, db.SetSetting(ctx, "theme", "dark"))
	require.NoError(t, db.SetSetting(ctx, "theme", "light"))
	require.NoError(t, db.SetSetting(ctx, "density", "compact"))

	v, err = db.GetSetting(ctx, "theme")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "light", *v)

	settings, err := db.ListSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 2)
	assert.Equal(t, "density", settings[0].Key)

	_, err = db.CreateTask(ctx, models.CreateTaskInput{Title: "x"})
	require.NoError(t, err)
	require.NoError(t, db.ClearAll(ctx))

	tasks, err := db.ListTasks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	cats, err := db.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
	settings, err = db.ListSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings)
}
