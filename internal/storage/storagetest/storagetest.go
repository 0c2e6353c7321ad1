// Package storagetest is a behavioural test suite every storage.Adapter must pass.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/storage"
)

// Factory returns a fresh, uninitialized adapter that reads time from clock
type Factory func(t *testing.T, clock func() time.Time) storage.Adapter

// Clock is a manually advanced time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at now
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Wednesday 21 October 2026, 10:30 UTC
var epoch = time.Date(2026, 10, 21, 10, 30, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	clock   *Clock
	adapter storage.Adapter
}

func setup(t *testing.T, factory Factory) fixture {
	t.Helper()
	clock := NewClock(epoch)
	a := factory(t, clock.Now)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))
	t.Cleanup(func() { a.Close(ctx) })
	return fixture{ctx: ctx, clock: clock, adapter: a}
}

func ptr[T any](v T) *T { return &v }

// Run runs the suite against adapters built by factory
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, f fixture)
	}{
		{"SeedsGeneralOnce", testSeedsGeneralOnce},
		{"TaskRoundTrip", testTaskRoundTrip},
		{"CreateTaskValidation", testCreateTaskValidation},
		{"UpdateTaskMerge", testUpdateTaskMerge},
		{"UpdateTaskErrors", testUpdateTaskErrors},
		{"DeleteTaskIdempotent", testDeleteTaskIdempotent},
		{"GetTasksNewestFirst", testGetTasksNewestFirst},
		{"FilterConjunction", testFilterConjunction},
		{"FilterSearch", testFilterSearch},
		{"FilterDateRange", testFilterDateRange},
		{"Categories", testCategories},
		{"CategoryCascade", testCategoryCascade},
		{"TagLinks", testTagLinks},
		{"DeleteTag", testDeleteTag},
		{"Settings", testSettings},
		{"ClearAll", testClearAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, setup(t, factory))
		})
	}
}

func testSeedsGeneralOnce(t *testing.T, f fixture) {
	require.NoError(t, f.adapter.Initialize(f.ctx))

	cats, err := f.adapter.GetCategories(f.ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, int64(1), cats[0].ID)
	assert.Equal(t, models.DefaultCategoryName, cats[0].Name)
	assert.Equal(t, models.DefaultCategoryColor, cats[0].Color)
}

func testTaskRoundTrip(t *testing.T, f fixture) {
	due := time.Date(2026, 10, 30, 17, 0, 0, 0, time.UTC)
	in := models.CreateTaskInput{
		Title:       "Write report",
		Description: "quarterly numbers",
		Priority:    models.PriorityHigh,
		CategoryID:  ptr(int64(1)),
		DueDate:     &due,
	}

	created, err := f.adapter.CreateTask(f.ctx, in)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, in.Title, created.Title)
	assert.Equal(t, in.Description, created.Description)
	assert.Equal(t, in.Priority, created.Priority)
	assert.Equal(t, in.CategoryID, created.CategoryID)
	require.NotNil(t, created.DueDate)
	assert.True(t, due.Equal(*created.DueDate))
	assert.False(t, created.Completed)
	assert.Equal(t, epoch, created.CreatedAt)
	assert.Equal(t, epoch, created.UpdatedAt)

	got, err := f.adapter.GetTask(f.ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *created, *got)

	bare, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "Bare"})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, bare.Priority)
	assert.Nil(t, bare.CategoryID)
	assert.Nil(t, bare.DueDate)
	assert.Empty(t, bare.Description)

	missing, err := f.adapter.GetTask(f.ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testCreateTaskValidation(t *testing.T, f fixture) {
	_, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "   "})
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "x", CategoryID: ptr(int64(77))})
	assert.ErrorIs(t, err, storage.ErrValidation)

	tasks, err := f.adapter.GetTasks(f.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func testUpdateTaskMerge(t *testing.T, f fixture) {
	due := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	created, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{
		Title:       "Plan trip",
		Description: "book hotel",
		CategoryID:  ptr(int64(1)),
		DueDate:     &due,
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	updated, err := f.adapter.UpdateTask(f.ctx, models.UpdateTaskInput{ID: created.ID, Priority: ptr(models.PriorityHigh)})
	require.NoError(t, err)

	want := *created
	want.Priority = models.PriorityHigh
	want.UpdatedAt = epoch.Add(time.Minute)
	assert.Equal(t, want, *updated)

	got, err := f.adapter.GetTask(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	f.clock.Advance(time.Minute)
	done, err := f.adapter.UpdateTask(f.ctx, models.UpdateTaskInput{ID: created.ID, Completed: ptr(true), Title: ptr("Plan the trip")})
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, "Plan the trip", done.Title)
	assert.Equal(t, models.PriorityHigh, done.Priority)
	assert.Equal(t, epoch, done.CreatedAt)
}

func testUpdateTaskErrors(t *testing.T, f fixture) {
	_, err := f.adapter.UpdateTask(f.ctx, models.UpdateTaskInput{ID: 404, Title: ptr("x")})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	created, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "Keep"})
	require.NoError(t, err)

	_, err = f.adapter.UpdateTask(f.ctx, models.UpdateTaskInput{ID: created.ID, Title: ptr("")})
	assert.ErrorIs(t, err, storage.ErrValidation)
	_, err = f.adapter.UpdateTask(f.ctx, models.UpdateTaskInput{ID: created.ID, Priority: ptr(models.Priority("someday"))})
	assert.ErrorIs(t, err, storage.ErrValidation)

	got, err := f.adapter.GetTask(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)
}

func testDeleteTaskIdempotent(t *testing.T, f fixture) {
	task, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "Gone soon"})
	require.NoError(t, err)
	tag, err := f.adapter.CreateTag(f.ctx, models.CreateTagInput{Name: "temp"})
	require.NoError(t, err)
	require.NoError(t, f.adapter.AddTagToTask(f.ctx, task.ID, tag.ID))

	require.NoError(t, f.adapter.DeleteTask(f.ctx, task.ID))
	got, err := f.adapter.GetTask(f.ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, f.adapter.DeleteTask(f.ctx, task.ID))

	links, err := f.adapter.GetAllTaskTags(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
	tags, err := f.adapter.GetTags(f.ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1, "deleting a task keeps its tags")
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func testGetTasksNewestFirst(t *testing.T, f fixture) {
	for _, title := range []string{"first", "second"} {
		_, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: title})
		require.NoError(t, err)
	}
	f.clock.Advance(time.Second)
	_, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "third"})
	require.NoError(t, err)

	tasks, err := f.adapter.GetTasks(f.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, titles(tasks))

	tasks, err = f.adapter.GetTasks(f.ctx, &models.TaskFilters{})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	none, err := f.adapter.GetTasks(f.ctx, &models.TaskFilters{Search: "nothing like this"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testFilterConjunction(t *testing.T, f fixture) {
	a, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "A", Priority: models.PriorityHigh})
	require.NoError(t, err)
	b, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "B", Priority: models.PriorityHigh})
	require.NoError(t, err)
	_, err = f.adapter.UpdateTask(f.ctx, models.UpdateTaskInput{ID: b.ID, Completed: ptr(true)})
	require.NoError(t, err)
	_, err = f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "C", Priority: models.PriorityLow, CategoryID: ptr(int64(1))})
	require.NoError(t, err)

	tasks, err := f.adapter.GetTasks(f.ctx, &models.TaskFilters{Priority: models.PriorityHigh, Completed: ptr(false)})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, a.ID, tasks[0].ID)

	tasks, err = f.adapter.GetTasks(f.ctx, &models.TaskFilters{CategoryID: ptr(int64(1))})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, titles(tasks))

	tasks, err = f.adapter.GetTasks(f.ctx, &models.TaskFilters{CategoryID: ptr(int64(1)), Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func testFilterSearch(t *testing.T, f fixture) {
	for _, in := range []models.CreateTaskInput{
		{Title: "Call Mom"},
		{Title: "Groceries", Description: "milk, eggs, MOMO dumplings"},
		{Title: "Taxes"},
		{Title: "ÄPFEL kaufen"},
		{Title: "Bäckerei", Description: "Brötchen für SONNTAG"},
	} {
		_, err := f.adapter.CreateTask(f.ctx, in)
		require.NoError(t, err)
	}

	tasks, err := f.adapter.GetTasks(f.ctx, &models.TaskFilters{Search: "mom"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Call Mom", "Groceries"}, titles(tasks))

	tasks, err = f.adapter.GetTasks(f.ctx, &models.TaskFilters{Search: "äpfel"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ÄPFEL kaufen"}, titles(tasks))

	tasks, err = f.adapter.GetTasks(f.ctx, &models.TaskFilters{Search: "BRÖTCHEN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bäckerei"}, titles(tasks))

	tasks, err = f.adapter.GetTasks(f.ctx, &models.TaskFilters{Search: "50%_off"})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	tasks, err = f.adapter.GetTasks(f.ctx, &models.TaskFilters{Search: "   "})
	require.NoError(t, err)
	assert.Len(t, tasks, 5)
}

func testFilterDateRange(t *testing.T, f fixture) {
	dated := map[string]time.Time{
		"tonight":       time.Date(2026, 10, 21, 23, 59, 59, 0, time.UTC),
		"tomorrow":      time.Date(2026, 10, 22, 0, 0, 1, 0, time.UTC),
		"last sunday":   time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		"next sunday":   time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC),
		"month start":   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		"next month":    time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		"last saturday": time.Date(2026, 10, 17, 23, 59, 59, 0, time.UTC),
	}
	for title, due := range dated {
		_, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: title, DueDate: &due})
		require.NoError(t, err)
	}
	_, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "undated"})
	require.NoError(t, err)

	tests := []struct {
		r    models.DateRange
		want []string
	}{
		{models.DateRangeToday, []string{"tonight"}},
		{models.DateRangeWeek, []string{"tonight", "tomorrow", "last sunday"}},
		{models.DateRangeMonth, []string{"tonight", "tomorrow", "last sunday", "next sunday", "month start", "last saturday"}},
		{models.DateRangeAll, []string{"tonight", "tomorrow", "last sunday", "next sunday", "month start", "next month", "last saturday", "undated"}},
	}
	for _, tt := range tests {
		tasks, err := f.adapter.GetTasks(f.ctx, &models.TaskFilters{DateRange: tt.r})
		require.NoError(t, err)
		assert.ElementsMatch(t, tt.want, titles(tasks), "range %q", tt.r)
	}

	_, err = f.adapter.GetTasks(f.ctx, &models.TaskFilters{DateRange: "yesterday"})
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = f.adapter.GetTasks(f.ctx, &models.TaskFilters{Priority: "urgent"})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func testCategories(t *testing.T, f fixture) {
	work, err := f.adapter.CreateCategory(f.ctx, models.CreateCategoryInput{Name: "Work", Color: "#3B82F6"})
	require.NoError(t, err)
	home, err := f.adapter.CreateCategory(f.ctx, models.CreateCategoryInput{Name: "Home"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategoryColor, home.Color)
	assert.Equal(t, epoch, home.CreatedAt)

	_, err = f.adapter.CreateCategory(f.ctx, models.CreateCategoryInput{Name: " "})
	assert.ErrorIs(t, err, storage.ErrValidation)

	cats, err := f.adapter.GetCategories(f.ctx)
	require.NoError(t, err)
	names := []string{}
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"General", "Home", "Work"}, names)

	updated, err := f.adapter.UpdateCategory(f.ctx, work.ID, models.UpdateCategoryInput{Name: ptr("Office")})
	require.NoError(t, err)
	assert.Equal(t, "Office", updated.Name)
	assert.Equal(t, "#3B82F6", updated.Color)

	got, err := f.adapter.GetCategory(f.ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, *updated, *got)

	_, err = f.adapter.UpdateCategory(f.ctx, 404, models.UpdateCategoryInput{Name: ptr("x")})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.adapter.UpdateCategory(f.ctx, work.ID, models.UpdateCategoryInput{Name: ptr("")})
	assert.ErrorIs(t, err, storage.ErrValidation)

	missing, err := f.adapter.GetCategory(f.ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testCategoryCascade(t *testing.T, f fixture) {
	errands, err := f.adapter.CreateCategory(f.ctx, models.CreateCategoryInput{Name: "Errands"})
	require.NoError(t, err)
	task, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "Post office", CategoryID: &errands.ID})
	require.NoError(t, err)
	other, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "Stay", CategoryID: ptr(int64(1))})
	require.NoError(t, err)

	require.NoError(t, f.adapter.DeleteCategory(f.ctx, errands.ID))
	require.NoError(t, f.adapter.DeleteCategory(f.ctx, errands.ID))

	got, err := f.adapter.GetTask(f.ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.CategoryID)

	cat, err := f.adapter.GetCategory(f.ctx, errands.ID)
	require.NoError(t, err)
	assert.Nil(t, cat)

	kept, err := f.adapter.GetTask(f.ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, ptr(int64(1)), kept.CategoryID)

	require.NoError(t, f.adapter.DeleteCategory(f.ctx, 1), "the default category can be deleted")
	kept, err = f.adapter.GetTask(f.ctx, other.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.CategoryID)
}

func testTagLinks(t *testing.T, f fixture) {
	task, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "Tagged"})
	require.NoError(t, err)
	zeta, err := f.adapter.CreateTag(f.ctx, models.CreateTagInput{Name: "zeta"})
	require.NoError(t, err)
	alpha, err := f.adapter.CreateTag(f.ctx, models.CreateTagInput{Name: "alpha"})
	require.NoError(t, err)

	_, err = f.adapter.CreateTag(f.ctx, models.CreateTagInput{Name: ""})
	assert.ErrorIs(t, err, storage.ErrValidation)

	require.NoError(t, f.adapter.AddTagToTask(f.ctx, task.ID, zeta.ID))
	require.NoError(t, f.adapter.AddTagToTask(f.ctx, task.ID, zeta.ID))
	require.NoError(t, f.adapter.AddTagToTask(f.ctx, task.ID, alpha.ID))

	tags, err := f.adapter.GetTaskTags(f.ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "alpha", tags[0].Name)
	assert.Equal(t, "zeta", tags[1].Name)

	links, err := f.adapter.GetAllTaskTags(f.ctx)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	assert.ErrorIs(t, f.adapter.AddTagToTask(f.ctx, 404, alpha.ID), storage.ErrNotFound)
	assert.ErrorIs(t, f.adapter.AddTagToTask(f.ctx, task.ID, 404), storage.ErrNotFound)

	require.NoError(t, f.adapter.RemoveTagFromTask(f.ctx, task.ID, zeta.ID))
	require.NoError(t, f.adapter.RemoveTagFromTask(f.ctx, task.ID, zeta.ID))
	tags, err = f.adapter.GetTaskTags(f.ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, alpha.ID, tags[0].ID)

	all, err := f.adapter.GetTags(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	empty, err := f.adapter.GetTaskTags(f.ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testDeleteTag(t *testing.T, f fixture) {
	task, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "Tagged"})
	require.NoError(t, err)
	tag, err := f.adapter.CreateTag(f.ctx, models.CreateTagInput{Name: "old"})
	require.NoError(t, err)
	require.NoError(t, f.adapter.AddTagToTask(f.ctx, task.ID, tag.ID))

	require.NoError(t, f.adapter.DeleteTag(f.ctx, tag.ID))
	require.NoError(t, f.adapter.DeleteTag(f.ctx, tag.ID))

	tags, err := f.adapter.GetTaskTags(f.ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
	links, err := f.adapter.GetAllTaskTags(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func testSettings(t *testing.T, f fixture) {
	v, err := f.adapter.GetSetting(f.ctx, "theme")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, f.adapter.SetSetting(f.ctx, "theme", "dark"))
	require.NoError(t, f.adapter.SetSetting(f.ctx, "theme", "light"))
	require.NoError(t, f.adapter.SetSetting(f.ctx, "accent", `{"hue":210}`))

	v, err = f.adapter.GetSetting(f.ctx, "theme")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "light", *v)

	settings, err := f.adapter.GetSettings(f.ctx)
	require.NoError(t, err)
	require.Len(t, settings, 2)
	assert.Equal(t, "accent", settings[0].Key)
	assert.Equal(t, `{"hue":210}`, settings[0].Value)
	assert.Equal(t, "theme", settings[1].Key)
}

func testClearAll(t *testing.T, f fixture) {
	task, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "x", CategoryID: ptr(int64(1))})
	require.NoError(t, err)
	tag, err := f.adapter.CreateTag(f.ctx, models.CreateTagInput{Name: "y"})
	require.NoError(t, err)
	require.NoError(t, f.adapter.AddTagToTask(f.ctx, task.ID, tag.ID))
	require.NoError(t, f.adapter.SetSetting(f.ctx, "k", "v"))

	require.NoError(t, f.adapter.ClearAll(f.ctx))

	tasks, err := f.adapter.GetTasks(f.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	cats, err := f.adapter.GetCategories(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
	tags, err := f.adapter.GetTags(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
	links, err := f.adapter.GetAllTaskTags(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
	settings, err := f.adapter.GetSettings(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, settings)

	fresh, err := f.adapter.CreateTask(f.ctx, models.CreateTaskInput{Title: "after"})
	require.NoError(t, err)
	assert.Greater(t, fresh.ID, task.ID)
}
