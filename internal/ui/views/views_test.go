package views

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/query"
	"github.com/tgienger/yuflow/internal/storage/storagetest"
	"github.com/tgienger/yuflow/internal/storage/web"
)

var epoch = time.Date(2026, 10, 21, 10, 30, 0, 0, time.UTC)

func newStore(t *testing.T) (*web.Adapter, *storagetest.Clock) {
	t.Helper()
	clock := storagetest.NewClock(epoch)
	store := web.New("", web.WithClock(clock.Now))
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { store.Close(context.Background()) })
	return store, clock
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func titles(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestNext_Wraps(t *testing.T) {
	assert.Equal(t, StatusActive, next(statusCycle, StatusAll))
	assert.Equal(t, StatusAll, next(statusCycle, StatusCompleted))
	assert.Equal(t, StatusAll, next(statusCycle, StatusFilter("bogus")))
	assert.Equal(t, models.PriorityHigh, next(priorityCycle, ""))
	assert.Equal(t, models.DateRangeAny, next(dateRangeCycle, models.DateRangeMonth))
}

func TestTaskListOptions_Normalized(t *testing.T) {
	o := TaskListOptions{Status: "bogus", Sort: "bogus"}.normalized()
	assert.Equal(t, StatusAll, o.Status)
	assert.Equal(t, query.SortCreated, o.Sort)

	o = TaskListOptions{Status: StatusCompleted, Sort: query.SortTitle}.normalized()
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, query.SortTitle, o.Sort)
}

func TestParseDue(t *testing.T) {
	due, err := parseDue(" 2026-10-23 ", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC), *due)
	assert.Equal(t, "2026-10-23", formatDue(due, time.UTC))

	due, err = parseDue("", time.UTC)
	assert.NoError(t, err)
	assert.Nil(t, due)
	assert.Equal(t, "", formatDue(nil, time.UTC))

	_, err = parseDue("23/10/2026", time.UTC)
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	for in, want := range map[string]models.Priority{
		"":       models.PriorityMedium,
		"h":      models.PriorityHigh,
		" HIGH ": models.PriorityHigh,
		"low":    models.PriorityLow,
		"m":      models.PriorityMedium,
	} {
		got, err := parsePriority(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parsePriority("urgent")
	assert.Error(t, err)
}

func TestOverdue(t *testing.T) {
	yesterday := epoch.AddDate(0, 0, -1)
	earlierToday := epoch.Add(-time.Hour)

	assert.True(t, overdue(models.Task{DueDate: &yesterday}, epoch))
	assert.False(t, overdue(models.Task{DueDate: &earlierToday}, epoch), "due today is not overdue")
	assert.False(t, overdue(models.Task{DueDate: &yesterday, Completed: true}, epoch))
	assert.False(t, overdue(models.Task{}, epoch))
}

func TestGroupLinksAndWithTag(t *testing.T) {
	tags := []models.Tag{{ID: 1, Name: "home"}, {ID: 2, Name: "work"}}
	links := []models.TaskTag{{TaskID: 10, TagID: 1}, {TaskID: 10, TagID: 2}, {TaskID: 11, TagID: 2}, {TaskID: 12, TagID: 9}}

	byTask := groupLinks(tags, links)
	assert.Len(t, byTask[10], 2)
	assert.Len(t, byTask[11], 1)
	assert.Empty(t, byTask[12], "links to unknown tags are dropped")

	tasks := []models.Task{{ID: 10}, {ID: 11}, {ID: 12}}
	got := withTag(tasks, byTask, 2)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].ID)
	assert.Equal(t, int64(11), got[1].ID)
}

func TestCurrentQuery(t *testing.T) {
	category := &models.Category{ID: 3, Name: "Work"}
	v := NewTaskListView(nil, category, TaskListOptions{Status: StatusActive, Sort: query.SortPriority})
	v.priority = models.PriorityHigh
	v.dateRange = models.DateRangeWeek
	v.searchInput.SetValue("  report ")
	tag := int64(7)
	v.selectedTag = &tag

	q := v.currentQuery()

	require.NotNil(t, q.filters.Completed)
	assert.False(t, *q.filters.Completed)
	assert.Equal(t, models.PriorityHigh, q.filters.Priority)
	assert.Equal(t, models.DateRangeWeek, q.filters.DateRange)
	assert.Equal(t, "report", q.filters.Search)
	require.NotNil(t, q.filters.CategoryID)
	assert.Equal(t, int64(3), *q.filters.CategoryID)
	assert.Equal(t, &tag, q.tagID)
	assert.Equal(t, query.SortPriority, q.sort)

	all := NewTaskListView(nil, nil, TaskListOptions{}).currentQuery()
	assert.Nil(t, all.filters.Completed)
	assert.Nil(t, all.filters.CategoryID)
}

func TestFetch_FiltersByTagAndSorts(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()

	var ids []int64
	for _, in := range []models.CreateTaskInput{
		{Title: "bravo", Priority: models.PriorityLow},
		{Title: "alpha", Priority: models.PriorityHigh},
		{Title: "charlie"},
	} {
		task, err := store.CreateTask(ctx, in)
		require.NoError(t, err)
		ids = append(ids, task.ID)
		clock.Advance(time.Minute)
	}
	tag, err := store.CreateTag(ctx, models.CreateTagInput{Name: "home"})
	require.NoError(t, err)
	require.NoError(t, store.AddTagToTask(ctx, ids[0], tag.ID))
	require.NoError(t, store.AddTagToTask(ctx, ids[1], tag.ID))

	msg, err := fetch(ctx, store, taskQuery{sort: query.SortCreated})
	require.NoError(t, err)
	assert.Equal(t, []string{"charlie", "alpha", "bravo"}, titles(msg.tasks))
	assert.Len(t, msg.tags, 1)
	assert.Len(t, msg.taskTags[ids[0]], 1)

	msg, err = fetch(ctx, store, taskQuery{tagID: &tag.ID, sort: query.SortTitle})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo"}, titles(msg.tasks))

	msg, err = fetch(ctx, store, taskQuery{sort: query.SortPriority})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "charlie", "bravo"}, titles(msg.tasks))
}

func TestSyncTags(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	task, err := store.CreateTask(ctx, models.CreateTaskInput{Title: "t"})
	require.NoError(t, err)
	var tagIDs []int64
	for _, name := range []string{"a", "b", "c"} {
		tag, err := store.CreateTag(ctx, models.CreateTagInput{Name: name})
		require.NoError(t, err)
		tagIDs = append(tagIDs, tag.ID)
	}
	require.NoError(t, store.AddTagToTask(ctx, task.ID, tagIDs[0]))
	require.NoError(t, store.AddTagToTask(ctx, task.ID, tagIDs[1]))

	require.NoError(t, syncTags(ctx, store, task.ID, []int64{tagIDs[1], tagIDs[2]}))

	got, err := store.GetTaskTags(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
}

func TestTaskListView_ToggleComplete(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	_, err := store.CreateTask(ctx, models.CreateTaskInput{Title: "write report"})
	require.NoError(t, err)

	v := NewTaskListView(store, nil, TaskListOptions{})
	v.Update(v.Init()())
	require.Len(t, v.tasks, 1)
	assert.False(t, v.tasks[0].Completed)

	_, cmd := v.Update(runes("x"))
	require.NotNil(t, cmd)
	v.Update(cmd())

	require.Len(t, v.tasks, 1)
	assert.True(t, v.tasks[0].Completed)
}

func TestTaskListView_StatusCycleReloads(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	done := true
	task, err := store.CreateTask(ctx, models.CreateTaskInput{Title: "done"})
	require.NoError(t, err)
	_, err = store.UpdateTask(ctx, models.UpdateTaskInput{ID: task.ID, Completed: &done})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, models.CreateTaskInput{Title: "open"})
	require.NoError(t, err)

	v := NewTaskListView(store, nil, TaskListOptions{})
	v.Update(v.Init()())
	assert.Len(t, v.tasks, 2)

	_, cmd := v.Update(runes("c"))
	v.Update(cmd())
	assert.Equal(t, StatusActive, v.status)
	assert.Equal(t, []string{"open"}, titles(v.tasks))

	_, cmd = v.Update(runes("c"))
	v.Update(cmd())
	assert.Equal(t, []string{"done"}, titles(v.tasks))
}

func TestTaskListView_SaveNewTaskInCategory(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	category, err := store.CreateCategory(ctx, models.CreateCategoryInput{Name: "Work"})
	require.NoError(t, err)

	v := NewTaskListView(store, category, TaskListOptions{})
	v.Update(v.Init()())

	v.Update(runes("n"))
	require.True(t, v.editing)
	v.editTitle.SetValue("plan sprint")
	v.editPriority.SetValue("h")
	v.editDue.SetValue("2026-10-23")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.False(t, v.editing)
	v.Update(cmd())

	require.Len(t, v.tasks, 1)
	got := v.tasks[0]
	assert.Equal(t, "plan sprint", got.Title)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, category.ID, *got.CategoryID)
	require.NotNil(t, got.DueDate)
}

func TestTaskListView_InvalidFormStaysOpen(t *testing.T) {
	store, _ := newStore(t)

	v := NewTaskListView(store, nil, TaskListOptions{})
	v.Update(runes("n"))
	v.editTitle.SetValue("t")
	v.editDue.SetValue("tomorrow")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Nil(t, cmd)
	assert.True(t, v.editing)
	assert.Contains(t, v.formErr, "YYYY-MM-DD")
}

func TestTaskListView_ErrorKeepsList(t *testing.T) {
	v := NewTaskListView(nil, nil, TaskListOptions{})
	v.Update(tasksLoadedMsg{tasks: []models.Task{{ID: 1, Title: "kept"}}})

	v.Update(ErrMsg{Op: "load tasks", Err: errors.New("disk full")})

	assert.Equal(t, []string{"kept"}, titles(v.tasks))
	assert.EqualError(t, v.err, "load tasks: disk full")
}

func TestTaskListView_DropsOutOfOrderResults(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()
	for _, title := range []string{"apple", "apricot", "banana"} {
		_, err := store.CreateTask(ctx, models.CreateTaskInput{Title: title})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	v := NewTaskListView(store, nil, TaskListOptions{})
	v.Update(v.Init()())
	require.Len(t, v.tasks, 3)

	v.Update(runes("/"))
	require.Equal(t, FocusSearchInput, v.focus)

	var loads []tea.Cmd
	for _, r := range []string{"a", "p", "r"} {
		v.searchInput.SetValue(v.searchInput.Value() + r)
		loads = append(loads, v.reload())
	}
	for i := len(loads) - 1; i >= 0; i-- {
		v.Update(loads[i]())
	}

	assert.Equal(t, "apr", v.searchInput.Value())
	assert.Equal(t, []string{"apricot"}, titles(v.tasks))
}

func TestTaskListView_TypingStartsNewGeneration(t *testing.T) {
	store, _ := newStore(t)

	v := NewTaskListView(store, nil, TaskListOptions{})
	v.Update(v.Init()())
	v.Update(runes("/"))
	before := v.gen

	v.Update(runes("q"))

	assert.Equal(t, "q", v.searchInput.Value())
	assert.Greater(t, v.gen, before)
	v.Update(tasksLoadedMsg{gen: before, tasks: []models.Task{{ID: 9, Title: "stale"}}})
	assert.Empty(t, v.tasks)
}

func TestCategoryListView_CountsOpenTasks(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	general := int64(1)
	done := true
	for _, title := range []string{"a", "b"} {
		_, err := store.CreateTask(ctx, models.CreateTaskInput{Title: title, CategoryID: &general})
		require.NoError(t, err)
	}
	closed, err := store.CreateTask(ctx, models.CreateTaskInput{Title: "c", CategoryID: &general})
	require.NoError(t, err)
	_, err = store.UpdateTask(ctx, models.UpdateTaskInput{ID: closed.ID, Completed: &done})
	require.NoError(t, err)

	v := NewCategoryListView(store)
	msg, ok := v.loadCategories().(categoriesLoadedMsg)
	require.True(t, ok)
	require.Len(t, msg.items, 1)
	assert.Equal(t, models.DefaultCategoryName, msg.items[0].category.Name)
	assert.Equal(t, 2, msg.items[0].count)
	assert.Equal(t, "2 open tasks", msg.items[0].Description())

	v.Update(msg)
	assert.Len(t, v.list.Items(), 1)
}
