package views

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/query"
	"github.com/tgienger/yuflow/internal/storage"
	"github.com/tgienger/yuflow/internal/ui/keys"
	"github.com/tgienger/yuflow/internal/ui/styles"
)

// FocusArea represents which part of the UI has focus
type FocusArea int

const (
	FocusBackButton FocusArea = iota
	FocusSearchInput
	FocusTagDropdown
	FocusTaskList
)

// Edit form fields, in tab order
const (
	editTitleField = iota
	editDescField
	editPriorityField
	editDueField
	editTagsField
	editSaveField
	editFieldCount
)

// TaskListView shows the tasks of one category, or of every category
type TaskListView struct {
	store    storage.Adapter
	category *models.Category // nil = all tasks
	tasks    []models.Task
	tags     []models.Tag
	taskTags map[int64][]models.Tag
	styles   *styles.Styles
	keys     keys.KeyMap
	now      func() time.Time

	width  int
	height int

	// Filter state
	status      StatusFilter
	priority    models.Priority
	dateRange   models.DateRange
	sortKey     query.SortKey
	selectedTag *int64 // nil = no filter

	// UI state
	focus       FocusArea
	cursor      int
	scrollY     int
	searchInput textinput.Model
	loaded      bool
	err         error
	gen         uint64 // bumped per reload; older results are dropped

	// Tag dropdown state
	tagDropdownOpen bool
	tagCursor       int

	// Task creation/editing
	editing       bool
	editingNew    bool
	editingID     int64
	editTitle     textinput.Model
	editDesc      textarea.Model
	editPriority  textinput.Model
	editDue       textinput.Model
	editFocusIdx  int
	editTags      []int64 // IDs of tags selected for this task
	editTagCursor int     // cursor position in tag list when focused
	formErr       string

	// Tag assignment mode
	assigningTags   bool
	assignTagCursor int
	assigningTaskID int64
	creatingTag     bool
	newTag          textinput.Model

	// Task view mode (read-only detail view)
	viewingTask bool

	// Delete confirmation
	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

// NewTaskListView creates a task list over store. A nil category lists every task.
func NewTaskListView(store storage.Adapter, category *models.Category, opts TaskListOptions) *TaskListView {
	s := styles.NewStyles()
	opts = opts.normalized()

	search := textinput.New()
	search.Placeholder = "Search..."
	search.CharLimit = 100

	editTitle := textinput.New()
	editTitle.Placeholder = "Task title"
	editTitle.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 1000
	editDesc.SetWidth(50)
	editDesc.SetHeight(3)
	editDesc.ShowLineNumbers = false

	editPriority := textinput.New()
	editPriority.Placeholder = "low / medium / high"
	editPriority.CharLimit = 6

	editDue := textinput.New()
	editDue.Placeholder = "YYYY-MM-DD"
	editDue.CharLimit = 10

	newTag := textinput.New()
	newTag.Placeholder = "Tag name"
	newTag.CharLimit = 50

	return &TaskListView{
		store:        store,
		category:     category,
		taskTags:     map[int64][]models.Tag{},
		styles:       s,
		keys:         keys.DefaultKeyMap(),
		now:          time.Now,
		status:       opts.Status,
		sortKey:      opts.Sort,
		focus:        FocusTaskList,
		searchInput:  search,
		editTitle:    editTitle,
		editDesc:     editDesc,
		editPriority: editPriority,
		editDue:      editDue,
		newTag:       newTag,
	}
}

// BackToCategories signals to go back to the category list
type BackToCategories struct{}

// Init initializes the view
func (v *TaskListView) Init() tea.Cmd {
	return v.reload()
}

type tasksLoadedMsg struct {
	gen      uint64
	tasks    []models.Task
	tags     []models.Tag
	taskTags map[int64][]models.Tag
}

// taskQuery is a snapshot of the filter state, safe to run off the UI goroutine
type taskQuery struct {
	gen     uint64
	filters models.TaskFilters
	tagID   *int64
	sort    query.SortKey
}

func (v *TaskListView) currentQuery() taskQuery {
	q := taskQuery{
		filters: models.TaskFilters{
			Completed: v.status.completed(),
			Priority:  v.priority,
			Search:    strings.TrimSpace(v.searchInput.Value()),
			DateRange: v.dateRange,
		},
		gen:   v.gen,
		tagID: v.selectedTag,
		sort:  v.sortKey,
	}
	if v.category != nil {
		id := v.category.ID
		q.filters.CategoryID = &id
	}
	return q
}

// fetch loads the tasks selected by q along with every tag and link
func fetch(ctx context.Context, store storage.Adapter, q taskQuery) (tasksLoadedMsg, error) {
	tasks, err := store.GetTasks(ctx, &q.filters)
	if err != nil {
		return tasksLoadedMsg{}, err
	}
	tags, err := store.GetTags(ctx)
	if err != nil {
		return tasksLoadedMsg{}, err
	}
	links, err := store.GetAllTaskTags(ctx)
	if err != nil {
		return tasksLoadedMsg{}, err
	}
	byTask := groupLinks(tags, links)
	if q.tagID != nil {
		tasks = withTag(tasks, byTask, *q.tagID)
	}
	return tasksLoadedMsg{
		gen:      q.gen,
		tasks:    query.Sort(tasks, q.sort),
		tags:     tags,
		taskTags: byTask,
	}, nil
}

func (v *TaskListView) reload() tea.Cmd {
	return v.mutate("load tasks", nil)
}

// mutate runs fn, when set, then reloads the list with the current filters.
// Results from earlier calls that arrive late are ignored.
func (v *TaskListView) mutate(op string, fn func(ctx context.Context) error) tea.Cmd {
	v.gen++
	store, q := v.store, v.currentQuery()
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		if fn != nil {
			if err := fn(ctx); err != nil {
				return failed(op, err)
			}
		}
		msg, err := fetch(ctx, store, q)
		if err != nil {
			return failed("load tasks", err)
		}
		return msg
	}
}

func (v *TaskListView) selected() (models.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.tasks) {
		return models.Task{}, false
	}
	return v.tasks[v.cursor], true
}

func (v *TaskListView) hasTag(taskID, tagID int64) bool {
	return slices.ContainsFunc(v.taskTags[taskID], func(t models.Tag) bool { return t.ID == tagID })
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		v.editDesc.SetWidth(clamp(contentWidth-10, 20, 50))
		return v, nil

	case tasksLoadedMsg:
		if msg.gen < v.gen {
			return v, nil
		}
		v.tasks = msg.tasks
		v.tags = msg.tags
		v.taskTags = msg.taskTags
		v.loaded = true
		v.err = nil
		if v.cursor >= len(v.tasks) {
			v.cursor = max(0, len(v.tasks)-1)
		}
		if v.tagCursor > len(v.tags) {
			v.tagCursor = len(v.tags)
		}
		if v.assignTagCursor >= len(v.tags) {
			v.assignTagCursor = max(0, len(v.tags)-1)
		}
		// The task being tagged may have been filtered out
		if v.assigningTags && !slices.ContainsFunc(v.tasks, func(t models.Task) bool { return t.ID == v.assigningTaskID }) {
			v.assigningTags = false
			v.assigningTaskID = 0
		}
		if v.viewingTask && len(v.tasks) == 0 {
			v.viewingTask = false
		}
		v.ensureVisible()
		return v, nil

	case ErrMsg:
		// Keep showing the last good list
		v.err = msg
		v.loaded = true
		return v, nil

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		if v.editing {
			return v.updateEditing(msg)
		}

		if v.assigningTags {
			return v.updateAssigningTags(msg)
		}

		if v.viewingTask {
			return v.updateViewingTask(msg)
		}

		if v.tagDropdownOpen {
			return v.updateTagDropdown(msg)
		}

		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle search input typing first - don't process hotkeys while typing
	if v.focus == FocusSearchInput {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.searchInput.Blur()
			v.focus = FocusTaskList
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			v.searchInput.Blur()
			v.focus = FocusTaskList
			return v, v.reload()
		default:
			var cmd tea.Cmd
			v.searchInput, cmd = v.searchInput.Update(msg)
			v.cursor, v.scrollY = 0, 0
			return v, tea.Batch(cmd, v.reload())
		}
	}

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return BackToCategories{} }

	case key.Matches(msg, v.keys.Tab):
		v.cycleFocus(1)
		return v, nil

	case msg.String() == "shift+tab":
		v.cycleFocus(-1)
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.focus == FocusTaskList && v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.focus == FocusTaskList && v.cursor < len(v.tasks)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.focus {
		case FocusBackButton:
			return v, func() tea.Msg { return BackToCategories{} }
		case FocusTagDropdown:
			v.tagDropdownOpen = true
			v.tagCursor = 0
			return v, nil
		case FocusTaskList:
			if len(v.tasks) > 0 {
				v.viewingTask = true
			}
		}
		return v, nil

	case key.Matches(msg, v.keys.Edit):
		if task, ok := v.selected(); ok && v.focus == FocusTaskList {
			v.startEditTask(task)
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.startNewTask()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Delete):
		if task, ok := v.selected(); ok && v.focus == FocusTaskList {
			v.confirmDelete(task)
		}
		return v, nil

	case key.Matches(msg, v.keys.Toggle):
		if task, ok := v.selected(); ok && v.focus == FocusTaskList {
			return v, v.toggleComplete(task)
		}
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.focus = FocusSearchInput
		v.searchInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Filter):
		v.focus = FocusTagDropdown
		v.tagDropdownOpen = true
		v.tagCursor = 0
		return v, nil

	case key.Matches(msg, v.keys.Tags):
		if task, ok := v.selected(); ok && v.focus == FocusTaskList {
			v.startAssigningTags(task)
		}
		return v, nil

	case key.Matches(msg, v.keys.ShowCompleted):
		v.status = next(statusCycle, v.status)
		return v, v.refilter()

	case key.Matches(msg, v.keys.Priority):
		v.priority = next(priorityCycle, v.priority)
		return v, v.refilter()

	case key.Matches(msg, v.keys.DateRange):
		v.dateRange = next(dateRangeCycle, v.dateRange)
		return v, v.refilter()

	case key.Matches(msg, v.keys.Sort):
		v.sortKey = next(query.SortKeys, v.sortKey)
		// Sorting is client-side, no reload needed
		v.tasks = query.Sort(v.tasks, v.sortKey)
		return v, nil

	case msg.String() == "?":
		v.showHelpPopup = true
		return v, nil
	}

	return v, nil
}

// refilter resets the cursor and reloads after a filter change
func (v *TaskListView) refilter() tea.Cmd {
	v.cursor = 0
	v.scrollY = 0
	return v.reload()
}

func (v *TaskListView) toggleComplete(task models.Task) tea.Cmd {
	done := !task.Completed
	return v.mutate("update task", func(ctx context.Context) error {
		_, err := v.store.UpdateTask(ctx, models.UpdateTaskInput{ID: task.ID, Completed: &done})
		return err
	})
}

func (v *TaskListView) confirmDelete(task models.Task) {
	v.confirmingDelete = true
	v.deleteTargetID = task.ID
	v.deleteTargetName = task.Title
}

func (v *TaskListView) updateTagDropdown(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.tagDropdownOpen = false
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.tagCursor > 0 {
			v.tagCursor--
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.tagCursor < len(v.tags) { // +1 for "None" option
			v.tagCursor++
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.tagCursor == 0 || v.tagCursor > len(v.tags) {
			v.selectedTag = nil
		} else {
			tagID := v.tags[v.tagCursor-1].ID
			v.selectedTag = &tagID
		}
		v.tagDropdownOpen = false
		return v, v.refilter()
	}

	return v, nil
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		v.viewingTask = false
		id := v.deleteTargetID
		return v, v.mutate("delete task", func(ctx context.Context) error {
			return v.store.DeleteTask(ctx, id)
		})
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *TaskListView) updateViewingTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	task, ok := v.selected()
	if !ok {
		v.viewingTask = false
		return v, nil
	}
	switch {
	case key.Matches(msg, v.keys.Back):
		v.viewingTask = false
	case key.Matches(msg, v.keys.Edit):
		v.viewingTask = false
		v.startEditTask(task)
		return v, textinput.Blink
	case key.Matches(msg, v.keys.Toggle):
		return v, v.toggleComplete(task)
	case key.Matches(msg, v.keys.Tags):
		v.startAssigningTags(task)
	case key.Matches(msg, v.keys.Delete):
		v.confirmDelete(task)
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	}
	return v, nil
}

func (v *TaskListView) startAssigningTags(task models.Task) {
	v.assigningTags = true
	v.assignTagCursor = 0
	v.assigningTaskID = task.ID
	v.creatingTag = false
}

func (v *TaskListView) updateAssigningTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if v.creatingTag {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.creatingTag = false
			v.newTag.Blur()
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			name := strings.TrimSpace(v.newTag.Value())
			v.creatingTag = false
			v.newTag.Blur()
			if name == "" {
				return v, nil
			}
			taskID := v.assigningTaskID
			return v, v.mutate("create tag", func(ctx context.Context) error {
				tag, err := v.store.CreateTag(ctx, models.CreateTagInput{Name: name})
				if err != nil {
					return err
				}
				return v.store.AddTagToTask(ctx, taskID, tag.ID)
			})
		}
		var cmd tea.Cmd
		v.newTag, cmd = v.newTag.Update(msg)
		return v, cmd
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		v.assigningTags = false
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.assignTagCursor > 0 {
			v.assignTagCursor--
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.assignTagCursor < len(v.tags)-1 {
			v.assignTagCursor++
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.creatingTag = true
		v.newTag.Reset()
		v.newTag.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Delete):
		if v.assignTagCursor < len(v.tags) {
			tagID := v.tags[v.assignTagCursor].ID
			if v.selectedTag != nil && *v.selectedTag == tagID {
				v.selectedTag = nil
			}
			return v, v.mutate("delete tag", func(ctx context.Context) error {
				return v.store.DeleteTag(ctx, tagID)
			})
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Toggle):
		if v.assignTagCursor < len(v.tags) {
			taskID := v.assigningTaskID
			tagID := v.tags[v.assignTagCursor].ID
			if v.hasTag(taskID, tagID) {
				return v, v.mutate("remove tag", func(ctx context.Context) error {
					return v.store.RemoveTagFromTask(ctx, taskID, tagID)
				})
			}
			return v, v.mutate("add tag", func(ctx context.Context) error {
				return v.store.AddTagToTask(ctx, taskID, tagID)
			})
		}
	}

	return v, nil
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		v.editFocusIdx = (v.editFocusIdx + 1) % editFieldCount
		v.updateEditFocus()
		return v, nil

	case msg.String() == "shift+tab":
		v.editFocusIdx = (v.editFocusIdx + editFieldCount - 1) % editFieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.editFocusIdx {
		case editTitleField, editPriorityField, editDueField:
			v.editFocusIdx++
			v.updateEditFocus()
			return v, nil
		case editTagsField:
			v.toggleEditTag()
			return v, nil
		case editSaveField:
			return v, v.saveTask()
		}
		// Enter in the description adds a newline

	case msg.String() == " ":
		if v.editFocusIdx == editTagsField {
			v.toggleEditTag()
			return v, nil
		}

	case key.Matches(msg, v.keys.Up):
		if v.editFocusIdx == editTagsField && v.editTagCursor > 0 {
			v.editTagCursor--
			return v, nil
		}

	case key.Matches(msg, v.keys.Down):
		if v.editFocusIdx == editTagsField && v.editTagCursor < len(v.tags)-1 {
			v.editTagCursor++
			return v, nil
		}
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case editTitleField:
		v.editTitle, cmd = v.editTitle.Update(msg)
	case editDescField:
		v.editDesc, cmd = v.editDesc.Update(msg)
	case editPriorityField:
		v.editPriority, cmd = v.editPriority.Update(msg)
	case editDueField:
		v.editDue, cmd = v.editDue.Update(msg)
	}
	return v, cmd
}

// toggleEditTag toggles the currently selected tag in the edit form
func (v *TaskListView) toggleEditTag() {
	if v.editTagCursor >= len(v.tags) {
		return
	}
	tagID := v.tags[v.editTagCursor].ID
	if i := slices.Index(v.editTags, tagID); i >= 0 {
		v.editTags = slices.Delete(v.editTags, i, i+1)
		return
	}
	v.editTags = append(v.editTags, tagID)
}

func (v *TaskListView) cycleFocus(dir int) {
	v.searchInput.Blur()
	v.focus = FocusArea((int(v.focus) + dir + 4) % 4)
	if v.focus == FocusSearchInput {
		v.searchInput.Focus()
	}
}

func (v *TaskListView) visibleItems() int {
	// Each task item is 2 lines + 1 margin
	availableHeight := max(v.height-14, 3)
	return max(availableHeight/3, 1)
}

func (v *TaskListView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

func (v *TaskListView) startNewTask() {
	v.editing = true
	v.editingNew = true
	v.editingID = 0
	v.editFocusIdx = editTitleField
	v.editTagCursor = 0
	v.editTags = []int64{}
	v.formErr = ""
	v.editTitle.Reset()
	v.editDesc.Reset()
	v.editPriority.SetValue(string(models.PriorityMedium))
	v.editDue.Reset()
	v.updateEditFocus()
}

func (v *TaskListView) startEditTask(task models.Task) {
	v.editing = true
	v.editingNew = false
	v.editingID = task.ID
	v.editFocusIdx = editTitleField
	v.editTagCursor = 0
	v.formErr = ""
	v.editTags = v.editTags[:0]
	for _, t := range v.taskTags[task.ID] {
		v.editTags = append(v.editTags, t.ID)
	}
	v.editTitle.SetValue(task.Title)
	v.editDesc.SetValue(task.Description)
	v.editPriority.SetValue(string(task.Priority))
	v.editDue.SetValue(formatDue(task.DueDate, v.now().Location()))
	v.updateEditFocus()
}

func (v *TaskListView) updateEditFocus() {
	v.editTitle.Blur()
	v.editDesc.Blur()
	v.editPriority.Blur()
	v.editDue.Blur()

	switch v.editFocusIdx {
	case editTitleField:
		v.editTitle.Focus()
	case editDescField:
		v.editDesc.Focus()
	case editPriorityField:
		v.editPriority.Focus()
	case editDueField:
		v.editDue.Focus()
	}
}

// saveTask validates the form and stores the task and its tag set
func (v *TaskListView) saveTask() tea.Cmd {
	title := strings.TrimSpace(v.editTitle.Value())
	if title == "" {
		v.formErr = "Title is required"
		return nil
	}
	priority, err := parsePriority(v.editPriority.Value())
	if err != nil {
		v.formErr = err.Error()
		return nil
	}
	due, err := parseDue(v.editDue.Value(), v.now().Location())
	if err != nil {
		v.formErr = err.Error()
		return nil
	}
	desc := strings.TrimSpace(v.editDesc.Value())
	wanted := slices.Clone(v.editTags)
	isNew, id := v.editingNew, v.editingID
	var categoryID *int64
	if v.category != nil {
		cid := v.category.ID
		categoryID = &cid
	}
	v.editing = false

	return v.mutate("save task", func(ctx context.Context) error {
		if isNew {
			task, err := v.store.CreateTask(ctx, models.CreateTaskInput{
				Title:       title,
				Description: desc,
				Priority:    priority,
				CategoryID:  categoryID,
				DueDate:     due,
			})
			if err != nil {
				return err
			}
			id = task.ID
		} else {
			_, err := v.store.UpdateTask(ctx, models.UpdateTaskInput{
				ID:          id,
				Title:       &title,
				Description: &desc,
				Priority:    &priority,
				DueDate:     due,
			})
			if err != nil {
				return err
			}
		}
		return syncTags(ctx, v.store, id, wanted)
	})
}

// syncTags makes the tags of taskID equal to wanted
func syncTags(ctx context.Context, store storage.Adapter, taskID int64, wanted []int64) error {
	current, err := store.GetTaskTags(ctx, taskID)
	if err != nil {
		return err
	}
	have := make([]int64, len(current))
	for i, t := range current {
		have[i] = t.ID
		if !slices.Contains(wanted, t.ID) {
			if err := store.RemoveTagFromTask(ctx, taskID, t.ID); err != nil {
				return err
			}
		}
	}
	for _, id := range wanted {
		if !slices.Contains(have, id) {
			if err := store.AddTagToTask(ctx, taskID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// View renders the view
func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.editing {
		return v.renderEditForm()
	}

	if v.assigningTags {
		return v.renderTagAssignment()
	}

	if v.viewingTask {
		return v.renderTaskView()
	}

	var b strings.Builder

	// Header with back button, search, and tag filter
	b.WriteString(v.renderHeader())
	b.WriteString("\n")
	b.WriteString(v.renderFilterBar())
	b.WriteString("\n\n")

	b.WriteString(v.renderTaskList())

	b.WriteString("\n")
	if v.err != nil {
		b.WriteString(v.styles.StatusError.Render(v.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) title() string {
	if v.category == nil {
		return "All Tasks"
	}
	return styles.Swatch(v.category.Color) + " " + v.category.Name
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	isNarrow := contentWidth < 60

	searchStyle := s.Input
	if v.focus == FocusSearchInput {
		searchStyle = s.InputFocused
	}
	searchWidth := clamp(contentWidth-8, 10, 30)
	searchBox := searchStyle.Width(searchWidth).Render(v.searchInput.View())

	tagStyle := s.Button
	if v.focus == FocusTagDropdown {
		tagStyle = s.ButtonFocused
	}
	tagLabel := "All"
	if v.selectedTag != nil {
		for _, t := range v.tags {
			if t.ID == *v.selectedTag {
				tagLabel = t.Name
				break
			}
		}
	}
	if !isNarrow {
		tagLabel = "Tags: " + tagLabel
	}
	tagBtn := tagStyle.Render(tagLabel + " ▼")

	title := s.Title.Render(v.title())

	var header string
	if isNarrow {
		// Narrow: stack vertically, no back button (esc still works)
		header = lipgloss.JoinVertical(lipgloss.Left,
			searchBox,
			tagBtn,
		)
	} else {
		backStyle := s.Button
		if v.focus == FocusBackButton {
			backStyle = s.ButtonFocused
		}
		backBtn := backStyle.Render("← Categories")

		header = lipgloss.JoinHorizontal(lipgloss.Center,
			backBtn, "  ", searchBox, "  ", tagBtn,
		)
	}

	dropdown := ""
	if v.tagDropdownOpen {
		dropdown = "\n" + v.renderTagDropdown()
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, header+dropdown)
}

func (v *TaskListView) renderFilterBar() string {
	s := v.styles
	parts := []string{
		s.HelpKey.Render("c") + " " + string(v.status),
		s.HelpKey.Render("p") + " " + priorityLabel(v.priority),
		s.HelpKey.Render("D") + " " + dateRangeLabel(v.dateRange),
		s.HelpKey.Render("s") + " sort: " + string(v.sortKey),
	}
	return s.StatusBar.Render(strings.Join(parts, "  "))
}

func (v *TaskListView) renderTagDropdown() string {
	s := v.styles
	var items []string

	noneStyle := s.ListItem
	if v.tagCursor == 0 {
		noneStyle = s.ListSelected
	}
	items = append(items, noneStyle.Render("None"))

	for i, tag := range v.tags {
		itemStyle := s.ListItem
		if v.tagCursor == i+1 {
			itemStyle = s.ListSelected
		}
		items = append(items, itemStyle.Render("# "+tag.Name))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, items...)
	return s.FilterBar.Render(content)
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles

	if !v.loaded {
		return s.TitleMuted.Render("Loading...")
	}
	if len(v.tasks) == 0 {
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	var items []string
	endIdx := min(v.scrollY+v.visibleItems(), len(v.tasks))
	now := v.now()

	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(v.tasks[i], i == v.cursor && v.focus == FocusTaskList, now))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool, now time.Time) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	width := max(contentWidth-4, 20)

	check := "[ ]"
	if task.Completed {
		check = "[x]"
	}
	badge := lipgloss.NewStyle().Foreground(styles.PriorityColor(task.Priority)).Render("●")
	name := task.Title
	if task.Completed {
		name = s.Done.Render(name)
	}
	titleLine := check + " " + badge + " " + name

	var meta []string
	if task.DueDate != nil {
		due := "due " + formatDue(task.DueDate, now.Location())
		if overdue(task, now) {
			due = s.Overdue.Render(due)
		}
		meta = append(meta, due)
	}
	for _, tag := range v.taskTags[task.ID] {
		meta = append(meta, "#"+tag.Name)
	}
	metaLine := s.TitleMuted.Render("no tags")
	if len(meta) > 0 {
		metaLine = strings.Join(meta, " ")
	}

	lineStyle := s.ListItem.Width(width)
	if selected {
		lineStyle = s.ListSelected.Width(width)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lineStyle.Render(titleLine), lineStyle.Render(metaLine)) + "\n"
}

func (v *TaskListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	if !v.editingNew {
		formTitle = "Edit Task"
	}

	fieldStyle := func(idx int) lipgloss.Style {
		if v.editFocusIdx == idx {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if v.editFocusIdx == editSaveField {
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	dueHint := "Due date (YYYY-MM-DD, optional):"
	if !v.editingNew {
		dueHint = "Due date (YYYY-MM-DD, blank keeps current):"
	}

	rows := []string{
		s.Title.Render(formTitle),
		"",
		"Title:",
		fieldStyle(editTitleField).Width(inputWidth).Render(v.editTitle.View()),
		"",
		"Description:",
		fieldStyle(editDescField).Render(v.editDesc.View()),
		"",
		"Priority:",
		fieldStyle(editPriorityField).Width(24).Render(v.editPriority.View()),
		"",
		dueHint,
		fieldStyle(editDueField).Width(16).Render(v.editDue.View()),
		"",
		"Tags:",
		v.renderEditTagSelector(fieldStyle(editTagsField), inputWidth),
		"",
		btnStyle.Render(" Save "),
		"",
	}
	if v.formErr != "" {
		rows = append(rows, s.StatusError.Render(v.formErr), "")
	}
	rows = append(rows, s.TitleMuted.Render("Tab: next • ↑↓: select tag • Space/↵: toggle • Ctrl+S: save • Esc: cancel"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

// renderEditTagSelector renders the inline tag selector for the edit form
func (v *TaskListView) renderEditTagSelector(containerStyle lipgloss.Style, width int) string {
	s := v.styles

	if len(v.tags) == 0 {
		return containerStyle.Width(width).Render(s.TitleMuted.Render("No tags yet. Press 't' on a task to create one."))
	}

	var items []string
	for i, tag := range v.tags {
		checkbox := "[ ]"
		if slices.Contains(v.editTags, tag.ID) {
			checkbox = "[x]"
		}
		itemText := checkbox + " #" + tag.Name

		if v.editFocusIdx == editTagsField && i == v.editTagCursor {
			items = append(items, s.ListSelected.Render(itemText))
		} else {
			items = append(items, s.ListItem.Render(itemText))
		}
	}

	return containerStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (v *TaskListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	return v.styles.Help.Render(
		fmt.Sprintf("%s view • %s done • %s edit • %s new • %s del • %s search • %s filter • %s tags • %s back • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("space"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("f"),
			v.styles.HelpKey.Render("t"),
			v.styles.HelpKey.Render("esc"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      view task",
		s.HelpKey.Render("space") + "  toggle done",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("/") + "      search",
		s.HelpKey.Render("f") + "      filter by tag",
		s.HelpKey.Render("t") + "      assign tags",
		s.HelpKey.Render("c") + "      cycle status",
		s.HelpKey.Render("p") + "      cycle priority",
		s.HelpKey.Render("D") + "      cycle due window",
		s.HelpKey.Render("s") + "      cycle sort",
		s.HelpKey.Render("esc") + "    back",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderTagAssignment() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	idx := slices.IndexFunc(v.tasks, func(t models.Task) bool { return t.ID == v.assigningTaskID })
	if idx < 0 {
		return ""
	}
	task := v.tasks[idx]

	var items []string
	for i, tag := range v.tags {
		itemStyle := s.ListItem
		if i == v.assignTagCursor && !v.creatingTag {
			itemStyle = s.ListSelected
		}
		checkbox := "[ ]"
		if v.hasTag(task.ID, tag.ID) {
			checkbox = "[x]"
		}
		items = append(items, itemStyle.Render(checkbox+" #"+tag.Name))
	}
	if len(items) == 0 {
		items = append(items, s.TitleMuted.Render("No tags yet"))
	}

	rows := []string{
		s.Title.Render("Assign Tags to: " + task.Title),
		"",
		lipgloss.JoinVertical(lipgloss.Left, items...),
		"",
	}
	if v.creatingTag {
		rows = append(rows, s.InputFocused.Width(clamp(contentWidth-10, 20, 40)).Render(v.newTag.View()), "")
		rows = append(rows, s.TitleMuted.Render("Enter: create and assign • Esc: cancel"))
	} else {
		rows = append(rows, s.TitleMuted.Render("Enter/Space: toggle • n: new tag • d: delete tag • Esc: done"))
	}

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("\"%s\" will be removed.", v.deleteTargetName)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderTaskView() string {
	task, ok := v.selected()
	if !ok {
		return ""
	}

	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	width := clamp(contentWidth-6, 20, 70)
	now := v.now()
	label := s.HelpKey

	status := "Open"
	if task.Completed {
		status = "Done"
	}
	due := "None"
	if task.DueDate != nil {
		due = formatDue(task.DueDate, now.Location())
		if overdue(task, now) {
			due = s.Overdue.Render(due + " (overdue)")
		}
	}
	var tagNames []string
	for _, t := range v.taskTags[task.ID] {
		tagNames = append(tagNames, "#"+t.Name)
	}
	tagsText := "None"
	if len(tagNames) > 0 {
		tagsText = strings.Join(tagNames, " ")
	}
	desc := task.Description
	if desc == "" {
		desc = s.TitleMuted.Render("No description")
	}
	stamp := func(t time.Time) string { return t.In(now.Location()).Format("2006-01-02 15:04") }

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Width(width).Render(task.Title),
		"",
		label.Render("Status:   ")+status,
		label.Render("Priority: ")+lipgloss.NewStyle().Foreground(styles.PriorityColor(task.Priority)).Render(priorityLabel(task.Priority)),
		label.Render("Due:      ")+due,
		label.Render("Tags:     ")+tagsText,
		"",
		lipgloss.NewStyle().Width(width).Render(desc),
		"",
		s.TitleMuted.Render("Created "+stamp(task.CreatedAt)+" • Updated "+stamp(task.UpdatedAt)),
		"",
		s.TitleMuted.Render("space: toggle • e: edit • t: tags • d: delete • esc: back"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}
