package ui

import (
	"context"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/storage"
	"github.com/tgienger/yuflow/internal/ui/styles"
	"github.com/tgienger/yuflow/internal/ui/views"
)

// LastCategorySetting remembers the task list that was open on exit.
// The value is a category id, "all", or empty for the category list.
const LastCategorySetting = "last_category_id"

const allCategories = "all"

// Currently active view
type View int

const (
	ViewLoading View = iota
	ViewCategories
	ViewTasks
)

// AdapterSource hands out the storage adapter, initializing it on first use
type AdapterSource interface {
	Adapter(ctx context.Context) (storage.Adapter, error)
}

type App struct {
	source       AdapterSource
	store        storage.Adapter
	opts         views.TaskListOptions
	currentView  View
	categoryList *views.CategoryListView
	taskList     *views.TaskListView
	err          error
	width        int
	height       int
}

// Creates a new application
func NewApp(source AdapterSource, opts views.TaskListOptions) *App {
	return &App{
		source:      source,
		opts:        opts,
		currentView: ViewLoading,
	}
}

type storeReadyMsg struct {
	store storage.Adapter
	open  string // last opened list, see LastCategorySetting
	last  *models.Category
}

type storeFailedMsg struct {
	err error
}

func (a *App) Init() tea.Cmd {
	source := a.source
	return func() tea.Msg {
		ctx := context.Background()
		store, err := source.Adapter(ctx)
		if err != nil {
			return storeFailedMsg{err: err}
		}

		// Check for last opened category
		msg := storeReadyMsg{store: store}
		last, err := store.GetSetting(ctx, LastCategorySetting)
		if err != nil || last == nil {
			return msg
		}
		if *last == allCategories {
			msg.open = allCategories
			return msg
		}
		id, err := strconv.ParseInt(*last, 10, 64)
		if err != nil {
			return msg
		}
		if category, err := store.GetCategory(ctx, id); err == nil && category != nil {
			msg.open = *last
			msg.last = category
		}
		return msg
	}
}

func (a *App) openCategory(category *models.Category) tea.Cmd {
	a.currentView = ViewTasks
	a.taskList = views.NewTaskListView(a.store, category, a.opts)

	// Save as last opened list
	value := allCategories
	if category != nil {
		value = strconv.FormatInt(category.ID, 10)
	}

	return tea.Batch(
		a.saveSetting(value),
		a.taskList.Init(),
		a.resize,
	)
}

func (a *App) saveSetting(value string) tea.Cmd {
	store := a.store
	return func() tea.Msg {
		if err := store.SetSetting(context.Background(), LastCategorySetting, value); err != nil {
			return views.ErrMsg{Op: "save setting", Err: err}
		}
		return nil
	}
}

func (a *App) resize() tea.Msg {
	return tea.WindowSizeMsg{Width: a.width, Height: a.height}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Always update category list size since it persists
		if a.categoryList != nil {
			a.categoryList.Update(msg)
		}

	case storeReadyMsg:
		a.store = msg.store
		a.categoryList = views.NewCategoryListView(a.store)
		a.currentView = ViewCategories
		cmds := []tea.Cmd{a.categoryList.Init(), a.resize}
		switch {
		case msg.open == allCategories:
			cmds = append(cmds, a.openCategory(nil))
		case msg.last != nil:
			cmds = append(cmds, a.openCategory(msg.last))
		}
		return a, tea.Batch(cmds...)

	case storeFailedMsg:
		a.err = msg.err
		return a, nil

	case views.SelectedCategory:
		return a, a.openCategory(msg.Category)

	case views.BackToCategories:
		a.currentView = ViewCategories
		return a, tea.Batch(
			a.saveSetting(""),
			a.categoryList.Init(),
			a.resize,
		)

	case tea.KeyMsg:
		if a.currentView == ViewLoading && (msg.String() == "q" || msg.String() == "ctrl+c") {
			return a, tea.Quit
		}
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewCategories:
		_, cmd = a.categoryList.Update(msg)
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewTasks:
		if a.taskList != nil {
			return a.taskList.View()
		}
	case ViewCategories:
		return a.categoryList.View()
	}
	return a.renderLoading()
}

func (a *App) renderLoading() string {
	s := styles.NewStyles()
	content := s.TitleMuted.Render("Opening storage...")
	if a.err != nil {
		content = lipgloss.JoinVertical(lipgloss.Center,
			s.Title.Foreground(styles.Current.Error).Render("Storage unavailable"),
			"",
			s.TitleMuted.Render(a.err.Error()),
			"",
			s.TitleMuted.Render("Press q to quit"),
		)
	}
	return lipgloss.Place(max(a.width, 1), max(a.height, 1), lipgloss.Center, lipgloss.Center, content)
}
