package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/storage"
	"github.com/tgienger/yuflow/internal/ui/keys"
	"github.com/tgienger/yuflow/internal/ui/styles"
)

type categoryItem struct {
	category models.Category
	count    int
}

func (i categoryItem) Title() string { return i.category.Name }
func (i categoryItem) Description() string {
	if i.count == 1 {
		return "1 open task"
	}
	return fmt.Sprintf("%d open tasks", i.count)
}
func (i categoryItem) FilterValue() string { return i.category.Name }

type categoryDelegate struct {
	styles *styles.Styles
	width  int
}

func (d categoryDelegate) Height() int                               { return 2 }
func (d categoryDelegate) Spacing() int                              { return 1 }
func (d categoryDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d categoryDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(categoryItem)
	if !ok {
		return
	}

	selected := index == m.Index()
	width := max(d.width-4, 20)

	var titleStyle, descStyle lipgloss.Style
	if selected {
		titleStyle = d.styles.ListSelected.Width(width)
		descStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = d.styles.ListItem.Width(width)
		descStyle = d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	swatch := styles.Swatch(c.category.Color)
	title := titleStyle.Render(swatch + " " + c.Title())
	desc := descStyle.Render(c.Description())

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

// CategoryListView lists categories and opens the task list for one of them
type CategoryListView struct {
	store            storage.Adapter
	list             list.Model
	delegate         *categoryDelegate
	styles           *styles.Styles
	keys             keys.KeyMap
	width            int
	height           int
	creating         bool
	loaded           bool
	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string
	newName          textinput.Model
	newColor         textinput.Model
	focusIdx         int // 0=name, 1=color, 2=confirm
	err              error

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

// NewCategoryListView creates the category list over store
func NewCategoryListView(store storage.Adapter) *CategoryListView {
	s := styles.NewStyles()

	newName := textinput.New()
	newName.Placeholder = "Category name"
	newName.CharLimit = 100

	newColor := textinput.New()
	newColor.Placeholder = models.DefaultCategoryColor
	newColor.CharLimit = 7

	delegate := &categoryDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Categories"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &CategoryListView{
		store:    store,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		newName:  newName,
		newColor: newColor,
	}
}

func (v *CategoryListView) Init() tea.Cmd {
	return v.loadCategories
}

type categoriesLoadedMsg struct {
	items []categoryItem
}

func (v *CategoryListView) loadCategories() tea.Msg {
	ctx, cancel := opContext()
	defer cancel()

	categories, err := v.store.GetCategories(ctx)
	if err != nil {
		return failed("load categories", err)
	}
	open := false
	tasks, err := v.store.GetTasks(ctx, &models.TaskFilters{Completed: &open})
	if err != nil {
		return failed("load categories", err)
	}
	counts := make(map[int64]int)
	for _, t := range tasks {
		if t.CategoryID != nil {
			counts[*t.CategoryID]++
		}
	}

	items := make([]categoryItem, len(categories))
	for i, c := range categories {
		items[i] = categoryItem{category: c, count: counts[c.ID]}
	}
	return categoriesLoadedMsg{items: items}
}

// SelectedCategory opens the task list. A nil Category means every task.
type SelectedCategory struct {
	Category *models.Category
}

func (v *CategoryListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		// Use content width (capped at MaxWidth) for internal layout
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-7)
		return v, nil

	case categoriesLoadedMsg:
		items := make([]list.Item, len(msg.items))
		for i, c := range msg.items {
			items[i] = c
		}
		v.list.SetItems(items)
		v.loaded = true
		v.err = nil
		return v, nil

	case ErrMsg:
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

		if v.creating {
			return v.updateCreating(msg)
		}

		// Let the list own keys while its filter is being typed
		if v.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			return v, nil
		case key.Matches(msg, v.keys.New):
			v.creating = true
			v.focusIdx = 0
			v.newName.Reset()
			v.newColor.Reset()
			v.newName.Focus()
			v.newColor.Blur()
			return v, textinput.Blink
		case msg.String() == "?":
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.AllTasks):
			return v, func() tea.Msg { return SelectedCategory{} }
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(categoryItem); ok {
				c := item.category
				return v, func() tea.Msg {
					return SelectedCategory{Category: &c}
				}
			}
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(categoryItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.category.ID
				v.deleteTargetName = item.category.Name
				return v, nil
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *CategoryListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		id := v.deleteTargetID
		return v, func() tea.Msg {
			ctx, cancel := opContext()
			defer cancel()
			if err := v.store.DeleteCategory(ctx, id); err != nil {
				return failed("delete category", err)
			}
			return v.loadCategories()
		}
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *CategoryListView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.create()

	case msg.String() == "shift+tab":
		v.focusIdx = (v.focusIdx + 2) % 3
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % 3
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx < 2 {
			v.focusIdx++
			v.updateFocus()
			return v, nil
		}
		return v, v.create()
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.newName, cmd = v.newName.Update(msg)
	case 1:
		v.newColor, cmd = v.newColor.Update(msg)
	}
	return v, cmd
}

// create saves the form and opens the new category
func (v *CategoryListView) create() tea.Cmd {
	in := models.CreateCategoryInput{
		Name:  strings.TrimSpace(v.newName.Value()),
		Color: strings.TrimSpace(v.newColor.Value()),
	}
	if in.Name == "" {
		return nil
	}
	if in.Color != "" && !styles.ValidColor(in.Color) {
		v.err = fmt.Errorf("color %q is not a #RRGGBB value", in.Color)
		return nil
	}
	v.creating = false
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		c, err := v.store.CreateCategory(ctx, in)
		if err != nil {
			return failed("create category", err)
		}
		return SelectedCategory{Category: c}
	}
}

func (v *CategoryListView) updateFocus() {
	v.newName.Blur()
	v.newColor.Blur()
	switch v.focusIdx {
	case 0:
		v.newName.Focus()
	case 1:
		v.newColor.Focus()
	}
}

// View renders the view
func (v *CategoryListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.creating {
		return v.renderCreateForm()
	}

	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}

	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}

	content := v.list.View() + "\n" + v.renderStatus() + v.renderHelp()
	return styles.CenterView(content, v.width, v.height)
}

func (v *CategoryListView) renderStatus() string {
	if v.err == nil {
		return ""
	}
	return v.styles.StatusError.Render(v.err.Error()) + "\n"
}

func (v *CategoryListView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("No Categories"),
		"",
		s.TitleMuted.Render("Press 'n' to create a category or 'a' to see every task"),
		"",
		s.ButtonPrimary.Render(" New Category "),
		"",
		v.renderStatus(),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *CategoryListView) renderCreateForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	nameStyle := s.Input
	colorStyle := s.Input
	btnStyle := s.Button

	switch v.focusIdx {
	case 0:
		nameStyle = s.InputFocused
	case 1:
		colorStyle = s.InputFocused
	case 2:
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	color := strings.TrimSpace(v.newColor.Value())
	if color == "" {
		color = models.DefaultCategoryColor
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("New Category"),
		"",
		"Name:",
		nameStyle.Width(inputWidth).Render(v.newName.View()),
		"",
		"Color: "+styles.Swatch(color),
		colorStyle.Width(inputWidth).Render(v.newColor.View()),
		"",
		btnStyle.Render(" Create "),
		"",
		v.renderStatus(),
		s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *CategoryListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return v.styles.Help.Render(
		fmt.Sprintf("%s open • %s all • %s new • %s del • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("a"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *CategoryListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      open category",
		s.HelpKey.Render("a") + "      all tasks",
		s.HelpKey.Render("n") + "      new category",
		s.HelpKey.Render("d") + "      delete category",
		s.HelpKey.Render("/") + "      filter list",
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

func (v *CategoryListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Category?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("\"%s\" will be removed.", v.deleteTargetName)),
		s.TitleMuted.Render("Its tasks are kept without a category."),
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
