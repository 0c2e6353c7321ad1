package styles

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/yuflow/internal/models"
)

// Theme represents a color scheme for the application
type Theme struct {
	Name string

	// Base colors
	Background    lipgloss.Color
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	// Accent colors
	Primary lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// UI element colors
	Border      lipgloss.Color
	BorderFocus lipgloss.Color
	Selection   lipgloss.Color
}

// TokyoNight is the default color theme
var TokyoNight = Theme{
	Name: "tokyo-night",

	Background:    lipgloss.Color("#1a1b26"),
	Foreground:    lipgloss.Color("#c0caf5"),
	ForegroundDim: lipgloss.Color("#565f89"),

	Primary: lipgloss.Color("#7aa2f7"),

	Success: lipgloss.Color("#9ece6a"),
	Warning: lipgloss.Color("#e0af68"),
	Error:   lipgloss.Color("#f7768e"),
	Info:    lipgloss.Color("#7dcfff"),

	Border:      lipgloss.Color("#3b4261"),
	BorderFocus: lipgloss.Color("#7aa2f7"),
	Selection:   lipgloss.Color("#33467c"),
}

// TokyoNightDay is the light variant
var TokyoNightDay = Theme{
	Name: "tokyo-night-day",

	Background:    lipgloss.Color("#e1e2e7"),
	Foreground:    lipgloss.Color("#3760bf"),
	ForegroundDim: lipgloss.Color("#848cb5"),

	Primary: lipgloss.Color("#2e7de9"),

	Success: lipgloss.Color("#587539"),
	Warning: lipgloss.Color("#8c6c3e"),
	Error:   lipgloss.Color("#f52a65"),
	Info:    lipgloss.Color("#007197"),

	Border:      lipgloss.Color("#a8aecb"),
	BorderFocus: lipgloss.Color("#2e7de9"),
	Selection:   lipgloss.Color("#b7c1e3"),
}

var themes = map[string]Theme{
	TokyoNight.Name:    TokyoNight,
	TokyoNightDay.Name: TokyoNightDay,
}

// Current holds the active theme
var Current = TokyoNight

// Use makes the named theme current. An empty name keeps the default.
func Use(name string) error {
	if name == "" {
		return nil
	}
	t, ok := themes[name]
	if !ok {
		return fmt.Errorf("unknown theme %q (have %v)", name, ThemeNames())
	}
	Current = t
	return nil
}

// ThemeNames lists the registered themes
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaxWidth is the maximum content width for the app (classic terminal width)
const MaxWidth = 80

// ContentWidth returns the actual content width to use (min of terminal width and MaxWidth)
func ContentWidth(terminalWidth int) int {
	if terminalWidth > MaxWidth {
		return MaxWidth
	}
	return terminalWidth
}

// CenterView wraps content and centers it horizontally if terminal is wider than MaxWidth
func CenterView(content string, terminalWidth, terminalHeight int) string {
	if terminalWidth <= MaxWidth {
		return content
	}
	return lipgloss.Place(terminalWidth, terminalHeight,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidColor reports whether s is a #RRGGBB color
func ValidColor(s string) bool {
	return hexColor.MatchString(s)
}

// Swatch renders a dot in a category color. Invalid colors fall back to the dim foreground.
func Swatch(color string) string {
	c := Current.ForegroundDim
	if ValidColor(color) {
		c = lipgloss.Color(color)
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

// PriorityColor returns the badge color of a priority
func PriorityColor(p models.Priority) lipgloss.Color {
	switch p {
	case models.PriorityHigh:
		return Current.Error
	case models.PriorityMedium:
		return Current.Warning
	case models.PriorityLow:
		return Current.Success
	}
	return Current.ForegroundDim
}

// Styles holds all the pre-computed styles for the UI
type Styles struct {
	Title      lipgloss.Style
	TitleMuted lipgloss.Style

	// Lists
	ListItem     lipgloss.Style
	ListSelected lipgloss.Style

	// Popups and dropdowns
	FilterBar lipgloss.Style

	// Buttons
	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	ButtonPrimary lipgloss.Style

	// Input fields
	Input        lipgloss.Style
	InputFocused lipgloss.Style

	// Help text
	Help    lipgloss.Style
	HelpKey lipgloss.Style

	// Status bar
	StatusBar   lipgloss.Style
	StatusError lipgloss.Style

	// Task state
	Done    lipgloss.Style
	Overdue lipgloss.Style
}

// NewStyles creates styles based on the current theme
func NewStyles() *Styles {
	t := Current

	return &Styles{
		Title: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		TitleMuted: lipgloss.NewStyle().
			Foreground(t.ForegroundDim),

		ListItem: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Padding(0, 2),

		ListSelected: lipgloss.NewStyle().
			Foreground(t.Primary).
			Background(t.Selection).
			Padding(0, 2).
			Bold(true),

		FilterBar: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border),

		Button: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 2),

		ButtonFocused: lipgloss.NewStyle().
			Foreground(t.Primary).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus).
			Padding(0, 2).
			Bold(true),

		ButtonPrimary: lipgloss.NewStyle().
			Foreground(t.Background).
			Background(t.Primary).
			Padding(0, 2).
			Bold(true),

		Input: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),

		InputFocused: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(1, 2),

		HelpKey: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		StatusBar: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(0, 1),

		StatusError: lipgloss.NewStyle().
			Foreground(t.Error).
			Padding(0, 2),

		Done: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Strikethrough(true),

		Overdue: lipgloss.NewStyle().
			Foreground(t.Error).
			Bold(true),
	}
}
