package ui

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Name      string
	Accent    lipgloss.Style
	Dim       lipgloss.Style
	Text      lipgloss.Style
	Title     lipgloss.Style
	Error     lipgloss.Style
	Border    lipgloss.Style
	Highlight lipgloss.Style
}

// themeRegistry maps theme names to constructors.
var themeRegistry = map[string]func(bool) Theme{
	"classic": Classic,
	"night":   Night,
	"mono":    Monochrome,
	"nocolor": NoColor,
}

// ThemeNames returns the list of available theme names.
func ThemeNames() []string {
	return []string{"classic", "night", "mono", "nocolor"}
}

// GetTheme returns a theme by name. Returns Classic if name not found.
func GetTheme(name string, noColor bool) Theme {
	// NO_COLOR environment variable overrides theme selection
	if noColor {
		return NoColor(noColor)
	}
	if fn, ok := themeRegistry[name]; ok {
		return fn(noColor)
	}
	return Classic(noColor)
}

// ValidTheme returns true if the theme name is valid.
func ValidTheme(name string) bool {
	_, ok := themeRegistry[name]
	return ok
}

// Classic is the default theme: pale chrome with a blue highlight bar.
func Classic(noColor bool) Theme {
	if noColor {
		return NoColor(noColor)
	}
	return Theme{
		Name:      "classic",
		Accent:    lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8F98")),
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color("#E8EAED")),
		Title:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F5F6F7")).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F56")).Bold(true),
		Border:    lipgloss.NewStyle().Foreground(lipgloss.Color("#5B6470")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#2563EB")).Bold(true),
	}
}

// Night is a dark theme with muted blues.
func Night(noColor bool) Theme {
	if noColor {
		return NoColor(noColor)
	}
	return Theme{
		Name:      "night",
		Accent:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2F7")).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#565F89")),
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color("#C0CAF5")),
		Title:     lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2F7")).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F7768E")).Bold(true),
		Border:    lipgloss.NewStyle().Foreground(lipgloss.Color("#3B4261")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#1A1B26")).Background(lipgloss.Color("#7AA2F7")).Bold(true),
	}
}

// Monochrome is a grayscale theme.
func Monochrome(noColor bool) Theme {
	if noColor {
		return NoColor(noColor)
	}
	return Theme{
		Name:      "mono",
		Accent:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")),
		Title:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Underline(true),
		Border:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#FFFFFF")).Bold(true),
	}
}

// NoColor is a high-contrast theme for NO_COLOR environments.
// Uses only bold, underline, and reverse instead of colors.
func NoColor(_ bool) Theme {
	reset := lipgloss.NewStyle()
	return Theme{
		Name:      "nocolor",
		Accent:    reset.Bold(true),
		Dim:       reset,
		Text:      reset,
		Title:     reset.Bold(true),
		Error:     reset.Bold(true),
		Border:    reset,
		Highlight: reset.Reverse(true),
	}
}
