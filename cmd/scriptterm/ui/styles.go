// Package ui provides the visual styling for the scriptterm terminal.
// Light, dark and monochrome themes share one set of semantic line styles.
package ui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light Mode Colors
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#101F38")
	LightPrimary    = lipgloss.Color("#101F38")
	LightAccent     = lipgloss.Color("#5c8a22")
	LightMuted      = lipgloss.Color("#6b7685")
	LightBorder     = lipgloss.Color("#dce0e5")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#141d2b")
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#8BC34A")
	DarkAccent     = lipgloss.Color("#8BC34A")
	DarkMuted      = lipgloss.Color("#7d8ba1")
	DarkBorder     = lipgloss.Color("#2a3850")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
)

// Theme holds the current color scheme
type Theme struct {
	Name       string
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
	Mono       bool // no colors, emphasis only
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Name:       "light",
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Name:       "dark",
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// MonoTheme renders without colors.
func MonoTheme() Theme {
	return Theme{Name: "mono", Mono: true}
}

// DetectTheme picks dark or light from COLORFGBG, defaulting to dark.
func DetectTheme() Theme {
	// Format is usually "foreground;background"
	parts := strings.Split(os.Getenv("COLORFGBG"), ";")
	if len(parts) >= 2 {
		if bg, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			if (bg >= 0 && bg <= 6) || bg == 8 {
				return DarkTheme()
			}
			return LightTheme()
		}
	}
	return DarkTheme()
}

// ThemeByName resolves a configured theme name. "auto" detects.
func ThemeByName(name string) (Theme, error) {
	switch name {
	case "", "auto":
		return DetectTheme(), nil
	case "dark":
		return DarkTheme(), nil
	case "light":
		return LightTheme(), nil
	case "mono":
		return MonoTheme(), nil
	}
	return Theme{}, fmt.Errorf("unknown theme %q", name)
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	Divider   lipgloss.Style

	// Interactive
	Prompt    lipgloss.Style
	UserInput lipgloss.Style
	Spinner   lipgloss.Style

	// Output lines
	Plain   lipgloss.Style
	Info    lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Badge   lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	color := func(s lipgloss.Style, c lipgloss.Color) lipgloss.Style {
		if theme.Mono {
			return s
		}
		return s.Foreground(c)
	}

	header := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	badge := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	if !theme.Mono {
		header = header.Background(theme.Primary).Foreground(theme.Background)
		badge = badge.Background(theme.Accent).Foreground(theme.Background)
	} else {
		badge = badge.Reverse(true)
	}

	return Styles{
		Theme: theme,

		Header:    header,
		StatusBar: color(lipgloss.NewStyle().Padding(0, 1), theme.Muted),
		Divider:   color(lipgloss.NewStyle(), theme.Border),

		Prompt:    color(lipgloss.NewStyle().Bold(true), theme.Accent),
		UserInput: color(lipgloss.NewStyle(), theme.Foreground),
		Spinner:   color(lipgloss.NewStyle(), theme.Accent),

		Plain:   color(lipgloss.NewStyle(), theme.Foreground),
		Info:    color(lipgloss.NewStyle(), Info),
		Error:   color(lipgloss.NewStyle().Bold(true), Destructive),
		Warning: color(lipgloss.NewStyle(), Warning),
		Success: color(lipgloss.NewStyle().Bold(true), Success),
		Muted:   color(lipgloss.NewStyle().Italic(true), theme.Muted),
		Badge:   badge,
	}
}

// DefaultStyles returns styles with the detected theme. The console uses
// them when it is given no styles.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 0 {
		width = 0
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
