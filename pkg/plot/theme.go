package plot

import (
	"errors"
	"fmt"
)

// ErrUnknownTheme is returned for theme names other than light and dark.
var ErrUnknownTheme = errors.New("unknown theme")

// Theme represents a color theme for charts.
type Theme string

const (
	// ThemeLight is the light color theme.
	ThemeLight Theme = "light"
	// ThemeDark is the dark color theme.
	ThemeDark Theme = "dark"
)

// ParseTheme parses a theme name. Empty means ThemeLight.
func ParseTheme(name string) (Theme, error) {
	switch Theme(name) {
	case "", ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
}

// ThemeConfig holds the chart colors of one theme.
type ThemeConfig struct {
	Background string
	Grid       string
	Axis       string
	Text       string
	TextMuted  string
	// Palette colors successive series.
	Palette []string
}

// GetThemeConfig returns the configuration for a given theme.
func GetThemeConfig(theme Theme) ThemeConfig {
	if theme == ThemeDark {
		return darkTheme
	}

	return lightTheme
}

// Color returns the palette color of the i-th series.
func (c ThemeConfig) Color(i int) string {
	return c.Palette[i%len(c.Palette)]
}

var lightTheme = ThemeConfig{
	Background: "#fafaf9", // stone-50.
	Grid:       "#e7e5e4", // stone-200.
	Axis:       "#a8a29e", // stone-400.
	Text:       "#44403c", // stone-700.
	TextMuted:  "#78716c", // stone-500.
	Palette: []string{
		"#a16207", // amber-700.
		"#0369a1", // sky-700.
		"#4d7c0f", // lime-700.
		"#7c3aed", // violet-600.
		"#be185d", // pink-700.
		"#0891b2", // cyan-600.
	},
}

var darkTheme = ThemeConfig{
	Background: "#0c0a09", // stone-950.
	Grid:       "#44403c", // stone-700.
	Axis:       "#57534e", // stone-600.
	Text:       "#d6d3d1", // stone-300.
	TextMuted:  "#a8a29e", // stone-400.
	Palette: []string{
		"#fbbf24", // amber-400.
		"#38bdf8", // sky-400.
		"#a3e635", // lime-400.
		"#a78bfa", // violet-400.
		"#f472b6", // pink-400.
		"#22d3ee", // cyan-400.
	},
}
