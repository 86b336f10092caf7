package calendar

import (
	"fmt"
	"strings"
)

// ThemeMode selects a color palette.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

// ParseThemeMode validates a theme mode name. An empty string selects system.
func ParseThemeMode(raw string) (ThemeMode, error) {
	switch mode := ThemeMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ThemeSystem, nil
	case ThemeLight, ThemeDark, ThemeSystem:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown theme mode %q", raw)
	}
}

// Palette holds the color tokens used for calendar markers.
type Palette struct {
	Primary  string `json:"primary"`
	Personal string `json:"personal"`
	Couple   string `json:"couple"`
}

var (
	LightPalette = Palette{Primary: "#FF6B8B", Personal: "#4A90E2", Couple: "#FF6B8B"}
	DarkPalette  = Palette{Primary: "#FF6B8B", Personal: "#5A9CF0", Couple: "#FF8DA6"}
)

// PaletteFor returns the palette for mode. The server has no system
// appearance to follow, so system renders as light.
func PaletteFor(mode ThemeMode) Palette {
	if mode == ThemeDark {
		return DarkPalette
	}
	return LightPalette
}

// Resolve implements ColorResolver.
func (p Palette) Resolve(c Category) string {
	if c == CategoryCouple {
		return p.Couple
	}
	return p.Personal
}
