// Package theme defines the light and dark palettes shared by the terminal
// and HTML renderers.
package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a colour scheme name
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Parse validates a theme name
func Parse(name string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(name))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	}
	return "", fmt.Errorf("unsupported theme %q (supported: light, dark)", name)
}

// Toggle returns the opposite theme
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// System reports the terminal's preference
func System() Theme {
	if lipgloss.HasDarkBackground() {
		return Dark
	}
	return Light
}

// Palette holds the colours of one theme as hex strings
type Palette struct {
	Primary    string
	Secondary  string
	Text       string
	TextMuted  string
	Background string
	Chip       string
	ChipText   string
	Success    string
	Warning    string
	Error      string
}

var palettes = map[Theme]Palette{
	Light: {
		Primary:    "#1e3a8a",
		Secondary:  "#0891b2",
		Text:       "#1f2937",
		TextMuted:  "#6b7280",
		Background: "#f8fafc",
		Chip:       "#e5e7eb",
		ChipText:   "#111827",
		Success:    "#16a34a",
		Warning:    "#f59e0b",
		Error:      "#dc2626",
	},
	Dark: {
		Primary:    "#93c5fd",
		Secondary:  "#22d3ee",
		Text:       "#e5e7eb",
		TextMuted:  "#9ca3af",
		Background: "#0f172a",
		Chip:       "#334155",
		ChipText:   "#f1f5f9",
		Success:    "#4ade80",
		Warning:    "#fbbf24",
		Error:      "#f87171",
	},
}

// Palette returns the colours for the theme, defaulting to light
func (t Theme) Palette() Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[Light]
}

// CSSVariables renders the palette as custom properties for the web UI
func (t Theme) CSSVariables() string {
	p := t.Palette()
	var b strings.Builder
	fmt.Fprintf(&b, ":root{")
	fmt.Fprintf(&b, "--color-primary:%s;", p.Primary)
	fmt.Fprintf(&b, "--color-secondary:%s;", p.Secondary)
	fmt.Fprintf(&b, "--color-text:%s;", p.Text)
	fmt.Fprintf(&b, "--color-text-muted:%s;", p.TextMuted)
	fmt.Fprintf(&b, "--color-background:%s;", p.Background)
	fmt.Fprintf(&b, "--color-chip:%s;", p.Chip)
	fmt.Fprintf(&b, "--color-chip-text:%s;", p.ChipText)
	fmt.Fprintf(&b, "--color-success:%s;", p.Success)
	fmt.Fprintf(&b, "--color-warning:%s;", p.Warning)
	fmt.Fprintf(&b, "--color-error:%s;", p.Error)
	fmt.Fprintf(&b, "}")
	return b.String()
}
