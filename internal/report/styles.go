// Package report renders a RunReport for the terminal and writes it to disk
// as JSON, YAML or Markdown.
package report

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	passStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	mutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconSkip = "-"
)

const separator = "──────────────────────────────────────────"
