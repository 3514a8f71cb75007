package styles

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

// VS Code Dark theme colors
const (
	VSCodeForeground = "#D4D4D4"
	VSCodeComment    = "#6A9955"
	VSCodeNumber     = "#B5CEA8"
	VSCodeLineNumber = "#858585"
)

// Listing column styles.
var (
	Address = lipgloss.NewStyle().Foreground(lipgloss.Color("#4F4F4F"))
	Bytes   = lipgloss.NewStyle().Foreground(lipgloss.Color(VSCodeLineNumber))
	Target  = lipgloss.NewStyle().Foreground(lipgloss.Color(VSCodeComment))
	Section = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(charmtone.Malibu.Hex()))
)

// Report styles for verify.
var (
	Pass = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(charmtone.Guac.Hex()))
	Fail = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(charmtone.Cheeky.Hex()))
	Dim  = lipgloss.NewStyle().Foreground(lipgloss.Color(VSCodeLineNumber))
)
