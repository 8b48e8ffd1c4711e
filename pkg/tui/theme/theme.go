package theme

import "github.com/charmbracelet/lipgloss"

// Theme centralizes Lip Gloss styles for the Bubble Tea UI.
type Theme struct {
	Footer  FooterTheme
	Pane    PaneTheme
	Product ProductTheme
	Modal   ModalTheme
	Chip    lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// FooterTheme groups styles used by the bottom status/help bar.
type FooterTheme struct {
	Help   lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
}

// PaneTheme styles the framed catalog and constants panes.
type PaneTheme struct {
	Active   lipgloss.Style
	Inactive lipgloss.Style
	Title    lipgloss.Style
}

// ProductTheme styles product rows.
type ProductTheme struct {
	Normal   lipgloss.Style
	Cursor   lipgloss.Style
	Pinned   lipgloss.Style
	Selected lipgloss.Style
	Held     lipgloss.Style
}

// ModalTheme styles centered modal overlays (filter panel, login).
type ModalTheme struct {
	Frame lipgloss.Style
	Title lipgloss.Style
	Field lipgloss.Style
	Focus lipgloss.Style
}

// Default returns the built-in theme used across the UI.
func Default() Theme {
	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	return Theme{
		Footer: FooterTheme{
			Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			Status: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		},
		Pane: PaneTheme{
			Active:   frame.BorderForeground(lipgloss.Color("212")),
			Inactive: frame.BorderForeground(lipgloss.Color("240")),
			Title:    lipgloss.NewStyle().Bold(true),
		},
		Product: ProductTheme{
			Normal:   lipgloss.NewStyle(),
			Cursor:   lipgloss.NewStyle().Reverse(true),
			Pinned:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
			Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Reverse(true),
			Held:     lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		},
		Modal: ModalTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(1, 2),
			Title: lipgloss.NewStyle().Bold(true),
			Field: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
			Focus: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		},
		Chip:  lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("61")).Padding(0, 1),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}
