package tui

import "github.com/charmbracelet/lipgloss"

// Theme is a named palette. Styles are rebuilt whenever the active theme
// changes, so every color below must flow through newStyles.
type Theme struct {
	Name      string
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Error     lipgloss.Color
	Success   lipgloss.Color
	Border    lipgloss.Color
	Highlight lipgloss.Color
}

func darkTheme() Theme {
	return Theme{
		Name:      "dark",
		Accent:    lipgloss.Color("#7aa2f7"),
		Text:      lipgloss.Color("#c0caf5"),
		Muted:     lipgloss.Color("#565f89"),
		Error:     lipgloss.Color("#f7768e"),
		Success:   lipgloss.Color("#9ece6a"),
		Border:    lipgloss.Color("#3b4261"),
		Highlight: lipgloss.Color("#bb9af7"),
	}
}

func lightTheme() Theme {
	return Theme{
		Name:      "light",
		Accent:    lipgloss.Color("#2563eb"),
		Text:      lipgloss.Color("#1f2937"),
		Muted:     lipgloss.Color("#6b7280"),
		Error:     lipgloss.Color("#dc2626"),
		Success:   lipgloss.Color("#059669"),
		Border:    lipgloss.Color("#d1d5db"),
		Highlight: lipgloss.Color("#7c3aed"),
	}
}

func monochromeTheme() Theme {
	return Theme{
		Name:      "monochrome",
		Accent:    lipgloss.Color("15"),
		Text:      lipgloss.Color("7"),
		Muted:     lipgloss.Color("8"),
		Error:     lipgloss.Color("15"),
		Success:   lipgloss.Color("7"),
		Border:    lipgloss.Color("8"),
		Highlight: lipgloss.Color("15"),
	}
}

func hyperbridgeTheme() Theme {
	return Theme{
		Name:      "hyperbridge",
		Accent:    lipgloss.Color("#ff2975"),
		Text:      lipgloss.Color("#f8f8f2"),
		Muted:     lipgloss.Color("#7b6d8d"),
		Error:     lipgloss.Color("#ff5555"),
		Success:   lipgloss.Color("#00f5d4"),
		Border:    lipgloss.Color("#4c3a6e"),
		Highlight: lipgloss.Color("#00e0ff"),
	}
}

var themeOrder = []Theme{darkTheme(), lightTheme(), monochromeTheme(), hyperbridgeTheme()}

func themeByName(name string) Theme {
	for _, theme := range themeOrder {
		if theme.Name == name {
			return theme
		}
	}
	return darkTheme()
}

func nextTheme(current Theme) Theme {
	for index, theme := range themeOrder {
		if theme.Name == current.Name {
			return themeOrder[(index+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

type styles struct {
	tabActive     lipgloss.Style
	tabInactive   lipgloss.Style
	sectionHeader lipgloss.Style
	helper        lipgloss.Style
	errorText     lipgloss.Style
	success       lipgloss.Style
	tagline       lipgloss.Style
	currentLine   lipgloss.Style
	important     lipgloss.Style
	panel         lipgloss.Style
	statusBar     lipgloss.Style
	key           lipgloss.Style
	keyDesc       lipgloss.Style
	userTurn      lipgloss.Style
	assistantTurn lipgloss.Style
	folderTag     lipgloss.Style
}

func newStyles(theme Theme) styles {
	return styles{
		tabActive: lipgloss.NewStyle().Bold(true).
			Foreground(theme.Accent).Underline(true).Padding(0, 1),
		tabInactive:   lipgloss.NewStyle().Foreground(theme.Muted).Padding(0, 1),
		sectionHeader: lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		helper:        lipgloss.NewStyle().Foreground(theme.Muted),
		errorText:     lipgloss.NewStyle().Foreground(theme.Error),
		success:       lipgloss.NewStyle().Foreground(theme.Success),
		tagline:       lipgloss.NewStyle().Italic(true).Foreground(theme.Muted),
		currentLine:   lipgloss.NewStyle().Bold(true).Foreground(theme.Highlight),
		important:     lipgloss.NewStyle().Bold(true).Foreground(theme.Error),
		panel: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).Padding(0, 1),
		statusBar: lipgloss.NewStyle().Foreground(theme.Muted),
		key:       lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		keyDesc:   lipgloss.NewStyle().Foreground(theme.Muted),
		userTurn:  lipgloss.NewStyle().Bold(true).Foreground(theme.Text),
		assistantTurn: lipgloss.NewStyle().Foreground(theme.Text).
			BorderLeft(true).BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Accent).PaddingLeft(1),
		folderTag: lipgloss.NewStyle().Foreground(theme.Highlight),
	}
}
