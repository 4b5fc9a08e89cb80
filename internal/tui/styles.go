package tui

import "github.com/charmbracelet/lipgloss"

// styles holds the precomputed lipgloss styles of the viewer.
type styles struct {
	Title       lipgloss.Style
	Live        lipgloss.Style
	Offline     lipgloss.Style
	Status      lipgloss.Style
	Notice      lipgloss.Style
	Header      lipgloss.Style
	Interactive lipgloss.Style
	Selected    lipgloss.Style
	Placeholder lipgloss.Style
	Detail      lipgloss.Style
	DetailTitle lipgloss.Style
	HeaderName  lipgloss.Style
	Modal       lipgloss.Style
	ModalTitle  lipgloss.Style
	ModalHint   lipgloss.Style
	Methods     map[string]lipgloss.Style
}

func newStyles() styles {
	method := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c))
	}
	return styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1e1e2e")).Background(lipgloss.Color("#cba6f7")).Padding(0, 1),
		Live:        lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		Offline:     lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
		Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
		Notice:      lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8")).Italic(true),
		Header:      lipgloss.NewStyle().Bold(true),
		Interactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#89dceb")).Underline(true),
		Selected:    lipgloss.NewStyle().Background(lipgloss.Color("#313244")),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086")).Italic(true),
		Detail: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475a")).
			Padding(0, 1),
		DetailTitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cba6f7")),
		HeaderName:  lipgloss.NewStyle().Foreground(lipgloss.Color("#89dceb")),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#f38ba8")).
			Padding(1, 2),
		ModalTitle: lipgloss.NewStyle().Bold(true),
		ModalHint:  lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8")),
		Methods: map[string]lipgloss.Style{
			"GET":    method("#89b4fa"),
			"POST":   method("#a6e3a1"),
			"PUT":    method("#f9e2af"),
			"DELETE": method("#f38ba8"),
			"PATCH":  method("#cba6f7"),
		},
	}
}

func (s styles) method(m string) lipgloss.Style {
	if st, ok := s.Methods[m]; ok {
		return st
	}
	return s.Header
}
