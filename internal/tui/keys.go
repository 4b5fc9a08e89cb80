package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/funnyzak/reqwatch/pkg/i18n"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Filter   key.Binding
	Unfilter key.Binding
	Clear    key.Binding
	Detail   key.Binding
	CopyURL  key.Binding
	CopyBody key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap(loc i18n.Localizer) keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/↑", loc.T("tui.help.up"))),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/↓", loc.T("tui.help.down"))),
		Filter:   key.NewBinding(key.WithKeys("enter", "f"), key.WithHelp("enter", loc.T("tui.help.filter"))),
		Unfilter: key.NewBinding(key.WithKeys("u", "backspace"), key.WithHelp("u", loc.T("tui.help.unfilter"))),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", loc.T("tui.help.clear"))),
		Detail:   key.NewBinding(key.WithKeys("d", "tab"), key.WithHelp("d", loc.T("tui.help.detail"))),
		CopyURL:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", loc.T("tui.help.copy_url"))),
		CopyBody: key.NewBinding(key.WithKeys("Y"), key.WithHelp("Y", loc.T("tui.help.copy_body"))),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", loc.T("tui.help.help"))),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", loc.T("tui.help.quit"))),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Filter, k.Unfilter, k.Clear, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Filter, k.Unfilter},
		{k.Clear, k.Detail, k.CopyURL, k.CopyBody},
		{k.Help, k.Quit},
	}
}
