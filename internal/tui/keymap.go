package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	nextTab    key.Binding
	prevTab    key.Binding
	prevDay    key.Binding
	nextDay    key.Binding
	today      key.Binding
	copyJSON   key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextTab:    key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/l", "next view")),
		prevTab:    key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab/h", "previous view")),
		prevDay:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "day before")),
		nextDay:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "day after")),
		today:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "back to today")),
		copyJSON:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy json")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextTab, k.prevDay, k.nextDay, k.reload, k.toggleHelp, k.quit}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextTab, k.prevTab},
		{k.prevDay, k.nextDay, k.today},
		{k.copyJSON, k.reload, k.toggleHelp, k.quit},
	}
}
