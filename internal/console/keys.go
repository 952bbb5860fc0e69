package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the console key bindings. Printable keys go to the
// focused text input, so every action sits on a control key.
type KeyMap struct {
	NextTab key.Binding
	PrevTab key.Binding

	Up     key.Binding
	Down   key.Binding
	Submit key.Binding

	Refresh        key.Binding // Tickets: reload from the ticketing API.
	CycleStatus    key.Binding
	CyclePriority  key.Binding
	CycleCategory  key.Binding
	ClearFilters   key.Binding
	Resolve        key.Binding // Tickets: ask the assistant about the selected ticket.
	BuildKnowledge key.Binding

	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	NextTab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next tab"),
	),
	PrevTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous tab"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "down"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "refresh"),
	),
	CycleStatus: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "status"),
	),
	CyclePriority: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("ctrl+p", "priority"),
	),
	CycleCategory: key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("ctrl+g", "category"),
	),
	ClearFilters: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "clear filters"),
	),
	Resolve: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "AI resolve"),
	),
	BuildKnowledge: key.NewBinding(
		key.WithKeys("ctrl+b"),
		key.WithHelp("ctrl+b", "build"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// keyHelp adapts the bindings relevant to one tab to help.KeyMap.
type keyHelp []key.Binding

func (k keyHelp) ShortHelp() []key.Binding {
	return k
}

func (k keyHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{k}
}

func (k KeyMap) forTab(tab Tab) keyHelp {
	common := []key.Binding{k.NextTab, k.Submit}
	switch tab {
	case TabHome:
		return append(keyHelp{k.Up, k.Down}, append(common, k.Quit)...)
	case TabTickets:
		return append(keyHelp{k.Up, k.Down}, append(common,
			k.Refresh, k.CycleStatus, k.CyclePriority, k.CycleCategory, k.ClearFilters, k.Resolve, k.Quit)...)
	case TabKnowledge:
		return append(keyHelp(common), k.BuildKnowledge, k.Quit)
	default:
		return append(keyHelp(common), k.Quit)
	}
}
