package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard's key bindings.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	FocusToggle key.Binding
	OpenDetail  key.Binding
	Back        key.Binding
	Toggle      key.Binding

	Filter      key.Binding
	ShowClosed  key.Binding
	ShowLabels  key.Binding
	CycleStatus key.Binding
	Close       key.Binding
	Defer       key.Binding
	Edit        key.Binding
	Labels      key.Binding
	Comment     key.Binding
	Create      key.Binding
	CreateChild key.Binding

	Theme       key.Binding
	SplitShrink key.Binding
	SplitGrow   key.Binding
	Refresh     key.Binding
	Copy        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// alongside arrow keys and page up/down.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u", "b"),
		key.WithHelp("C-u/b", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d", "f"),
		key.WithHelp("C-d/f", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	FocusToggle: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	OpenDetail: key.NewBinding(
		key.WithKeys("enter", "l"),
		key.WithHelp("enter/l", "detail"),
	),
	Back: key.NewBinding(
		key.WithKeys("h", "esc"),
		key.WithHelp("h/esc", "back"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "fold"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	ShowClosed: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "closed"),
	),
	ShowLabels: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "labels"),
	),
	CycleStatus: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "status"),
	),
	Close: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "close/reopen"),
	),
	Defer: key.NewBinding(
		key.WithKeys("D"),
		key.WithHelp("D", "defer/undefer"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Labels: key.NewBinding(
		key.WithKeys("+"),
		key.WithHelp("+", "edit labels"),
	),
	Comment: key.NewBinding(
		key.WithKeys("C"),
		key.WithHelp("C", "comment"),
	),
	Create: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "new"),
	),
	CreateChild: key.NewBinding(
		key.WithKeys("A"),
		key.WithHelp("A", "new child"),
	),
	Theme: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "theme"),
	),
	SplitShrink: key.NewBinding(
		key.WithKeys("<"),
		key.WithHelp("<", "shrink list"),
	),
	SplitGrow: key.NewBinding(
		key.WithKeys(">"),
		key.WithHelp(">", "grow list"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy id"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap for the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Toggle, k.OpenDetail, k.Filter, k.CycleStatus, k.Create, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.FocusToggle, k.OpenDetail, k.Back, k.Toggle, k.Filter, k.ShowClosed, k.ShowLabels},
		{k.CycleStatus, k.Close, k.Defer, k.Edit, k.Labels, k.Comment, k.Create, k.CreateChild},
		{k.Theme, k.SplitShrink, k.SplitGrow, k.Refresh, k.Copy, k.Help, k.Quit},
	}
}
