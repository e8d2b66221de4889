package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Select    key.Binding
	Forward   key.Binding
	Back      key.Binding
	GoTo      key.Binding
	View2D    key.Binding
	Farther   key.Binding
	Nearer    key.Binding
	Grid      key.Binding
	Track     key.Binding
	Narrow    key.Binding
	Reset     key.Binding
	Retry     key.Binding
	Bookmark  key.Binding
	Bookmarks key.Binding
	Exit      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "follow")),
		Forward:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "step forward")),
		Back:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "step back")),
		GoTo:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "go to profile")),
		View2D:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "2D/3D")),
		Farther:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "clip farther")),
		Nearer:    key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "clip nearer")),
		Grid:      key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "grid")),
		Track:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "track camera")),
		Narrow:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "narrow to view")),
		Reset:     key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "full range")),
		Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Bookmark:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "bookmark")),
		Bookmarks: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmarks")),
		Exit:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "exit follow")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Forward, k.Back, k.GoTo, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Select, k.Forward, k.Back, k.GoTo, k.Exit},
		{k.View2D, k.Grid, k.Farther, k.Nearer, k.Track},
		{k.Narrow, k.Reset, k.Retry},
		{k.Bookmark, k.Bookmarks, k.Help, k.Quit},
	}
}
