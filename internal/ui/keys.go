package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Choose  key.Binding
	Fetch   key.Binding
	Advise  key.Binding
	Search  key.Binding
	Leave   key.Binding
	Page    key.Binding
	Quit    key.Binding
	NextTab key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
	Choose:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Fetch:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fetch")),
	Advise:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "ask AI")),
	Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Leave:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "done typing")),
	Page:    key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "page")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next page")),
}
