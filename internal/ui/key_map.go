package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the game.
type keyMap struct {
	submit  key.Binding
	next    key.Binding
	code    key.Binding
	back    key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "guess / reveal")),
		next:    key.NewBinding(key.WithKeys("enter", "n", " "), key.WithHelp("enter/n", "next card")),
		code:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "scan card")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "play again")),
		quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.submit, k.next, k.code},
		{k.back, k.restart, k.quit},
	}
}
