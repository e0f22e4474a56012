package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// MsgKind enumerates all message types in the game.
type MsgKind int

// Msg represents all possible game messages (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgGuessScored MsgKind = iota
	MsgCardResolved
	MsgGameError
)

type guessResult struct {
	year    int
	guessed bool
	correct bool
}

// guessScoredMsg is the constructor for [MsgGuessScored]
func guessScoredMsg(year int, guessed, correct bool) Msg {
	return Msg{kind: MsgGuessScored, data: guessResult{year, guessed, correct}}
}

// cardResolvedMsg is the constructor for [MsgCardResolved]
func cardResolvedMsg(cardID string) Msg {
	return Msg{kind: MsgCardResolved, data: cardID}
}

// gameErrorMsg is the constructor for [MsgGameError]
func gameErrorMsg(err error) Msg {
	return Msg{kind: MsgGameError, data: err}
}
