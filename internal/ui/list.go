package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = roundItem{}

// roundItem wraps a played [Round] to implement [list.Item].
type roundItem struct {
	round Round
}

func (i roundItem) FilterValue() string { return i.round.Track.Artist + " " + i.round.Track.Title }
func (i roundItem) Title() string {
	return fmt.Sprintf("%s - %s", i.round.Track.Artist, i.round.Track.Title)
}
func (i roundItem) Description() string {
	desc := fmt.Sprintf("card %s • %d", i.round.CardID, i.round.Track.Year)
	switch {
	case !i.round.Guessed:
		return desc + " • skipped"
	case i.round.Correct:
		return fmt.Sprintf("%s • guessed %d ✓", desc, i.round.Guess)
	default:
		return fmt.Sprintf("%s • guessed %d ✗", desc, i.round.Guess)
	}
}

func roundItems(rounds []Round) []list.Item {
	items := make([]list.Item, len(rounds))
	for i, r := range rounds {
		items[i] = roundItem{round: r}
	}
	return items
}
