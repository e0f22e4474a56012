package ui

import (
	"fmt"
	"math/rand/v2"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
	"github.com/desertthunder/songseeker/internal/tasks"
)

// Stage is where the current card is in its round.
type Stage int

const (
	StageHidden Stage = iota
	StageRevealed
	StageFinished
)

func (s Stage) String() string {
	switch s {
	case StageHidden:
		return "hidden"
	case StageRevealed:
		return "revealed"
	default:
		return "finished"
	}
}

// Round records one played card.
type Round struct {
	CardID  string
	Track   models.Track
	Guess   int
	Guessed bool
	Correct bool
}

// Game is the guessing game state over a mapping: a shuffled deck played one card at a time.
type Game struct {
	mapping models.Mapping
	deck    []string
	pos     int
	stage   Stage
	rounds  []Round
	score   int
	rng     *rand.Rand
}

// NewGame shuffles the playable cards of m with rng.
func NewGame(m models.Mapping, rng *rand.Rand) (*Game, error) {
	if len(m.Entries()) == 0 {
		return nil, fmt.Errorf("%w: mapping has no playable cards", shared.ErrInvalidInput)
	}
	g := &Game{mapping: m, rng: rng}
	g.Restart()
	return g, nil
}

// Restart reshuffles the deck and clears the score.
func (g *Game) Restart() {
	g.deck = g.mapping.Entries()
	g.rng.Shuffle(len(g.deck), func(i, j int) { g.deck[i], g.deck[j] = g.deck[j], g.deck[i] })
	g.pos = 0
	g.stage = StageHidden
	g.rounds = nil
	g.score = 0
}

func (g *Game) Stage() Stage    { return g.stage }
func (g *Game) Score() int      { return g.score }
func (g *Game) Rounds() []Round { return g.rounds }
func (g *Game) Position() int   { return g.pos + 1 }
func (g *Game) Len() int        { return len(g.deck) }

// Current returns the card being played, or nil when the deck is done.
func (g *Game) Current() (string, *models.Track) {
	if g.stage == StageFinished || g.pos >= len(g.deck) {
		return "", nil
	}
	id := g.deck[g.pos]
	return id, g.mapping[id]
}

// Guess reveals the current card and scores year.
func (g *Game) Guess(year int) (bool, error) {
	return g.reveal(year, true)
}

// Reveal shows the current card without a guess.
func (g *Game) Reveal() error {
	_, err := g.reveal(0, false)
	return err
}

func (g *Game) reveal(year int, guessed bool) (bool, error) {
	if g.stage != StageHidden {
		return false, fmt.Errorf("%w: card is already %s", shared.ErrInvalidArgument, g.stage)
	}

	id, track := g.Current()
	correct := guessed && track.Year != 0 && track.Year == year
	if correct {
		g.score++
	}
	g.rounds = append(g.rounds, Round{CardID: id, Track: *track, Guess: year, Guessed: guessed, Correct: correct})
	g.stage = StageRevealed
	return correct, nil
}

// Next advances past a revealed card.
func (g *Game) Next() error {
	if g.stage != StageRevealed {
		return fmt.Errorf("%w: reveal the card first", shared.ErrInvalidArgument)
	}
	g.pos++
	if g.pos >= len(g.deck) {
		g.stage = StageFinished
		return nil
	}
	g.stage = StageHidden
	return nil
}

// Jump resolves a scanned card code and plays that card next.
// The card is moved to the current position; a hidden card it replaces goes back into the deck.
func (g *Game) Jump(code string) (string, error) {
	if g.stage == StageFinished {
		return "", fmt.Errorf("%w: game is over", shared.ErrInvalidArgument)
	}

	id, _, err := tasks.Resolve(g.mapping, code)
	if err != nil {
		return "", err
	}

	if g.stage == StageRevealed {
		g.pos++
		g.stage = StageHidden
	}

	at := -1
	for i, card := range g.deck {
		if card == id {
			at = i
			break
		}
	}
	switch {
	case at == -1:
		g.deck = append(g.deck, id)
		at = len(g.deck) - 1
	case at < g.pos:
		// Already played; replay it.
		g.deck = append(g.deck, id)
		at = len(g.deck) - 1
	}
	if g.pos >= len(g.deck) {
		g.pos = len(g.deck) - 1
	}
	g.deck[g.pos], g.deck[at] = g.deck[at], g.deck[g.pos]
	return id, nil
}
