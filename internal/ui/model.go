package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/songseeker/internal/formatter"
	"github.com/desertthunder/songseeker/internal/shared"
)

type inputMode int

const (
	modeGuess inputMode = iota
	modeCode
)

// Model is the bubbletea model of the guessing game.
type Model struct {
	name    string
	game    *Game
	mode    inputMode
	guess   textinput.Model
	code    textinput.Model
	history list.Model
	help    help.Model
	keys    keyMap
	status  string
	err     error
	width   int
	height  int
}

// NewModel creates a game view titled name.
func NewModel(name string, game *Game) *Model {
	guess := textinput.New()
	guess.Placeholder = "year"
	guess.CharLimit = 4
	guess.Width = 6
	guess.Focus()

	code := textinput.New()
	code.Placeholder = "plex:12345 or card number"
	code.CharLimit = 64
	code.Width = 30

	return &Model{
		name:   name,
		game:   game,
		guess:  guess,
		code:   code,
		help:   help.New(),
		keys:   newKeyMap(),
		width:  80,
		height: 24,
	}
}

// Init starts the cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.game.Stage() == StageFinished {
			m.history.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.err = nil

		switch {
		case m.game.Stage() == StageFinished:
			return m.handleFinishedKeys(msg)
		case m.mode == modeCode:
			return m.handleCodeKeys(msg)
		case m.game.Stage() == StageRevealed:
			return m.handleRevealedKeys(msg)
		default:
			return m.handleHiddenKeys(msg)
		}
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgGuessScored:
		r := msg.data.(guessResult)
		switch {
		case !r.guessed:
			m.status = styles.warn.Render("No guess this time.")
		case r.correct:
			m.status = styles.ok.Render(fmt.Sprintf("✓ %d is right!", r.year))
		default:
			m.status = styles.err.Render(fmt.Sprintf("✗ Not %d.", r.year))
		}
	case MsgCardResolved:
		m.status = styles.ok.Render(fmt.Sprintf("Card %s is up.", msg.data.(string)))
	case MsgGameError:
		m.err = msg.data.(error)
	}
	return m, nil
}

func (m *Model) handleHiddenKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.code):
		return m, m.openCodePrompt()
	case key.Matches(msg, m.keys.submit):
		return m, m.submitGuess()
	}

	var cmd tea.Cmd
	m.guess, cmd = m.guess.Update(msg)
	return m, cmd
}

func (m *Model) handleRevealedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.code):
		return m, m.openCodePrompt()
	case key.Matches(msg, m.keys.next):
		if err := m.game.Next(); err != nil {
			return m, errCmd(err)
		}
		m.status = ""
		if m.game.Stage() == StageFinished {
			m.showHistory()
		}
	}
	return m, nil
}

func (m *Model) handleCodeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.closeCodePrompt()
		return m, nil
	case key.Matches(msg, m.keys.submit):
		value := m.code.Value()
		m.closeCodePrompt()
		id, err := m.game.Jump(value)
		if err != nil {
			return m, errCmd(err)
		}
		return m, func() tea.Msg { return cardResolvedMsg(id) }
	}

	var cmd tea.Cmd
	m.code, cmd = m.code.Update(msg)
	return m, cmd
}

func (m *Model) handleFinishedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.game.Restart()
		m.status = ""
		m.mode = modeGuess
		m.guess.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

// submitGuess scores the typed year; an empty input just reveals the card.
func (m *Model) submitGuess() tea.Cmd {
	value := strings.TrimSpace(m.guess.Value())
	m.guess.Reset()

	if value == "" {
		if err := m.game.Reveal(); err != nil {
			return errCmd(err)
		}
		return func() tea.Msg { return guessScoredMsg(0, false, false) }
	}

	year, err := strconv.Atoi(value)
	if err != nil {
		return errCmd(fmt.Errorf("%w: %q is not a year", shared.ErrInvalidArgument, value))
	}
	correct, err := m.game.Guess(year)
	if err != nil {
		return errCmd(err)
	}
	return func() tea.Msg { return guessScoredMsg(year, true, correct) }
}

func (m *Model) openCodePrompt() tea.Cmd {
	m.mode = modeCode
	m.guess.Blur()
	m.code.Reset()
	return m.code.Focus()
}

func (m *Model) closeCodePrompt() {
	m.mode = modeGuess
	m.code.Blur()
	m.guess.Focus()
}

func (m *Model) showHistory() {
	m.history = list.New(roundItems(m.game.Rounds()), list.NewDefaultDelegate(), m.width-4, m.height-8)
	m.history.Title = "Rounds"
}

func errCmd(err error) tea.Cmd {
	return func() tea.Msg { return gameErrorMsg(err) }
}

// View renders the current stage.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("SongSeeker • " + m.name))
	b.WriteString("\n")

	if m.game.Stage() == StageFinished {
		b.WriteString(m.renderFinished())
		return b.String()
	}

	fmt.Fprintf(&b, "Card %d/%d   Score %d\n\n", m.game.Position(), m.game.Len(), m.game.Score())
	if m.game.Stage() == StageRevealed {
		b.WriteString(m.renderRevealed())
	} else {
		b.WriteString(m.renderHidden())
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + styles.err.Render(m.renderError()) + "\n")
	}

	b.WriteString("\n")
	if m.mode == modeCode {
		b.WriteString("Card code: " + m.code.View() + "\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.back}))
	} else if m.game.Stage() == StageRevealed {
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.next, m.keys.code, m.keys.quit}))
	} else {
		b.WriteString("Your guess: " + m.guess.View() + "\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.code, m.keys.quit}))
	}
	return b.String()
}

func (m *Model) renderHidden() string {
	_, track := m.game.Current()
	body := "♪ ? ? ?"
	if track != nil && track.Duration > 0 {
		body += "\n\n" + styles.help.Render("length "+formatter.FormatDuration(track.Duration))
	}
	return styles.card.Render(body)
}

func (m *Model) renderRevealed() string {
	rounds := m.game.Rounds()
	if len(rounds) == 0 {
		return ""
	}
	t := rounds[len(rounds)-1].Track

	year := "????"
	if t.Year != 0 {
		year = strconv.Itoa(t.Year)
	}
	body := fmt.Sprintf("%s\n\n%s\n\n%s", t.Artist, styles.year.Render(year), t.Title)
	if t.Album != "" {
		body += "\n" + styles.help.Render(t.Album)
	}
	return styles.card.Render(body)
}

func (m *Model) renderFinished() string {
	rounds := m.game.Rounds()
	summary := styles.ok.Render(fmt.Sprintf("Game over: %d/%d years right", m.game.Score(), len(rounds)))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n\n%s", summary, m.history.View(), helpView)
}

func (m *Model) renderError() string {
	if errors.Is(m.err, shared.ErrTrackNotFound) {
		return "No card matches that code."
	}
	return fmt.Sprintf("Error: %v", m.err)
}
