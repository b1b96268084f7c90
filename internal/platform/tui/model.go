package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/vovakirdan/focus/internal/focus"
	"github.com/vovakirdan/focus/internal/identity"
)

// SubmissionMsg reports that a score submission has completed.
type SubmissionMsg struct {
	RoundID uuid.UUID
	Err     error
}

// waitSubmission blocks on a submission off the update loop.
func waitSubmission(sub *focus.Submission) tea.Cmd {
	return func() tea.Msg {
		<-sub.Done()
		return SubmissionMsg{RoundID: sub.Record.RoundID, Err: sub.Err()}
	}
}

// GameModel is the Bubble Tea model for the game screen.
// It is the engine's driver: it schedules frames, forwards key presses and
// observes submissions.
type GameModel struct {
	engine     *focus.Engine
	player     identity.Identity
	interval   time.Duration
	keys       GameKeyMap
	help       help.Model
	advisory   focus.Advisory // Display copy; submission results update it, the engine never does
	width      int
	height     int
	quitting   bool
	wantsBoard bool
}

// NewGameModel creates a game model around an idle engine.
func NewGameModel(engine *focus.Engine, player identity.Identity, interval time.Duration) GameModel {
	if player == nil {
		player = identity.Anonymous{}
	}
	if interval <= 0 {
		interval = time.Second / 60
	}
	return GameModel{
		engine:   engine,
		player:   player,
		interval: interval,
		keys:     DefaultGameKeyMap(),
		help:     help.New(),
	}
}

// Init initializes the model. Nothing runs until the player starts a round.
func (m GameModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m GameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case FrameMsg:
		return m.handleFrame(msg)

	case SubmissionMsg:
		return m.handleSubmission(msg)
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m GameModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	// While playing every printable key is a candidate symbol
	if m.engine.State() == focus.StatePlaying {
		if msg.Type != tea.KeyRunes || msg.Alt {
			return m, nil
		}
		res, ok := m.engine.Press(string(msg.Runes))
		if !ok {
			return m, nil
		}
		m.advisory = res.Advisory
		if res.Submission != nil {
			return m, waitSubmission(res.Submission)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		f, err := m.engine.Start()
		if err != nil {
			return m, nil
		}
		m.advisory = focus.AdvisoryNone
		return m, frameCmd(m.interval, f)

	case key.Matches(msg, m.keys.Board):
		m.wantsBoard = true
		return m, nil

	case key.Matches(msg, m.keys.QuitIf):
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// handleFrame resamples the clock; only a live frame schedules the next one.
func (m GameModel) handleFrame(msg FrameMsg) (tea.Model, tea.Cmd) {
	next, ok := m.engine.Tick(msg.Frame)
	if !ok {
		return m, nil
	}
	return m, frameCmd(m.interval, next)
}

// handleSubmission updates the advisory if the result belongs to the round on screen.
func (m GameModel) handleSubmission(msg SubmissionMsg) (tea.Model, tea.Cmd) {
	if m.engine.State() != focus.StateFinished || m.engine.Round().ID != msg.RoundID {
		return m, nil
	}
	if msg.Err != nil {
		m.advisory = focus.AdvisoryNotSaved
	} else {
		m.advisory = focus.AdvisorySaved
	}
	return m, nil
}

// View renders the game.
func (m GameModel) View() string {
	if m.quitting {
		return ""
	}
	return renderGame(m)
}

// Advisory returns the advisory currently displayed.
func (m GameModel) Advisory() focus.Advisory {
	return m.advisory
}

// IsQuitting returns true if user requested to quit entirely.
func (m GameModel) IsQuitting() bool {
	return m.quitting
}

// WantsScoreboard returns true if user asked for the leaderboard.
func (m GameModel) WantsScoreboard() bool {
	return m.wantsBoard
}

// Run starts the Bubble Tea program with the given model.
func Run(model tea.Model) error {
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	_, err := p.Run()
	return err
}
