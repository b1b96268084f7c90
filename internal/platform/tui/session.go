package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/focus/internal/config"
	"github.com/vovakirdan/focus/internal/identity"
)

// SessionModel manages the full session flow: game -> leaderboard -> game.
// This is the top-level model for both local and SSH sessions.
type SessionModel struct {
	game     GameModel
	board    *ScoreboardModel
	scores   Leaderboard
	limits   config.LeaderboardConfig
	player   identity.Identity
	logger   *log.Logger
	width    int
	height   int
	quitting bool
}

// NewSessionModel creates a new session model. scores may be nil.
func NewSessionModel(game GameModel, scores Leaderboard, limits config.LeaderboardConfig) SessionModel {
	return SessionModel{
		game:   game,
		scores: scores,
		limits: limits,
		player: game.player,
	}
}

// WithSize sets the initial screen size, before the first resize message arrives.
func (m SessionModel) WithSize(width, height int) SessionModel {
	m.width, m.height = width, height
	m.game.width, m.game.height = width, height
	m.game.help.Width = width
	return m
}

// WithLogger sets the logger used by the leaderboard screen.
func (m SessionModel) WithLogger(logger *log.Logger) SessionModel {
	m.logger = logger
	return m
}

// Init initializes the session.
func (m SessionModel) Init() tea.Cmd {
	return m.game.Init()
}

// Update handles messages for the session.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		var cmd tea.Cmd
		if m.board != nil {
			m, cmd = m.updateBoard(msg)
		}
		m, _ = m.updateGame(msg)
		return m, cmd

	// The game keeps its clock and submissions running behind the board
	case FrameMsg, SubmissionMsg:
		return m.updateGame(msg)
	}

	if m.board != nil {
		return m.updateBoard(msg)
	}
	return m.updateGame(msg)
}

// updateGame handles updates when the game screen is active.
func (m SessionModel) updateGame(msg tea.Msg) (SessionModel, tea.Cmd) {
	newModel, cmd := m.game.Update(msg)
	if gameModel, ok := newModel.(GameModel); ok {
		m.game = gameModel
	}

	if m.game.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.game.WantsScoreboard() {
		m.game.wantsBoard = false
		board := NewScoreboardModel(m.scores, m.player, m.logger, m.limits.GlobalLimit, m.limits.PersonalLimit, m.width, m.height)
		m.board = &board
	}

	return m, cmd
}

// updateBoard handles updates when the leaderboard is open.
func (m SessionModel) updateBoard(msg tea.Msg) (SessionModel, tea.Cmd) {
	newModel, cmd := m.board.Update(msg)
	if boardModel, ok := newModel.(ScoreboardModel); ok {
		m.board = &boardModel
	}

	if m.board.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.board.IsGoingBack() {
		m.board = nil
		return m, nil
	}

	return m, cmd
}

// View renders the current view.
func (m SessionModel) View() string {
	if m.quitting {
		return ""
	}

	if m.board != nil {
		return m.board.View()
	}

	return m.game.View()
}

// Game returns the game screen model.
func (m SessionModel) Game() GameModel {
	return m.game
}

// Board returns the leaderboard model, or nil when the game screen is active.
func (m SessionModel) Board() *ScoreboardModel {
	return m.board
}
