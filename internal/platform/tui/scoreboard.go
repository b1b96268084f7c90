package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/focus/internal/identity"
	"github.com/vovakirdan/focus/internal/storage"
)

// Scoreboard layout constants
const (
	tableMinHeight = 5
	loadTimeout    = 3 * time.Second
)

// Leaderboard is the read side of the score store.
type Leaderboard interface {
	TopScores(ctx context.Context, limit int) ([]storage.ScoreEntry, error)
	UserScores(ctx context.Context, userID string, limit int) ([]storage.ScoreEntry, error)
}

// BoardTab selects which leaderboard is shown.
type BoardTab int

const (
	TabGlobal BoardTab = iota
	TabPersonal
)

func (t BoardTab) String() string {
	if t == TabPersonal {
		return "Personal"
	}
	return "Global"
}

// ScoreboardModel is the Bubble Tea model for the leaderboard screen.
type ScoreboardModel struct {
	board         Leaderboard
	player        identity.Identity
	logger        *log.Logger
	globalLimit   int
	personalLimit int
	tab           BoardTab
	scores        []storage.ScoreEntry
	loadErr       error
	table         table.Model
	help          help.Model
	keys          ScoreboardKeyMap
	width         int
	height        int
	quitting      bool
	goingBack     bool // True if user pressed back (not quit)
}

// NewScoreboardModel creates a new scoreboard model showing the global board.
// board and logger may be nil.
func NewScoreboardModel(board Leaderboard, player identity.Identity, logger *log.Logger, globalLimit, personalLimit, width, height int) ScoreboardModel {
	if player == nil {
		player = identity.Anonymous{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	h := help.New()
	h.ShowAll = false

	m := ScoreboardModel{
		board:         board,
		player:        player,
		logger:        logger,
		globalLimit:   globalLimit,
		personalLimit: personalLimit,
		keys:          DefaultScoreboardKeyMap(),
		help:          h,
		width:         width,
		height:        height,
	}

	m.table = m.createTable()
	m.loadScores()

	return m
}

// createTable creates a new table with appropriate columns.
func (m *ScoreboardModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Rank", Width: 5},
		{Title: "Player", Width: 14},
		{Title: "Score", Width: 6},
		{Title: "Accuracy", Width: 9},
		{Title: "Key", Width: 4},
		{Title: "Target", Width: 7},
		{Title: "Time", Width: 7},
		{Title: "Date", Width: 13},
	}

	// Give spare width to the player column
	used := 0
	for _, c := range columns {
		used += c.Width + 2
	}
	if spare := m.width - 8 - used; spare > 0 {
		columns[1].Width += min(spare, 16)
	}

	height := m.height - 10 // Leave room for header, tabs, help, and margins
	if height < tableMinHeight {
		height = tableMinHeight
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	// Table styles
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// loadScores loads the rows of the current tab.
func (m *ScoreboardModel) loadScores() {
	m.scores = nil
	m.loadErr = nil

	if m.board == nil {
		m.updateTableRows()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	switch m.tab {
	case TabPersonal:
		if userID, ok := m.player.UserID(); ok {
			m.scores, m.loadErr = m.board.UserScores(ctx, userID, m.personalLimit)
		}
	default:
		m.scores, m.loadErr = m.board.TopScores(ctx, m.globalLimit)
	}
	if m.loadErr != nil {
		m.logger.Error("failed to load leaderboard", "tab", m.tab, "error", m.loadErr)
	}
	m.updateTableRows()
}

// updateTableRows updates the table with current scores.
func (m *ScoreboardModel) updateTableRows() {
	userID, _ := m.player.UserID()

	rows := make([]table.Row, len(m.scores))
	for i, s := range m.scores {
		name := s.Nickname
		if userID != "" && s.UserID == userID {
			name += " *"
		}
		rows[i] = table.Row{
			fmt.Sprintf("#%d", s.Rank),
			name,
			fmt.Sprintf("%d", s.Score),
			fmt.Sprintf("%.2f%%", s.AccuracyPct),
			s.TargetKey,
			formatMs(s.TargetMs),
			formatMs(s.ElapsedMs),
			s.CreatedAt.Local().Format("Jan 02 15:04"),
		}
	}
	m.table.SetRows(rows)

	// Reset cursor to top
	m.table.GotoTop()
}

// switchTab moves to the next or previous board.
func (m *ScoreboardModel) switchTab() {
	if m.tab == TabGlobal {
		m.tab = TabPersonal
	} else {
		m.tab = TabGlobal
	}
	m.loadScores()
}

// Init initializes the scoreboard model.
func (m ScoreboardModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the scoreboard.
func (m ScoreboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			m.goingBack = true
			return m, nil

		case key.Matches(msg, m.keys.NextTab), key.Matches(msg, m.keys.PrevTab):
			m.switchTab()
			return m, nil

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			// Pass to table for scrolling
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	return m, nil
}

// View renders the scoreboard.
func (m ScoreboardModel) View() string {
	if m.quitting || m.goingBack {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.MarginBottom(1).Render(centerText("LEADERBOARD", m.width)))
	b.WriteString("\n\n")
	b.WriteString(centerText(m.renderTabs(), m.width))
	b.WriteString("\n\n")

	tableStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	b.WriteString(tableStyle.Render(m.renderTableContent()))

	// Help bar
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderTabs renders the Global / Personal switcher.
func (m ScoreboardModel) renderTabs() string {
	tabStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	activeTabStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Padding(0, 1)

	tabs := make([]string, 0, 2)
	for _, t := range []BoardTab{TabGlobal, TabPersonal} {
		if t == m.tab {
			tabs = append(tabs, activeTabStyle.Render(t.String()))
		} else {
			tabs = append(tabs, tabStyle.Render(t.String()))
		}
	}
	return strings.Join(tabs, " ")
}

// renderTableContent renders the table or an explanatory message.
func (m ScoreboardModel) renderTableContent() string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true).
		Padding(2, 4)

	switch {
	case m.board == nil:
		return emptyStyle.Render("Leaderboard unavailable.\nNo score store is configured.")
	case m.loadErr != nil:
		return emptyStyle.Render("Could not load scores.")
	case m.tab == TabPersonal && !m.player.Authenticated():
		return emptyStyle.Render("Sign in to see your personal scores.")
	case len(m.scores) == 0:
		return emptyStyle.Render("No scores recorded yet.\nPlay a round to set a high score!")
	}

	return m.table.View()
}

// Tab returns the board currently shown.
func (m ScoreboardModel) Tab() BoardTab {
	return m.tab
}

// Scores returns the rows currently loaded.
func (m ScoreboardModel) Scores() []storage.ScoreEntry {
	return m.scores
}

// IsGoingBack returns true if user wants to go back to the game.
func (m ScoreboardModel) IsGoingBack() bool {
	return m.goingBack
}

// IsQuitting returns true if user wants to quit entirely.
func (m ScoreboardModel) IsQuitting() bool {
	return m.quitting
}
