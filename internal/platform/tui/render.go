package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/focus/internal/focus"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229"))
	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
	readyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("245"))
	timerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("141"))
	targetStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))
	symbolStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Padding(0, 2)
	scoreStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// advisoryStyles colours each advisory.
var advisoryStyles = map[focus.Advisory]lipgloss.Style{
	focus.AdvisorySignIn:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	focus.AdvisorySaving:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	focus.AdvisorySaved:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	focus.AdvisoryNotSaved: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
}

// formatSeconds renders a duration as seconds with two decimals, e.g. "4.27s".
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", float64(d.Milliseconds())/1000)
}

// formatMs renders whole milliseconds the same way.
func formatMs(ms int64) string {
	return formatSeconds(time.Duration(ms) * time.Millisecond)
}

func renderGame(m GameModel) string {
	var body string
	switch m.engine.State() {
	case focus.StatePlaying:
		body = renderPlaying(m.engine)
	case focus.StateFinished:
		body = renderFinished(m)
	default:
		body = renderIdle()
	}

	header := titleStyle.Render("FOCUS") + "  " + playerStyle.Render(m.player.Name())
	footer := helpStyle.Render(m.help.View(m.keys))
	content := lipgloss.JoinVertical(lipgloss.Center, header, "", body, "", footer)

	if m.width <= 0 || m.height <= 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func renderIdle() string {
	howTo := []string{
		"How to play:",
		"  Watch the timer count up",
		"  Press the target key exactly when the timer reaches the target time",
		"  The closer you are, the higher your score!",
		"  Sign in to save your scores to the leaderboard",
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		readyStyle.Render("Ready?"),
		"",
		dimStyle.Render(strings.Join(howTo, "\n")),
		"",
		"Press enter to start",
	)
}

func renderPlaying(e *focus.Engine) string {
	r := e.Round()
	return lipgloss.JoinVertical(lipgloss.Center,
		timerStyle.Render(formatSeconds(r.Elapsed)),
		"",
		"Target: "+targetStyle.Render(formatSeconds(r.TargetDuration)),
		"",
		"Press: "+symbolStyle.Render(string(r.TargetSymbol)),
	)
}

func renderFinished(m GameModel) string {
	rec, _ := m.engine.Record()

	lines := []string{
		scoreStyle.Render(fmt.Sprintf("Score: %d", rec.Score)),
		fmt.Sprintf("Accuracy: %.2f%%", rec.AccuracyPct),
		dimStyle.Render(fmt.Sprintf("Target: %s | Your Time: %s", formatMs(rec.TargetMs), formatMs(rec.ElapsedMs))),
	}
	if style, ok := advisoryStyles[m.advisory]; ok {
		lines = append(lines, "", style.Render(m.advisory.String()))
	}
	lines = append(lines, "", "Press enter to play again")

	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

// centerText centers text horizontally within the given width.
func centerText(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	padding := (width - w) / 2
	return strings.Repeat(" ", padding) + text
}
