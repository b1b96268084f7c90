// Package tui provides the Bubble Tea integration for the focus game.
// It drives the engine's frame loop, feeds it key presses and renders the views.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/focus/internal/focus"
)

// FrameMsg is sent when a scheduled frame fires.
type FrameMsg struct {
	Frame focus.Frame
}

// frameCmd schedules f to fire after one frame interval.
func frameCmd(interval time.Duration, f focus.Frame) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return FrameMsg{Frame: f}
	})
}
