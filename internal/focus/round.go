package focus

import (
	"time"

	"github.com/google/uuid"
)

// Round is one play-through from start to the qualifying key press.
type Round struct {
	ID             uuid.UUID
	TargetDuration time.Duration // Drawn uniformly from the configured window
	TargetSymbol   rune          // Drawn uniformly from the configured alphabet
	StartedAt      time.Time     // Clock reading when the round began
	Elapsed        time.Duration // Last clock sample, frozen once the round finishes
}

// TargetMs returns the target duration in whole milliseconds.
func (r Round) TargetMs() int64 {
	return r.TargetDuration.Milliseconds()
}

// ElapsedMs returns the elapsed time in whole milliseconds.
func (r Round) ElapsedMs() int64 {
	return r.Elapsed.Milliseconds()
}

// Record is the completed-round tuple handed to the score store.
type Record struct {
	RoundID      uuid.UUID `json:"round_id"`
	TargetMs     int64     `json:"target_time"`
	ElapsedMs    int64     `json:"actual_time"`
	TargetSymbol string    `json:"target_key"`
	Score        int       `json:"score"`
	AccuracyPct  float64   `json:"accuracy"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Frame identifies one scheduled clock sample.
// The driver schedules a callback for each frame the engine hands out and passes the
// frame back to Engine.Tick when it fires. Only the most recently armed frame is live;
// every other frame is stale and ignored, which is how pending ticks get cancelled.
type Frame struct {
	round uuid.UUID
	seq   uint64
}

// Round returns the id of the round the frame was armed for.
func (f Frame) Round() uuid.UUID {
	return f.round
}

// IsZero reports whether f is the empty frame.
func (f Frame) IsZero() bool {
	return f.seq == 0
}
