// Package focus implements the timing game: a round draws a target time and a target
// symbol, a clock counts up, and the player presses the symbol as close to the target
// time as possible.
//
// The engine is pure game logic with no terminal dependency. A driver owns the frame
// loop and the input stream and calls Start, Tick and Press from a single goroutine.
package focus

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vovakirdan/focus/internal/config"
)

// ErrRoundInProgress is returned by Start while a round is still playing.
var ErrRoundInProgress = errors.New("focus: round in progress")

// Identity reports who is playing. It is read once, when a round finishes.
type Identity interface {
	Authenticated() bool
	UserID() (string, bool)
}

// Recorder persists finished rounds.
type Recorder interface {
	InsertScore(ctx context.Context, userID string, rec Record) (int64, error)
}

// Result is what a qualifying key press produces.
type Result struct {
	Outcome    Outcome
	Record     Record
	Advisory   Advisory
	Submission *Submission // nil when the record was not forwarded
}

// Engine is the round state machine: Idle -> Playing -> Finished -> Playing ...
// It is not safe for concurrent use.
type Engine struct {
	clock         clockwork.Clock
	rng           Random
	minMs, maxMs  int
	symbols       []rune
	identity      Identity
	recorder      Recorder
	logger        *log.Logger
	submitTimeout time.Duration
	roundCfg      *config.RoundConfig
	pending       sync.WaitGroup

	state     State
	round     Round
	outcome   Outcome
	record    Record
	advisory  Advisory
	forwarded bool
	armed     Frame
	seq       uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to measure elapsed time.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRandom sets the source of the target draws.
func WithRandom(r Random) Option {
	return func(e *Engine) { e.rng = r }
}

// WithRound sets the target window and symbol alphabet.
// An invalid configuration is ignored and the defaults stay in effect.
func WithRound(cfg config.RoundConfig) Option {
	return func(e *Engine) { e.roundCfg = &cfg }
}

// WithIdentity sets the identity consulted when a round finishes.
func WithIdentity(id Identity) Option {
	return func(e *Engine) { e.identity = id }
}

// WithRecorder sets the store finished rounds are forwarded to.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the logger used for submission results.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSubmitTimeout bounds each store call.
func WithSubmitTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.submitTimeout = d
		}
	}
}

// New creates an idle engine.
func New(opts ...Option) *Engine {
	def := config.DefaultConfig()
	e := &Engine{
		clock:         clockwork.NewRealClock(),
		minMs:         def.Round.MinTargetMs,
		maxMs:         def.Round.MaxTargetMs,
		symbols:       []rune(def.Round.Symbols),
		logger:        log.New(io.Discard),
		submitTimeout: def.Persistence.SubmitTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	if cfg := e.roundCfg; cfg != nil {
		if err := cfg.Validate(); err != nil {
			e.logger.Warn("ignoring round config", "error", err)
		} else {
			e.minMs = cfg.MinTargetMs
			e.maxMs = cfg.MaxTargetMs
			e.symbols = []rune(cfg.Symbols)
		}
	}
	if e.rng == nil {
		e.rng = NewRandom(0)
	}
	return e
}

// Start begins a new round and returns its first frame.
// It is valid from Idle and Finished; the previous round's frames, outcome and
// advisory are discarded.
func (e *Engine) Start() (Frame, error) {
	if e.state == StatePlaying {
		return Frame{}, ErrRoundInProgress
	}

	e.disarm()
	e.round = Round{
		ID:             uuid.New(),
		TargetDuration: drawTarget(e.rng, e.minMs, e.maxMs),
		TargetSymbol:   drawSymbol(e.rng, e.symbols),
		StartedAt:      e.clock.Now(),
	}
	e.outcome = Outcome{}
	e.record = Record{}
	e.advisory = AdvisoryNone
	e.forwarded = false
	e.state = StatePlaying

	return e.arm(), nil
}

// Tick handles a fired frame. If f is the live frame the elapsed time is resampled
// and the next frame is returned with true. Stale frames and frames outside Playing
// are dropped and return false; the driver must not reschedule them.
func (e *Engine) Tick(f Frame) (Frame, bool) {
	if e.state != StatePlaying || f.IsZero() || f != e.armed {
		return Frame{}, false
	}
	e.round.Elapsed = e.sample()
	return e.arm(), true
}

// Press handles a key press carrying a textual symbol.
// Only Playing reacts, and only to the target symbol (case-insensitive). A match
// freezes the clock, scores the round, moves to Finished and forwards the record.
// Any other input is ignored and reported with false.
func (e *Engine) Press(symbol string) (Result, bool) {
	if e.state != StatePlaying {
		return Result{}, false
	}
	r, ok := normalizeSymbol(symbol)
	if !ok || r != e.round.TargetSymbol {
		return Result{}, false
	}

	e.round.Elapsed = e.sample()
	e.disarm()
	e.state = StateFinished
	e.outcome = Score(e.round.TargetMs(), e.round.ElapsedMs())
	e.record = Record{
		RoundID:      e.round.ID,
		TargetMs:     e.round.TargetMs(),
		ElapsedMs:    e.round.ElapsedMs(),
		TargetSymbol: string(e.round.TargetSymbol),
		Score:        e.outcome.Score,
		AccuracyPct:  e.outcome.AccuracyPct,
		FinishedAt:   e.round.StartedAt.Add(e.round.Elapsed),
	}

	sub := e.forward()
	return Result{
		Outcome:    e.outcome,
		Record:     e.record,
		Advisory:   e.advisory,
		Submission: sub,
	}, true
}

// Flush waits for in-flight submissions, or until ctx is done.
func (e *Engine) Flush(ctx context.Context) error {
	done := make(chan struct{})
	// Outlives an expired ctx only until the submissions hit their own timeout
	go func() {
		e.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Round returns the current (or last) round.
func (e *Engine) Round() Round { return e.round }

// Elapsed returns the last sampled elapsed time of the current round.
func (e *Engine) Elapsed() time.Duration { return e.round.Elapsed }

// Outcome returns the outcome of the last round; ok is false unless Finished.
func (e *Engine) Outcome() (Outcome, bool) {
	return e.outcome, e.state == StateFinished
}

// Record returns the record of the last round; ok is false unless Finished.
func (e *Engine) Record() (Record, bool) {
	return e.record, e.state == StateFinished
}

// Advisory returns the advisory set when the last round finished.
func (e *Engine) Advisory() Advisory { return e.advisory }

// forward hands the record to the store at most once per round.
func (e *Engine) forward() *Submission {
	if e.forwarded {
		return nil
	}

	var userID string
	if e.identity != nil && e.identity.Authenticated() {
		userID, _ = e.identity.UserID()
	}
	if userID == "" {
		e.advisory = AdvisorySignIn
		e.logger.Debug("round finished without a signed-in user", "round", e.round.ID)
		return nil
	}
	if e.recorder == nil {
		e.advisory = AdvisoryNotSaved
		e.logger.Warn("no score store configured", "round", e.round.ID, "user", userID)
		return nil
	}

	e.forwarded = true
	e.advisory = AdvisorySaving
	return submit(e.recorder, e.submitTimeout, e.logger, &e.pending, userID, e.record)
}

// sample reads the clock relative to the round start.
func (e *Engine) sample() time.Duration {
	d := e.clock.Since(e.round.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// arm makes a new frame the only live one.
func (e *Engine) arm() Frame {
	e.seq++
	e.armed = Frame{round: e.round.ID, seq: e.seq}
	return e.armed
}

// disarm invalidates every outstanding frame.
func (e *Engine) disarm() {
	e.armed = Frame{}
}

// normalizeSymbol upper-cases a single-character payload.
func normalizeSymbol(s string) (rune, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if utf8.RuneCountInString(s) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, true
}
