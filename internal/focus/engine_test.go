package focus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vovakirdan/focus/internal/config"
)

// seqRandom replays a fixed sequence of draws.
type seqRandom struct {
	vals []int
	i    int
}

func (s *seqRandom) IntN(n int) int {
	v := s.vals[s.i%len(s.vals)] % n
	s.i++
	return v
}

type stubIdentity struct {
	id string
}

func (s stubIdentity) Authenticated() bool     { return s.id != "" }
func (s stubIdentity) UserID() (string, bool) { return s.id, s.id != "" }

type recordedCall struct {
	userID string
	rec    Record
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
	err   error
	gate  chan struct{} // if set, InsertScore blocks until closed
}

func (f *fakeRecorder) InsertScore(ctx context.Context, userID string, rec Record) (int64, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{userID: userID, rec: rec})
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.calls)), nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// newTestEngine returns an engine whose first round targets 5000ms and symbol 'A'
// (draws 2000 and 0), and whose second round targets 3001ms and symbol 'B'.
func newTestEngine(clock clockwork.Clock, opts ...Option) *Engine {
	base := []Option{
		WithClock(clock),
		WithRandom(&seqRandom{vals: []int{2000, 0, 1, 1}}),
	}
	return New(append(base, opts...)...)
}

func TestEngineStartsIdle(t *testing.T) {
	e := newTestEngine(clockwork.NewFakeClock())

	if e.State() != StateIdle {
		t.Fatalf("new engine state = %s, expected Idle", e.State())
	}
	if _, ok := e.Outcome(); ok {
		t.Error("idle engine should have no outcome")
	}
	if _, ok := e.Press("A"); ok {
		t.Error("key press in Idle should be ignored")
	}
	if e.State() != StateIdle {
		t.Errorf("key press moved Idle to %s", e.State())
	}
}

func TestEngineStartDrawsTarget(t *testing.T) {
	e := newTestEngine(clockwork.NewFakeClock())

	f, err := e.Start()
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if f.IsZero() {
		t.Fatal("Start() returned the zero frame")
	}
	if e.State() != StatePlaying {
		t.Errorf("state = %s, expected Playing", e.State())
	}

	r := e.Round()
	if r.TargetDuration != 5000*time.Millisecond {
		t.Errorf("target = %s, expected 5s", r.TargetDuration)
	}
	if r.TargetSymbol != 'A' {
		t.Errorf("symbol = %q, expected 'A'", r.TargetSymbol)
	}
	if r.Elapsed != 0 {
		t.Errorf("elapsed = %s, expected 0", r.Elapsed)
	}
	if f.Round() != r.ID {
		t.Error("frame is not bound to the current round")
	}
}

func TestEngineStartWhilePlaying(t *testing.T) {
	e := newTestEngine(clockwork.NewFakeClock())
	if _, err := e.Start(); err != nil {
		t.Fatal(err)
	}
	before := e.Round()

	if _, err := e.Start(); !errors.Is(err, ErrRoundInProgress) {
		t.Fatalf("Start() while playing error = %v, expected ErrRoundInProgress", err)
	}
	if e.Round() != before {
		t.Error("rejected Start() should not change the round")
	}
}

func TestEngineTickSamplesClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e := newTestEngine(clock)
	f, _ := e.Start()

	for i := 1; i <= 3; i++ {
		clock.Advance(16 * time.Millisecond)
		next, ok := e.Tick(f)
		if !ok {
			t.Fatalf("tick %d: live frame was dropped", i)
		}
		if want := time.Duration(i) * 16 * time.Millisecond; e.Elapsed() != want {
			t.Errorf("tick %d: elapsed = %s, expected %s", i, e.Elapsed(), want)
		}
		f = next
	}
}

func TestEngineDropsStaleFrames(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e := newTestEngine(clock)
	first, _ := e.Start()

	second, ok := e.Tick(first)
	if !ok {
		t.Fatal("first frame should be live")
	}

	// Re-delivering an already consumed frame must not resample
	clock.Advance(time.Second)
	if _, ok := e.Tick(first); ok {
		t.Error("consumed frame should be stale")
	}
	if e.Elapsed() != 0 {
		t.Errorf("stale frame changed elapsed to %s", e.Elapsed())
	}
	if _, ok := e.Tick(Frame{}); ok {
		t.Error("zero frame should be dropped")
	}
	if _, ok := e.Tick(second); !ok {
		t.Error("latest frame should be live")
	}
}

func TestEngineIgnoresNonMatchingInput(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e := newTestEngine(clock)
	f, _ := e.Start()

	for _, key := range []string{"B", "z", "0", "", " ", "AA", "enter", "é"} {
		if _, ok := e.Press(key); ok {
			t.Errorf("Press(%q) should not match target 'A'", key)
		}
	}
	if e.State() != StatePlaying {
		t.Fatalf("non-matching input moved state to %s", e.State())
	}
	if e.Elapsed() != 0 {
		t.Errorf("non-matching input changed elapsed to %s", e.Elapsed())
	}

	// The frame chain is untouched
	clock.Advance(100 * time.Millisecond)
	if _, ok := e.Tick(f); !ok {
		t.Error("frame should still be live after ignored input")
	}
	if e.Elapsed() != 100*time.Millisecond {
		t.Errorf("elapsed = %s, expected 100ms", e.Elapsed())
	}
}

func TestEngineMatchFinishesRound(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e := newTestEngine(clock)
	f, _ := e.Start()

	clock.Advance(5000 * time.Millisecond)
	f, _ = e.Tick(f)
	clock.Advance(100 * time.Millisecond)

	res, ok := e.Press("a") // case-insensitive
	if !ok {
		t.Fatal("Press(\"a\") should match target 'A'")
	}
	if e.State() != StateFinished {
		t.Fatalf("state = %s, expected Finished", e.State())
	}

	// Frozen at the moment of the match, not the last frame sample
	if e.Elapsed() != 5100*time.Millisecond {
		t.Errorf("elapsed = %s, expected 5.1s", e.Elapsed())
	}
	if res.Outcome.AccuracyPct != 98 || res.Outcome.Score != 980 {
		t.Errorf("outcome = %+v, expected 98%% / 980", res.Outcome)
	}

	rec := res.Record
	if rec.TargetMs != 5000 || rec.ElapsedMs != 5100 || rec.TargetSymbol != "A" {
		t.Errorf("record = %+v, expected 5000/5100/A", rec)
	}
	if rec.Score != 980 || rec.AccuracyPct != 98 {
		t.Errorf("record score = %d/%v, expected 980/98", rec.Score, rec.AccuracyPct)
	}
	if rec.RoundID != e.Round().ID {
		t.Error("record is not bound to the round")
	}

	// Clock is stopped
	clock.Advance(time.Second)
	if _, ok := e.Tick(f); ok {
		t.Error("frame should be stale after the round finished")
	}
	if e.Elapsed() != 5100*time.Millisecond {
		t.Errorf("elapsed moved after finish: %s", e.Elapsed())
	}

	// Finished ignores input
	if _, ok := e.Press("A"); ok {
		t.Error("key press in Finished should be ignored")
	}
	if out, ok := e.Outcome(); !ok || out != res.Outcome {
		t.Errorf("Outcome() = %+v, %v; expected %+v, true", out, ok, res.Outcome)
	}
}

func TestEngineRestartResetsRound(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e := newTestEngine(clock)
	oldFrame, _ := e.Start()
	first := e.Round()

	clock.Advance(2 * time.Second)
	e.Press("A")

	f, err := e.Start()
	if err != nil {
		t.Fatalf("Start() from Finished failed: %v", err)
	}
	second := e.Round()

	if second.ID == first.ID {
		t.Error("restart should create a new round")
	}
	if second.Elapsed != 0 {
		t.Errorf("restart elapsed = %s, expected 0", second.Elapsed)
	}
	if second.TargetDuration != 3001*time.Millisecond || second.TargetSymbol != 'B' {
		t.Errorf("restart drew %s/%q, expected 3.001s/'B'", second.TargetDuration, second.TargetSymbol)
	}
	if _, ok := e.Outcome(); ok {
		t.Error("restart should clear the outcome")
	}
	if e.Advisory() != AdvisoryNone {
		t.Errorf("restart advisory = %s, expected none", e.Advisory())
	}

	// A tick scheduled by the previous round cannot resurrect it
	if _, ok := e.Tick(oldFrame); ok {
		t.Error("previous round's frame should be stale")
	}
	if _, ok := e.Tick(f); !ok {
		t.Error("new round's frame should be live")
	}
}

func TestEngineAnonymousFinishDoesNotForward(t *testing.T) {
	rec := &fakeRecorder{}
	e := newTestEngine(clockwork.NewFakeClock(), WithRecorder(rec))
	e.Start()

	res, ok := e.Press("A")
	if !ok {
		t.Fatal("Press should match")
	}
	if res.Submission != nil {
		t.Error("anonymous round should not be submitted")
	}
	if res.Advisory != AdvisorySignIn {
		t.Errorf("advisory = %s, expected sign-in", res.Advisory)
	}
	if rec.count() != 0 {
		t.Errorf("recorder called %d times, expected 0", rec.count())
	}
}

func TestEngineForwardsOncePerRound(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &fakeRecorder{}
	e := newTestEngine(clock, WithRecorder(rec), WithIdentity(stubIdentity{id: "user-1"}))
	e.Start()
	clock.Advance(4900 * time.Millisecond)

	res, _ := e.Press("A")
	if res.Submission == nil {
		t.Fatal("signed-in round should be submitted")
	}
	if res.Advisory != AdvisorySaving {
		t.Errorf("advisory = %s, expected saving", res.Advisory)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := res.Submission.Wait(ctx); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	// Further presses are ignored, so nothing is forwarded twice
	e.Press("A")
	if err := e.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 1 {
		t.Fatalf("recorder called %d times, expected 1", rec.count())
	}

	got := rec.calls[0]
	if got.userID != "user-1" {
		t.Errorf("user = %q, expected user-1", got.userID)
	}
	if got.rec != res.Record {
		t.Errorf("recorded %+v, expected %+v", got.rec, res.Record)
	}
}

func TestEngineSubmissionFailureIsNonFatal(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("database is locked")}
	e := newTestEngine(clockwork.NewFakeClock(), WithRecorder(rec), WithIdentity(stubIdentity{id: "user-1"}))
	e.Start()

	res, _ := e.Press("A")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := res.Submission.Wait(ctx); err == nil {
		t.Fatal("submission should report the store error")
	}
	if res.Submission.Err() == nil {
		t.Error("Err() should be set once done")
	}
	if e.State() != StateFinished {
		t.Errorf("state = %s after failed submission, expected Finished", e.State())
	}
	if _, err := e.Start(); err != nil {
		t.Errorf("Start() after failed submission: %v", err)
	}
}

func TestEngineSubmissionDoesNotBlockReplay(t *testing.T) {
	rec := &fakeRecorder{gate: make(chan struct{})}
	e := newTestEngine(clockwork.NewFakeClock(), WithRecorder(rec), WithIdentity(stubIdentity{id: "user-1"}))
	e.Start()

	res, _ := e.Press("A")
	if res.Submission.Err() != nil {
		t.Error("pending submission should have no error yet")
	}
	select {
	case <-res.Submission.Done():
		t.Fatal("submission finished before the store answered")
	default:
	}

	if _, err := e.Start(); err != nil {
		t.Fatalf("Start() blocked by pending submission: %v", err)
	}
	if e.State() != StatePlaying {
		t.Errorf("state = %s, expected Playing", e.State())
	}

	close(rec.gate)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.Flush(ctx); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("recorder called %d times, expected 1", rec.count())
	}
}

func TestEngineSignedInWithoutStore(t *testing.T) {
	e := newTestEngine(clockwork.NewFakeClock(), WithIdentity(stubIdentity{id: "user-1"}))
	e.Start()

	res, _ := e.Press("A")
	if res.Submission != nil {
		t.Error("no store: nothing to submit")
	}
	if res.Advisory != AdvisoryNotSaved {
		t.Errorf("advisory = %s, expected not saved", res.Advisory)
	}
}

func TestEngineWithRound(t *testing.T) {
	cfg := config.RoundConfig{MinTargetMs: 100, MaxTargetMs: 101, Symbols: "X"}
	e := New(WithClock(clockwork.NewFakeClock()), WithRound(cfg))
	e.Start()

	r := e.Round()
	if r.TargetDuration != 100*time.Millisecond || r.TargetSymbol != 'X' {
		t.Errorf("round = %s/%q, expected 100ms/'X'", r.TargetDuration, r.TargetSymbol)
	}
	if _, ok := e.Press("x"); !ok {
		t.Error("Press(\"x\") should match target 'X'")
	}

	bad := config.RoundConfig{MinTargetMs: 10, MaxTargetMs: 5, Symbols: "A"}
	e = New(WithClock(clockwork.NewFakeClock()), WithRound(bad), WithRandom(&seqRandom{vals: []int{0}}))
	e.Start()
	if e.Round().TargetDuration != 3000*time.Millisecond {
		t.Errorf("invalid round config should fall back to defaults, got %s", e.Round().TargetDuration)
	}

	// An alphabet no key press can match falls back to the defaults
	lower := config.RoundConfig{MinTargetMs: 100, MaxTargetMs: 101, Symbols: "abc"}
	e = New(WithClock(clockwork.NewFakeClock()), WithRound(lower), WithRandom(&seqRandom{vals: []int{0, 0}}))
	e.Start()
	target := e.Round().TargetSymbol
	if target != 'A' {
		t.Fatalf("lowercase alphabet should fall back to defaults, drew %q", target)
	}
	if _, ok := e.Press(string(target)); !ok || e.State() != StateFinished {
		t.Errorf("Press(%q) should finish the round, state = %s", target, e.State())
	}
}

func TestNewRandomDeterministic(t *testing.T) {
	a, b := NewRandom(42), NewRandom(42)
	for i := 0; i < 100; i++ {
		if x, y := a.IntN(4000), b.IntN(4000); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestDrawsStayInRange(t *testing.T) {
	r := NewRandom(7)
	symbols := []rune(config.DefaultSymbols)
	seen := make(map[rune]bool)

	for i := 0; i < 5000; i++ {
		d := drawTarget(r, 3000, 7000)
		if d < 3000*time.Millisecond || d >= 7000*time.Millisecond {
			t.Fatalf("target %s out of [3s, 7s)", d)
		}
		seen[drawSymbol(r, symbols)] = true
	}
	if len(seen) != len(symbols) {
		t.Errorf("saw %d distinct symbols in 5000 draws, expected %d", len(seen), len(symbols))
	}
}
