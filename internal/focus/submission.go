package focus

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Submission is a detached attempt to persist one record.
// The engine never waits for it; drivers may observe it to update the advisory.
type Submission struct {
	UserID string
	Record Record

	done chan struct{}
	err  error
}

// Done returns a channel that is closed once the store call has returned.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Err returns the store error. It is nil until Done is closed.
func (s *Submission) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the submission completes or ctx is done.
func (s *Submission) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submit starts the store call on its own goroutine and returns immediately.
func submit(rec Recorder, timeout time.Duration, logger *log.Logger, wg *sync.WaitGroup, userID string, r Record) *Submission {
	s := &Submission{
		UserID: userID,
		Record: r,
		done:   make(chan struct{}),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(s.done)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		id, err := rec.InsertScore(ctx, userID, r)
		if err != nil {
			s.err = err
			logger.Error("score not saved",
				"round", r.RoundID,
				"user", userID,
				"score", r.Score,
				"error", err,
			)
			return
		}
		logger.Debug("score saved", "round", r.RoundID, "user", userID, "id", id, "score", r.Score)
	}()

	return s
}
