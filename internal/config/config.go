// Package config provides YAML-based configuration loading for the focus game.
package config

import (
	"errors"
	"fmt"
	"time"
	"unicode"
)

// Config contains all tunables of the game, its frame clock and the score store.
type Config struct {
	Round       RoundConfig       `yaml:"round"`
	Frame       FrameConfig       `yaml:"frame"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
}

// RoundConfig defines how targets are drawn for a new round.
type RoundConfig struct {
	MinTargetMs int    `yaml:"min_target_ms"` // Inclusive lower bound of the target time
	MaxTargetMs int    `yaml:"max_target_ms"` // Exclusive upper bound of the target time
	Symbols     string `yaml:"symbols"`       // Alphabet the target symbol is drawn from
}

// FrameConfig defines the clock sampling rate while a round is playing.
type FrameConfig struct {
	Rate int `yaml:"rate"` // Frames per second
}

// Interval returns the time between two frames.
func (f FrameConfig) Interval() time.Duration {
	if f.Rate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(f.Rate)
}

// PersistenceConfig controls how finished rounds are forwarded to the store.
type PersistenceConfig struct {
	SubmitTimeout time.Duration `yaml:"submit_timeout"`
}

// LeaderboardConfig controls how many rows the leaderboards show.
type LeaderboardConfig struct {
	GlobalLimit   int `yaml:"global_limit"`
	PersonalLimit int `yaml:"personal_limit"`
}

// Validate checks the round parameters.
func (r RoundConfig) Validate() error {
	if r.MinTargetMs <= 0 {
		return fmt.Errorf("round: min_target_ms must be positive, got %d", r.MinTargetMs)
	}
	if r.MaxTargetMs <= r.MinTargetMs {
		return fmt.Errorf("round: max_target_ms (%d) must be greater than min_target_ms (%d)", r.MaxTargetMs, r.MinTargetMs)
	}
	if r.Symbols == "" {
		return errors.New("round: symbols must not be empty")
	}
	seen := make(map[rune]bool, len(r.Symbols))
	for _, s := range r.Symbols {
		// Key presses are trimmed and upper-cased before matching
		if unicode.IsSpace(s) || unicode.IsControl(s) || unicode.ToUpper(s) != s {
			return fmt.Errorf("round: symbol %q can never be typed, use upper-case printable symbols", s)
		}
		if seen[s] {
			return fmt.Errorf("round: duplicate symbol %q", s)
		}
		seen[s] = true
	}
	return nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := c.Round.Validate(); err != nil {
		return err
	}
	if c.Frame.Rate <= 0 {
		return fmt.Errorf("frame: rate must be positive, got %d", c.Frame.Rate)
	}
	if c.Persistence.SubmitTimeout <= 0 {
		return fmt.Errorf("persistence: submit_timeout must be positive, got %s", c.Persistence.SubmitTimeout)
	}
	if c.Leaderboard.GlobalLimit <= 0 || c.Leaderboard.PersonalLimit <= 0 {
		return errors.New("leaderboard: limits must be positive")
	}
	return nil
}
