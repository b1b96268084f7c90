package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/focus.yaml
var defaultFocusYAML []byte

// DefaultSymbols is the alphabet a target symbol is drawn from: A-Z and 0-9.
const DefaultSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Round: RoundConfig{
			MinTargetMs: 3000,
			MaxTargetMs: 7000,
			Symbols:     DefaultSymbols,
		},
		Frame: FrameConfig{
			Rate: 60,
		},
		Persistence: PersistenceConfig{
			SubmitTimeout: 5 * time.Second,
		},
		Leaderboard: LeaderboardConfig{
			GlobalLimit:   50,
			PersonalLimit: 20,
		},
	}
}
