package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/focus/internal/focus"
	"github.com/vovakirdan/focus/internal/identity"
	"github.com/vovakirdan/focus/internal/platform/tui"
	"github.com/vovakirdan/focus/internal/storage"
)

var flagPlayUser string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in this terminal",
	Long: `Start the game in this terminal.

Controls:
  Enter/Space  - Start / play again
  A-Z, 0-9     - Stop the clock (only the target key counts)
  Tab          - Leaderboard
  Esc/Ctrl+C   - Quit (Q when no round is running)

Without --user you play as a guest and rounds are not saved.

Examples:
  focus play
  focus play --user alice
  focus play --seed 42 --fps 30`,
	Args: cobra.NoArgs,
	Run:  runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagPlayUser, "user", "", "Sign in with this nickname to save scores")
}

func runPlay(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)

	// The alt screen owns stdout, so logs go to a file
	logFile := openLogFile()
	defer logFile.Close()
	logger := newLogger(logFile, "focus")

	// Open score storage
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open scores database: %v\n", err)
		// Continue without storage - game still works
		store = nil
	}

	var player identity.Identity = identity.Anonymous{}
	if flagPlayUser != "" {
		if store == nil {
			fmt.Fprintln(os.Stderr, "Warning: no scores database, playing as guest")
			player = identity.Anonymous{Nickname: flagPlayUser}
		} else {
			user, signErr := identity.SignIn(context.Background(), store, flagPlayUser)
			if signErr != nil {
				store.Close()
				fmt.Fprintf(os.Stderr, "Error: %v\n", signErr)
				os.Exit(1)
			}
			player = user
		}
	}

	opts := []focus.Option{
		focus.WithIdentity(player),
		focus.WithRound(cfg.Round),
		focus.WithSubmitTimeout(cfg.Persistence.SubmitTimeout),
		focus.WithLogger(logger),
		focus.WithRandom(focus.NewRandom(flagSeed)),
	}
	var board tui.Leaderboard
	if store != nil {
		opts = append(opts, focus.WithRecorder(store))
		board = store
	}
	engine := focus.New(opts...)

	width, height := 80, 24 // Defaults
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	game := tui.NewGameModel(engine, player, cfg.Frame.Interval())
	model := tui.NewSessionModel(game, board, cfg.Leaderboard).
		WithSize(width, height).
		WithLogger(logger)

	// Run the game
	runErr := tui.Run(model)

	// Let the last submission land before closing the store
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Persistence.SubmitTimeout)
	if flushErr := engine.Flush(ctx); flushErr != nil {
		logger.Warn("exiting with pending submissions", "error", flushErr)
	}
	cancel()

	if store != nil {
		store.Close()
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running game: %v\n", runErr)
		os.Exit(1)
	}
}
