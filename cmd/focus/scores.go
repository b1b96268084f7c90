package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/focus/internal/identity"
	"github.com/vovakirdan/focus/internal/storage"
)

var (
	flagScoresUser  string
	flagScoresLimit int
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show the leaderboard",
	Long: `Display the global leaderboard, or one player's personal best rounds.

Examples:
  focus scores
  focus scores --limit 10
  focus scores --user alice`,
	Args: cobra.NoArgs,
	Run:  runScores,
}

func init() {
	scoresCmd.Flags().StringVar(&flagScoresUser, "user", "", "Show personal scores of this nickname")
	scoresCmd.Flags().IntVar(&flagScoresLimit, "limit", 0, "Number of rows (default from config)")
}

func runScores(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)

	// Open score storage
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening scores database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	title := "Leaderboard"
	limit := cfg.Leaderboard.GlobalLimit
	var (
		scores []storage.ScoreEntry
		stats  storage.Stats
		userID string
	)

	if flagScoresUser != "" {
		nick, nickErr := identity.NormalizeNickname(flagScoresUser)
		if nickErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", nickErr)
			os.Exit(1)
		}
		user, findErr := findLocalUser(ctx, store, nick)
		if findErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", findErr)
			os.Exit(1)
		}
		userID = user.ID
		title = fmt.Sprintf("Personal scores - %s", user.Nickname)
		limit = cfg.Leaderboard.PersonalLimit
	}
	if flagScoresLimit > 0 {
		limit = flagScoresLimit
	}

	if userID != "" {
		scores, err = store.UserScores(ctx, userID, limit)
	} else {
		scores, err = store.TopScores(ctx, limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving scores: %v\n", err)
		os.Exit(1)
	}

	// Display scores
	fmt.Println(title)
	fmt.Println()

	if len(scores) == 0 {
		fmt.Println("No scores recorded yet.")
		fmt.Println()
		fmt.Println("Play 'focus play --user <name>' to set the first high score!")
		return
	}

	// Print header
	fmt.Printf("  %-4s  %-16s  %5s  %8s  %-3s  %7s  %7s  %s\n", "Rank", "Player", "Score", "Accuracy", "Key", "Target", "Time", "Date")
	fmt.Printf("  %-4s  %-16s  %5s  %8s  %-3s  %7s  %7s  %s\n", "----", "------", "-----", "--------", "---", "------", "----", "----")

	// Print scores
	for _, e := range scores {
		fmt.Printf("  %-4d  %-16s  %5d  %7.2f%%  %-3s  %6.2fs  %6.2fs  %s\n",
			e.Rank,
			e.Nickname,
			e.Score,
			e.AccuracyPct,
			e.TargetKey,
			float64(e.TargetMs)/1000,
			float64(e.ElapsedMs)/1000,
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}

	// Show summary
	stats, err = store.Stats(ctx, userID)
	if err == nil {
		fmt.Println()
		fmt.Printf("Games: %d  Best: %d  Average: %.0f  Avg accuracy: %.2f%%\n",
			stats.GamesPlayed, stats.BestScore, stats.AvgScore, stats.AvgAccuracy)
	}
}

// findLocalUser looks up a nickname-only user without creating one.
func findLocalUser(ctx context.Context, store *storage.Store, nickname string) (identity.User, error) {
	user, err := store.UserByNickname(ctx, nickname)
	if errors.Is(err, storage.ErrNotFound) {
		return identity.User{}, fmt.Errorf("unknown player %q", nickname)
	}
	return user, err
}
