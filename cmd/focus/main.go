// focus is a terminal timing game: watch the clock count up and press the target key
// exactly when it reaches the target time.
//
// Usage:
//
//	focus play               - Play in this terminal
//	focus scores             - Show the leaderboard
//	focus serve              - Start the SSH game server and HTTP leaderboard
//
// Global flags:
//
//	--fps <rate>       - Set frame rate (default: 60)
//	--seed <value>     - Set RNG seed for reproducible rounds
//	--db <path>        - Set database path (default: ~/.focus/scores.db)
//	--config <path>    - Load settings from a YAML file
//	--log-level <lvl>  - debug, info, warn or error
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/focus/internal/config"
)

var (
	// Global flags
	flagFPS        int
	flagSeed       int64
	flagDBPath     string
	flagConfigPath string
	flagLogLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "focus",
	Short: "Focus - a timing game for your terminal",
	Long: `Focus draws a target time between 3 and 7 seconds and a target key.
The clock counts up; press the key as close to the target time as you can.

Available commands:
  play     - Play in this terminal
  scores   - View the leaderboard
  serve    - Start the SSH game server and HTTP leaderboard

Examples:
  focus play
  focus play --user alice
  focus scores --limit 10
  focus serve --ssh :2222 --http :8080`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().IntVar(&flagFPS, "fps", 60, "Frame rate (clock samples per second)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.focus/scores.db", "Path to scores database")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to custom config YAML")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) config.Config {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cmd.Flags().Changed("fps") {
		cfg.Frame.Rate = flagFPS
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger builds a logger for one component.
func newLogger(w io.Writer, prefix string) *log.Logger {
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           level,
	})
}

// openLogFile opens ~/.focus/focus.log for appending.
// Falls back to discarding when the file cannot be opened.
func openLogFile() io.WriteCloser {
	home, err := os.UserHomeDir()
	if err != nil {
		return nopCloser{io.Discard}
	}
	dir := filepath.Join(home, ".focus")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nopCloser{io.Discard}
	}
	f, err := os.OpenFile(filepath.Join(dir, "focus.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nopCloser{io.Discard}
	}
	return f
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
