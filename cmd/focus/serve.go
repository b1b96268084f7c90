package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/focus/internal/api"
	"github.com/vovakirdan/focus/internal/platform/tui"
	"github.com/vovakirdan/focus/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var (
	flagSSHAddr     string
	flagHTTPAddr    string
	flagHostKey     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SSH game server and HTTP leaderboard",
	Long: `Start an SSH server that lets users connect and play, and an HTTP server
that serves the shared leaderboard as JSON.

Players who connect with an SSH key are signed in and their scores are saved.
Everyone else plays as a guest.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.focus/host_key

Examples:
  focus serve                           # SSH on :23234, HTTP on :8080
  focus serve --ssh :2222               # Listen on port 2222
  focus serve --http ""                 # SSH only
  focus serve --host-key ./my_host_key  # Use specific host key

Users can connect with:
  ssh localhost -p 23234`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", ":23234", "SSH server address (host:port)")
	serveCmd.Flags().StringVar(&flagHTTPAddr, "http", ":8080", "HTTP leaderboard address (empty to disable)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
}

func runServe(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)
	sshLogger := newLogger(os.Stderr, "focus-ssh")
	httpLogger := newLogger(os.Stderr, "focus-http")

	store, err := storage.Open(flagDBPath)
	if err != nil {
		sshLogger.Warn("could not open scores database, scores will not be saved", "error", err)
		// Continue without storage
		store = nil
	}

	sshServer, err := tui.NewSSHServer(tui.SSHServerConfig{
		Address:     flagSSHAddr,
		HostKeyPath: flagHostKey,
		IdleTimeout: time.Duration(flagIdleTimeout) * time.Minute,
		Game:        cfg,
		Seed:        flagSeed,
	}, store, sshLogger)
	if err != nil {
		if store != nil {
			store.Close()
		}
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	var httpServer *api.Server
	switch {
	case flagHTTPAddr == "":
	case store == nil:
		httpLogger.Warn("leaderboard disabled without a scores database")
	default:
		httpServer = api.NewServer(store, flagHTTPAddr, cfg.Leaderboard, httpLogger)
	}

	fmt.Printf("Starting focus SSH server on %s\n", sshServer.Addr())
	if httpServer != nil {
		fmt.Printf("Serving leaderboard on http://%s/api/v1/leaderboard\n", httpServer.Addr())
	}
	fmt.Println("Press Ctrl+C to stop")

	err = serve(cmd.Context(), sshServer, httpServer)

	if store != nil {
		err = multierr.Append(err, store.Close())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// server is what serve runs and stops.
type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// serve runs the servers until a signal arrives or one of them fails, then shuts
// all of them down.
func serve(parent context.Context, sshSrv *tui.SSHServer, httpSrv *api.Server) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	servers := []server{sshSrv}
	if httpSrv != nil {
		servers = append(servers, httpSrv)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(srv.ListenAndServe)
	}

	// Shut everything down on signal or first failure
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var err error
		for _, srv := range servers {
			err = multierr.Append(err, srv.Shutdown(shutdownCtx))
		}
		return err
	})

	return g.Wait()
}
