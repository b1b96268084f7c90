package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	gossh "golang.org/x/crypto/ssh"

	"github.com/vovakirdan/focus/internal/config"
	"github.com/vovakirdan/focus/internal/focus"
	"github.com/vovakirdan/focus/internal/identity"
	"github.com/vovakirdan/focus/internal/storage"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.focus/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Game holds round, frame and persistence settings for every session.
	Game config.Config

	// Seed fixes the draws of every session when non-zero.
	Seed int64
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
		Game:        config.DefaultConfig(),
	}
}

// sessionKey stores the per-session state in the SSH context.
type sessionKey struct{}

// sessionState is what sessionMiddleware hands to teaHandler.
type sessionState struct {
	player identity.Identity
	engine *focus.Engine
}

// SSHServer wraps a Wish SSH server for the game.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	store  *storage.Store
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
// store may be nil, in which case every session plays without persistence.
func NewSSHServer(cfg SSHServerConfig, store *storage.Store, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "focus-ssh",
		})
	}

	srv := &SSHServer{
		config: cfg,
		store:  store,
		logger: logger,
	}

	// Resolve host key path
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".focus", "host_key")
	}

	// Ensure host key directory exists
	hostKeyDir := filepath.Dir(hostKeyPath)
	if mkdirErr := os.MkdirAll(hostKeyDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		// Key holders are signed in; everyone else plays as a guest
		wish.WithPublicKeyAuth(func(ssh.Context, ssh.PublicKey) bool { return true }),
		wish.WithKeyboardInteractiveAuth(func(ssh.Context, gossh.KeyboardInteractiveChallenge) bool { return true }),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.sessionMiddleware,
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// sessionMiddleware resolves the player and builds their engine. Once the session
// ends it waits for the engine's pending submissions.
func (s *SSHServer) sessionMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		var key gossh.PublicKey
		if pk := sshSession.PublicKey(); pk != nil {
			key = pk
		}

		var dir identity.Directory
		if s.store != nil {
			dir = s.store
		}

		player, err := identity.FromPublicKey(sshSession.Context(), dir, sshSession.User(), key)
		if err != nil {
			s.logger.Warn("cannot resolve player, continuing as guest", "user", sshSession.User(), "error", err)
			player = identity.Anonymous{Nickname: sshSession.User()}
		}

		engine := s.newEngine(player)
		sshSession.Context().SetValue(sessionKey{}, &sessionState{player: player, engine: engine})

		next(sshSession)

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Game.Persistence.SubmitTimeout)
		defer cancel()
		if err := engine.Flush(ctx); err != nil {
			s.logger.Warn("session ended with pending submissions", "user", player.Name(), "error", err)
		}
	}
}

// newEngine builds an idle engine for one player.
func (s *SSHServer) newEngine(player identity.Identity) *focus.Engine {
	opts := []focus.Option{
		focus.WithIdentity(player),
		focus.WithRound(s.config.Game.Round),
		focus.WithSubmitTimeout(s.config.Game.Persistence.SubmitTimeout),
		focus.WithLogger(s.logger.With("user", player.Name())),
		focus.WithRandom(focus.NewRandom(s.config.Seed)),
	}
	if s.store != nil {
		opts = append(opts, focus.WithRecorder(s.store))
	}
	return focus.New(opts...)
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	state, ok := sshSession.Context().Value(sessionKey{}).(*sessionState)
	if !ok {
		s.logger.Error("session state missing", "user", sshSession.User())
		return nil, nil
	}

	var scores Leaderboard
	if s.store != nil {
		scores = s.store
	}

	game := NewGameModel(state.engine, state.player, s.config.Game.Frame.Interval())
	model := NewSessionModel(game, scores, s.config.Game.Leaderboard).
		WithSize(pty.Window.Width, pty.Window.Height).
		WithLogger(s.logger.With("user", state.player.Name()))

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
			"key", sshSession.PublicKey() != nil,
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until it is shut down.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return fmt.Errorf("ssh server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
