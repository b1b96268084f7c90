// Package storage provides SQLite-based persistence for users and game scores.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/focus/internal/focus"
	"github.com/vovakirdan/focus/internal/identity"
)

// Default result sizes when a caller passes a non-positive limit.
const (
	DefaultGlobalLimit   = 50
	DefaultPersonalLimit = 20
	maxLimit             = 500
)

// timeLayout is the on-disk timestamp format. Fixed width, so text order is time order.
const timeLayout = "2006-01-02 15:04:05.000"

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("storage: not found")

//go:embed migrations/*.sql
var migrations embed.FS

// Store manages the SQLite database connection for score persistence.
type Store struct {
	db *sql.DB
}

// ScoreEntry is one leaderboard row.
type ScoreEntry struct {
	Rank        int       `json:"rank"`
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Nickname    string    `json:"nickname"`
	RoundID     string    `json:"round_id"`
	TargetMs    int64     `json:"target_time"`
	ElapsedMs   int64     `json:"actual_time"`
	TargetKey   string    `json:"target_key"`
	Score       int       `json:"score"`
	AccuracyPct float64   `json:"accuracy"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats contains aggregated statistics over game_scores.
type Stats struct {
	GamesPlayed int       `json:"games_played"`
	BestScore   int       `json:"best_score"`
	AvgScore    float64   `json:"avg_score"`
	AvgAccuracy float64   `json:"avg_accuracy"`
	LastPlayed  time.Time `json:"last_played,omitzero"`
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite serializes writers anyway

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate applies every pending embedded migration.
func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertScore records a finished round for the given user.
// Returns the ID of the inserted record.
func (s *Store) InsertScore(ctx context.Context, userID string, rec focus.Record) (int64, error) {
	createdAt := rec.FinishedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO game_scores
		 (user_id, round_id, target_time, actual_time, target_key, score, accuracy, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		rec.RoundID.String(),
		rec.TargetMs,
		rec.ElapsedMs,
		rec.TargetSymbol,
		rec.Score,
		rec.AccuracyPct,
		formatTime(createdAt),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save score: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// EnsureUser finds or creates a user.
// With a fingerprint the user is keyed by it and the nickname is refreshed; without one
// the user is keyed by nickname among users that have no key.
func (s *Store) EnsureUser(ctx context.Context, nickname, fingerprint string) (identity.User, error) {
	u, err := s.findUser(ctx, nickname, fingerprint)
	switch {
	case err == nil:
		if fingerprint != "" && u.Nickname != nickname {
			if _, err := s.db.ExecContext(ctx,
				`UPDATE users SET nickname = ? WHERE id = ?`, nickname, u.ID); err != nil {
				return identity.User{}, fmt.Errorf("storage: cannot rename user: %w", err)
			}
			u.Nickname = nickname
		}
		return u, nil
	case !errors.Is(err, ErrNotFound):
		return identity.User{}, err
	}

	u = identity.User{ID: uuid.NewString(), Nickname: nickname}
	var fp any
	if fingerprint != "" {
		fp = fingerprint
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, nickname, fingerprint, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, nickname, fp, formatTime(time.Now()),
	)
	if err != nil {
		// Another session created the same user first
		if isConstraintErr(err) {
			return s.findUser(ctx, nickname, fingerprint)
		}
		return identity.User{}, fmt.Errorf("storage: cannot create user: %w", err)
	}
	return u, nil
}

func (s *Store) findUser(ctx context.Context, nickname, fingerprint string) (identity.User, error) {
	var row *sql.Row
	if fingerprint != "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, nickname FROM users WHERE fingerprint = ?`, fingerprint)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, nickname FROM users WHERE fingerprint IS NULL AND nickname = ?`, nickname)
	}

	var u identity.User
	err := row.Scan(&u.ID, &u.Nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, ErrNotFound
	}
	if err != nil {
		return identity.User{}, fmt.Errorf("storage: cannot query user: %w", err)
	}
	return u, nil
}

// UserByID returns the stored user with the given ID.
func (s *Store) UserByID(ctx context.Context, id string) (identity.User, error) {
	var u identity.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nickname FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, ErrNotFound
	}
	if err != nil {
		return identity.User{}, fmt.Errorf("storage: cannot query user: %w", err)
	}
	return u, nil
}

// UserByNickname returns a user by nickname without creating one.
// A local (keyless) user wins over keyed users sharing the nickname.
func (s *Store) UserByNickname(ctx context.Context, nickname string) (identity.User, error) {
	var u identity.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nickname FROM users
		 WHERE nickname = ?
		 ORDER BY fingerprint IS NOT NULL, created_at ASC
		 LIMIT 1`, nickname,
	).Scan(&u.ID, &u.Nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, ErrNotFound
	}
	if err != nil {
		return identity.User{}, fmt.Errorf("storage: cannot query user: %w", err)
	}
	return u, nil
}

// TopScores retrieves the global leaderboard.
// Results are ordered by score descending; ties go to the earlier round.
func (s *Store) TopScores(ctx context.Context, limit int) ([]ScoreEntry, error) {
	return s.queryScores(ctx,
		`SELECT g.id, g.user_id, u.nickname, g.round_id, g.target_time, g.actual_time,
		        g.target_key, g.score, g.accuracy, g.created_at
		 FROM game_scores g
		 JOIN users u ON u.id = g.user_id
		 ORDER BY g.score DESC, g.created_at ASC, g.id ASC
		 LIMIT ?`,
		clampLimit(limit, DefaultGlobalLimit),
	)
}

// UserScores retrieves the personal leaderboard of one user.
func (s *Store) UserScores(ctx context.Context, userID string, limit int) ([]ScoreEntry, error) {
	return s.queryScores(ctx,
		`SELECT g.id, g.user_id, u.nickname, g.round_id, g.target_time, g.actual_time,
		        g.target_key, g.score, g.accuracy, g.created_at
		 FROM game_scores g
		 JOIN users u ON u.id = g.user_id
		 WHERE g.user_id = ?
		 ORDER BY g.score DESC, g.created_at ASC, g.id ASC
		 LIMIT ?`,
		userID, clampLimit(limit, DefaultPersonalLimit),
	)
}

func (s *Store) queryScores(ctx context.Context, query string, args ...any) ([]ScoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		var createdAt any
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Nickname,
			&e.RoundID,
			&e.TargetMs,
			&e.ElapsedMs,
			&e.TargetKey,
			&e.Score,
			&e.AccuracyPct,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// Stats aggregates the scores of one user, or of everyone when userID is empty.
func (s *Store) Stats(ctx context.Context, userID string) (Stats, error) {
	query := `SELECT COUNT(*), COALESCE(MAX(score), 0), COALESCE(AVG(score), 0),
	                 COALESCE(AVG(accuracy), 0), MAX(created_at)
	          FROM game_scores`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}

	var st Stats
	var lastPlayed any
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&st.GamesPlayed, &st.BestScore, &st.AvgScore, &st.AvgAccuracy, &lastPlayed,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("storage: cannot get stats: %w", err)
	}
	st.LastPlayed = parseTime(lastPlayed)

	return st, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime handles both driver-decoded times and stored text.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse(timeLayout, v); err == nil {
			return parsed
		}
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	case []byte:
		return parseTime(string(v))
	}
	return time.Time{}
}

func isConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ focus.Recorder = (*Store)(nil)
var _ identity.Directory = (*Store)(nil)
