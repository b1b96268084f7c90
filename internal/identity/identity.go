// Package identity resolves who is playing a session.
//
// A player is either anonymous or a stored user. Anonymous players can play but their
// rounds are never persisted; signed-in users have every finished round forwarded to
// the score store.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	gossh "golang.org/x/crypto/ssh"
)

// MaxNicknameLen bounds nickname length in runes.
const MaxNicknameLen = 32

// ErrInvalidNickname is returned when a nickname is empty, too long or contains
// control characters.
var ErrInvalidNickname = errors.New("identity: invalid nickname")

// Identity reports who is playing. Both Anonymous and User satisfy the game
// engine's identity contract.
type Identity interface {
	Authenticated() bool
	UserID() (string, bool)
	Name() string
}

// Anonymous is a player without a stored account.
type Anonymous struct {
	Nickname string
}

// Authenticated always reports false.
func (Anonymous) Authenticated() bool { return false }

// UserID always reports no user.
func (Anonymous) UserID() (string, bool) { return "", false }

// Name returns the nickname, or "guest".
func (a Anonymous) Name() string {
	if a.Nickname == "" {
		return "guest"
	}
	return a.Nickname
}

// User is a stored player.
type User struct {
	ID       string
	Nickname string
}

// Authenticated reports whether the user has an ID.
func (u User) Authenticated() bool { return u.ID != "" }

// UserID returns the stored user ID.
func (u User) UserID() (string, bool) { return u.ID, u.ID != "" }

// Name returns the nickname.
func (u User) Name() string { return u.Nickname }

// Directory looks up or creates stored users.
// An empty fingerprint means the user is keyed by nickname only.
type Directory interface {
	EnsureUser(ctx context.Context, nickname, fingerprint string) (User, error)
}

// SignIn resolves a nickname to a stored user.
func SignIn(ctx context.Context, dir Directory, nickname string) (User, error) {
	nick, err := NormalizeNickname(nickname)
	if err != nil {
		return User{}, err
	}
	u, err := dir.EnsureUser(ctx, nick, "")
	if err != nil {
		return User{}, fmt.Errorf("identity: sign in %q: %w", nick, err)
	}
	return u, nil
}

// FromPublicKey resolves an SSH user by key fingerprint.
// A nil key yields an anonymous player named after the SSH user.
func FromPublicKey(ctx context.Context, dir Directory, nickname string, key gossh.PublicKey) (Identity, error) {
	nick, err := NormalizeNickname(nickname)
	if err != nil {
		return nil, err
	}
	if key == nil || dir == nil {
		return Anonymous{Nickname: nick}, nil
	}
	u, err := dir.EnsureUser(ctx, nick, Fingerprint(key))
	if err != nil {
		return nil, fmt.Errorf("identity: resolve key for %q: %w", nick, err)
	}
	return u, nil
}

// Fingerprint returns the SHA256 fingerprint of an SSH public key.
func Fingerprint(key gossh.PublicKey) string {
	return gossh.FingerprintSHA256(key)
}

// NormalizeNickname trims surrounding space and checks the result.
func NormalizeNickname(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > MaxNicknameLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidNickname, s)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidNickname, s)
		}
	}
	return s, nil
}
