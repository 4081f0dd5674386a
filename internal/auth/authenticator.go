package auth

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/insighthub/internal/logging"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// ErrInvalidCredentials covers unknown users, wrong passwords and disabled
// accounts alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserStore looks up login records.
type UserStore interface {
	GetUser(ctx context.Context, username string) (types.User, error)
}

// Authenticator checks credentials against a UserStore.
type Authenticator struct {
	users UserStore
	log   *logging.Logger
}

// NewAuthenticator returns an Authenticator reading from users.
func NewAuthenticator(users UserStore, log *logging.Logger) *Authenticator {
	if log == nil {
		log = logging.Nop()
	}
	return &Authenticator{users: users, log: log.With("component", "auth")}
}

// Login verifies username and password and returns the caller's session.
func (a *Authenticator) Login(ctx context.Context, username, password string) (Session, error) {
	if username == "" {
		return Session{}, ErrInvalidCredentials
	}
	u, err := a.users.GetUser(ctx, username)
	if errors.Is(err, types.ErrNotFound) {
		a.log.Warn("login failed", "username", username, "reason", "unknown user")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		a.log.Warn("login failed", "username", username, "reason", "bad password")
		return Session{}, ErrInvalidCredentials
	}
	if !u.Enabled {
		a.log.Warn("login failed", "username", username, "reason", "disabled")
		return Session{}, ErrInvalidCredentials
	}
	a.log.Info("login", "username", username, "role", u.Role)
	return NewSession(u), nil
}
