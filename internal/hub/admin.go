package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// AddUser creates or replaces a login record with a freshly hashed password.
func (s *Service) AddUser(ctx context.Context, u types.User, password string) (types.User, error) {
	sess, err := s.requireAdmin(ctx)
	if err != nil {
		return types.User{}, err
	}
	if password == "" {
		return types.User{}, fmt.Errorf("%w: empty password for %s", types.ErrInvalidData, u.Username)
	}
	u.PasswordHash = auth.HashPassword(password)
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return types.User{}, err
	}
	s.log.Info("user saved", "username", u.Username, "by", sess.Username)
	return u, nil
}

// Users lists every login record. Password hashes are blanked.
func (s *Service) Users(ctx context.Context) ([]types.User, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// Seed loads the demo dataset with facts ending today.
func (s *Service) Seed(ctx context.Context) (sqlite.SeedStats, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return sqlite.SeedStats{}, err
	}
	return s.store.SeedDemo(ctx, s.now())
}

// Reset drops and recreates every table.
func (s *Service) Reset(ctx context.Context) error {
	sess, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.log.Warn("warehouse reset", "by", sess.Username)
	return nil
}

// EnsureDates fills the date dimension over [start, end].
func (s *Service) EnsureDates(ctx context.Context, start, end time.Time) (int, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return 0, err
	}
	return s.store.EnsureDateRange(ctx, start, end)
}
