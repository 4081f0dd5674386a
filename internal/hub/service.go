// Package hub is the application layer shared by the CLI and the HTTP API.
// Every method reads the caller's auth.Session from the context and applies
// its department scope before touching the store.
package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/logging"
	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/pkg/analytics"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// Service runs the hub's use cases against one attached backend.
type Service struct {
	store *sqlite.Backend
	cfg   types.Config
	log   *logging.Logger
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the clock used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service over an attached backend.
func New(store *sqlite.Backend, opts ...Option) *Service {
	s := &Service{
		store: store,
		cfg:   store.Config(),
		log:   logging.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the backend the service runs on.
func (s *Service) Store() *sqlite.Backend { return s.store }

func (s *Service) generator() *analytics.Generator {
	g := analytics.NewGenerator(s.cfg)
	g.Now = s.now
	return g
}

// session returns the caller and the department filter for requested.
func (s *Service) session(ctx context.Context, requested string) (auth.Session, string, error) {
	sess, err := auth.FromContext(ctx)
	if err != nil {
		return auth.Session{}, "", err
	}
	scope, err := sess.DeptScope(requested)
	if err != nil {
		return auth.Session{}, "", err
	}
	return sess, scope, nil
}

// requireDept fails unless the caller may write to deptID.
func (s *Service) requireDept(ctx context.Context, deptID string) (auth.Session, error) {
	sess, err := auth.FromContext(ctx)
	if err != nil {
		return auth.Session{}, err
	}
	if !sess.CanAccessDept(deptID) {
		return auth.Session{}, fmt.Errorf("%w: %s may not change department %q", types.ErrForbidden, sess.Username, deptID)
	}
	return sess, nil
}

// requireAdmin fails unless the caller is an admin.
func (s *Service) requireAdmin(ctx context.Context) (auth.Session, error) {
	sess, err := auth.FromContext(ctx)
	if err != nil {
		return auth.Session{}, err
	}
	return sess, sess.RequireAdmin()
}
