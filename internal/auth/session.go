package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// ErrNoSession is returned when a context carries no session.
var ErrNoSession = errors.New("no session in context")

// Session is the authenticated caller of one request.
type Session struct {
	Username string     `json:"username"`
	Role     types.Role `json:"role"`
	DeptID   string     `json:"dept_id,omitempty"`
	PersonID string     `json:"person_id,omitempty"`
}

// NewSession builds the session for an authenticated user.
func NewSession(u types.User) Session {
	return Session{Username: u.Username, Role: u.Role, DeptID: u.DeptID, PersonID: u.PersonID}
}

// IsAdmin reports whether the session may manage users and reset data.
func (s Session) IsAdmin() bool { return s.Role == types.RoleAdmin }

// CanAccessDept reports whether the session may see deptID. Organization-wide
// roles see every department; the others see only their own.
func (s Session) CanAccessDept(deptID string) bool {
	return s.Role.OrgWide() || (s.DeptID != "" && s.DeptID == deptID)
}

// DeptScope resolves the department filter for a query. Organization-wide
// roles get what they asked for, where empty means every department.
// Department-scoped roles always get their own department; asking for another
// one is ErrForbidden.
func (s Session) DeptScope(requested string) (string, error) {
	if s.Role.OrgWide() {
		return requested, nil
	}
	if s.DeptID == "" {
		return "", fmt.Errorf("%w: %s", types.ErrMissingScope, s.Username)
	}
	if requested != "" && requested != s.DeptID {
		return "", fmt.Errorf("%w: %s may not read department %s", types.ErrForbidden, s.Username, requested)
	}
	return s.DeptID, nil
}

// RequireAdmin returns ErrForbidden unless the session is an admin.
func (s Session) RequireAdmin() error {
	if !s.IsAdmin() {
		return fmt.Errorf("%w: %s is not an admin", types.ErrForbidden, s.Username)
	}
	return nil
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}
