package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

type fakeUsers map[string]types.User

func (f fakeUsers) GetUser(_ context.Context, username string) (types.User, error) {
	u, ok := f[username]
	if !ok {
		return types.User{}, fmt.Errorf("user %s: %w", username, types.ErrNotFound)
	}
	return u, nil
}

func TestHashPassword(t *testing.T) {
	assert.Equal(t, "d3ad9315b7be5dd53b31a273b3b3aba5defe700808305aa16a3062b76658a791", HashPassword("demo123"))
	assert.True(t, CheckPassword(HashPassword("s3cret"), "s3cret"))
	assert.True(t, CheckPassword("D3AD9315B7BE5DD53B31A273B3B3ABA5DEFE700808305AA16A3062B76658A791", "demo123"))
	assert.False(t, CheckPassword(HashPassword("s3cret"), "S3cret"))
	assert.False(t, CheckPassword("", ""))
}

func TestLogin(t *testing.T) {
	users := fakeUsers{
		"admin":    {Username: "admin", PasswordHash: HashPassword("demo123"), Role: types.RoleAdmin, Enabled: true},
		"mds_head": {Username: "mds_head", PasswordHash: HashPassword("demo123"), Role: types.RoleDeptHead, DeptID: "MDS", PersonID: "P2", Enabled: true},
		"gone":     {Username: "gone", PasswordHash: HashPassword("demo123"), Role: types.RoleStaff, DeptID: "IT"},
	}
	a := NewAuthenticator(users, nil)

	s, err := a.Login(context.Background(), "mds_head", "demo123")
	require.NoError(t, err)
	assert.Equal(t, Session{Username: "mds_head", Role: types.RoleDeptHead, DeptID: "MDS", PersonID: "P2"}, s)

	tests := []struct {
		name, user, pass string
	}{
		{"wrong password", "admin", "demo124"},
		{"unknown user", "nobody", "demo123"},
		{"disabled user", "gone", "demo123"},
		{"empty username", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Login(context.Background(), tt.user, tt.pass)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestDeptScope(t *testing.T) {
	admin := Session{Username: "admin", Role: types.RoleAdmin}
	exec := Session{Username: "exec", Role: types.RoleExecutive}
	head := Session{Username: "it_head", Role: types.RoleDeptHead, DeptID: "IT"}
	broken := Session{Username: "staff", Role: types.RoleStaff}

	tests := []struct {
		name      string
		session   Session
		requested string
		want      string
		wantErr   error
	}{
		{"admin unscoped", admin, "", "", nil},
		{"admin picks department", admin, "MDS", "MDS", nil},
		{"executive picks department", exec, "BMS", "BMS", nil},
		{"head defaults to own", head, "", "IT", nil},
		{"head asks for own", head, "IT", "IT", nil},
		{"head asks for other", head, "MDS", "", types.ErrForbidden},
		{"scoped role without department", broken, "", "", types.ErrMissingScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.session.DeptScope(tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, exec.CanAccessDept("IT"))
	assert.True(t, head.CanAccessDept("IT"))
	assert.False(t, head.CanAccessDept("MDS"))
	assert.False(t, broken.CanAccessDept(""))
	assert.NoError(t, admin.RequireAdmin())
	assert.ErrorIs(t, exec.RequireAdmin(), types.ErrForbidden)
}

func TestSessionContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	want := Session{Username: "admin", Role: types.RoleAdmin}
	got, err := FromContext(WithSession(context.Background(), want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIssuer(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	iss, err := NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	iss.now = func() time.Time { return now }

	want := Session{Username: "it_head", Role: types.RoleDeptHead, DeptID: "IT", PersonID: "P5"}
	token, exp, err := iss.Issue(want)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	got, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, err := NewIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	other.now = iss.now
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong key")

	iss.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = iss.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	_, err = iss.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("", time.Hour)
	assert.Error(t, err)
}
