package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// UpsertUser creates or replaces a login record.
func (b *Backend) UpsertUser(ctx context.Context, u types.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	err := b.exec(ctx, `INSERT INTO dim_user (username, password_hash, role, dept_id, person_id, is_enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash, role = excluded.role,
			dept_id = excluded.dept_id, person_id = excluded.person_id, is_enabled = excluded.is_enabled`,
		u.Username, u.PasswordHash, string(u.Role), nullString(u.DeptID), nullString(u.PersonID), boolInt(u.Enabled))
	if err != nil {
		return err
	}
	b.log.Info("user saved", "username", u.Username, "role", u.Role, "dept", u.DeptID)
	return nil
}

// GetUser returns the login record for username.
func (b *Backend) GetUser(ctx context.Context, username string) (types.User, error) {
	if username == "" {
		return types.User{}, types.ErrInvalidID
	}
	db, release, err := b.conn()
	if err != nil {
		return types.User{}, err
	}
	defer release()

	u, err := scanUser(db.QueryRowContext(ctx, `SELECT username, password_hash, role, COALESCE(dept_id, ''),
		COALESCE(person_id, ''), is_enabled FROM dim_user WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, fmt.Errorf("user %s: %w", username, types.ErrNotFound)
	}
	if err != nil {
		return types.User{}, fmt.Errorf("getting user %s: %w", username, err)
	}
	return u, nil
}

// ListUsers returns every login record ordered by username.
func (b *Backend) ListUsers(ctx context.Context) ([]types.User, error) {
	db, release, err := b.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, `SELECT username, password_hash, role, COALESCE(dept_id, ''),
		COALESCE(person_id, ''), is_enabled FROM dim_user ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		u       types.User
		role    string
		enabled int
	)
	if err := row.Scan(&u.Username, &u.PasswordHash, &role, &u.DeptID, &u.PersonID, &enabled); err != nil {
		return types.User{}, err
	}
	u.Role = types.Role(role)
	u.Enabled = enabled != 0
	return u, nil
}
