package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

const envPassword = "INSIGHTHUB_PASSWORD"

// operatorSession is the session of whoever runs the CLI on the warehouse
// host without --user.
var operatorSession = auth.Session{Username: "operator", Role: types.RoleAdmin}

// session returns ctx carrying the caller's session: the --user login when
// given, otherwise the local operator.
func (a *app) session(ctx context.Context) (context.Context, error) {
	if a.flags.user == "" {
		return auth.WithSession(ctx, operatorSession), nil
	}
	password := a.flags.password
	if password == "" {
		password = os.Getenv(envPassword)
	}
	if password == "" {
		return nil, usageError{fmt.Errorf("--user %s needs --password or $%s", a.flags.user, envPassword)}
	}
	sess, err := auth.NewAuthenticator(a.store, a.log).Login(ctx, a.flags.user, password)
	if err != nil {
		return nil, err
	}
	return auth.WithSession(ctx, sess), nil
}
