package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/httpapi"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr    string
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API for the web dashboard",
		Long: `Serve answers the dashboard's HTTP API. Clients log in at POST /api/login and
send the returned token as "Authorization: Bearer <token>". Tokens are signed
with jwt_secret from the config file, which init generates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.JWTSecret == "" {
				return usageError{errors.New("jwt_secret is not set; run init or set INSIGHTHUB_JWT_SECRET")}
			}
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			tokens, err := auth.NewIssuer(a.cfg.JWTSecret, a.cfg.TokenTTL)
			if err != nil {
				return usageError{err}
			}
			ctx, svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			srv := httpapi.NewServer(svc, auth.NewAuthenticator(a.store, a.log), tokens, a.log,
				httpapi.WithAllowedOrigins(origins...),
				httpapi.WithClock(a.now),
			)
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", addr)
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: http_addr from config)")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "browser origin allowed by CORS; repeatable")
	return cmd
}
