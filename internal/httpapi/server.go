// Package httpapi serves the hub over JSON HTTP with gin. Every route but
// login needs a bearer token; the token's session rides on the request
// context into the hub service.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/hub"
	"github.com/mesh-intelligence/insighthub/internal/logging"
)

const shutdownGrace = 5 * time.Second

// Server is the HTTP front end.
type Server struct {
	hub     *hub.Service
	logins  *auth.Authenticator
	tokens  *auth.Issuer
	log     *logging.Logger
	origins []string
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins enables CORS for the given browser origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithClock replaces the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer wires the API over a hub service.
func NewServer(svc *hub.Service, logins *auth.Authenticator, tokens *auth.Issuer, log *logging.Logger, opts ...Option) *Server {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{hub: svc, logins: logins, tokens: tokens, log: log.With("component", "http"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin engine with middleware and routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(s.log), gin.CustomRecovery(s.recover))
	if len(s.origins) > 0 {
		r.Use(CORS(s.origins))
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	api.POST("/login", s.login)

	authed := api.Group("", RequireAuth(s.tokens))
	authed.GET("/me", s.me)
	authed.GET("/insights", s.insights)
	authed.POST("/insights", s.saveInsights)
	authed.GET("/insights/log", s.insightLog)
	authed.POST("/insights/:id/read", s.markInsightRead)
	authed.GET("/summary", s.summary)
	authed.GET("/kpis", s.kpis)
	authed.GET("/kpis/:id/trend", s.trend)
	authed.GET("/kpis/:id/achievement", s.achievement)
	authed.POST("/kpis/:id/facts", s.recordFact)
	authed.GET("/work", s.workItems)
	authed.POST("/work", s.saveWorkItem)
	authed.GET("/work/:id/updates", s.workUpdates)
	authed.POST("/work/:id/updates", s.addWorkUpdate)
	authed.GET("/actions", s.actions)
	authed.POST("/actions/:id/promote", s.promoteAction)
	authed.GET("/reports/:type", s.report)
	authed.POST("/workspace/aggregate", s.aggregate)
	authed.GET("/export/:table", s.export)
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	s.log.Info("http server stopping")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) recover(c *gin.Context, rec any) {
	s.log.Error("panic in handler", "path", c.Request.URL.Path, "panic", rec, "request_id", requestID(c))
	writeError(c, errInternal)
}
