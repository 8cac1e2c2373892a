// Package server provides the HTTP surface of the subscriber service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prwire/subscriber/internal/auth"
	"github.com/prwire/subscriber/internal/auth/session"
	"github.com/prwire/subscriber/internal/badge"
	"github.com/prwire/subscriber/internal/config"
	"github.com/prwire/subscriber/internal/logger"
	"github.com/prwire/subscriber/internal/preview"
	"github.com/prwire/subscriber/internal/subscriber"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server wires the request handlers to their collaborators and runs the
// HTTP listener.
type Server struct {
	config   *config.Config
	appURL   string
	flow     *auth.Service
	records  *subscriber.Service
	verifier *session.Verifier
	badges   *badge.Renderer
	crawlers *preview.CrawlerPolicy
	pages    *preview.PageRenderer
}

// NewServer creates a Server instance with the provided collaborators.
func NewServer(
	cfg *config.Config,
	flow *auth.Service,
	records *subscriber.Service,
	verifier *session.Verifier,
	badges *badge.Renderer,
	crawlers *preview.CrawlerPolicy,
	pages *preview.PageRenderer,
) *Server {
	return &Server{
		config:   cfg,
		appURL:   strings.TrimSuffix(cfg.Twitter.AppURL, "/"),
		flow:     flow,
		records:  records,
		verifier: verifier,
		badges:   badges,
		crawlers: crawlers,
		pages:    pages,
	}
}

// Handler builds the full middleware and routing stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// identity-scoped API
	mux.Handle("/api/connect/twitter", s.verifier.Require(http.HandlerFunc(s.handleConnectTwitter)))
	mux.Handle("/api/user", s.verifier.Require(http.HandlerFunc(s.handleUser)))

	// the callback always answers with a redirect, never a JSON 401
	mux.Handle("/api/auth/twitter/callback", s.verifier.Optional(http.HandlerFunc(s.handleOAuthCallback)))

	// public surface
	mux.HandleFunc("/api/og", s.handleBadgeImage)
	mux.HandleFunc("/preview/", s.handlePreview)
	mux.HandleFunc("/healthz", s.handleHealth)

	return session.CORS(LoggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server",
			zap.String("address", addr),
			zap.String("app_url", s.appURL),
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// Module provides the HTTP server dependencies
var Module = fx.Module("server",
	fx.Provide(
		NewServer,
	),
)
