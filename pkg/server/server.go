// Package server assembles the HTTP surface and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/handlers"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/mcp"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/middleware"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

// Deps are the services behind the HTTP routes. MCP may be nil.
type Deps struct {
	Config       *config.Config
	Auth         *auth.Middleware
	Health       services.HealthService
	Orchestrator services.QueryOrchestrator
	Integrity    services.IntegrityService
	Analytics    services.AnalyticsService
	Reports      services.ReportService
	Scheduler    handlers.JobScheduler
	MCP          *mcp.Server
}

// NewHandler registers every route and wraps the mux with request logging,
// CORS and the per-client rate limit, outermost first.
func NewHandler(d Deps, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(d.Config, d.Health, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(d.Orchestrator, logger).RegisterRoutes(mux, d.Auth)
	handlers.NewIntegrityHandler(d.Integrity, logger).RegisterRoutes(mux, d.Auth)
	handlers.NewAnalyticsHandler(d.Analytics, logger).RegisterRoutes(mux, d.Auth)
	handlers.NewReportsHandler(d.Reports, logger).RegisterRoutes(mux, d.Auth)
	handlers.NewJobsHandler(d.Scheduler, logger).RegisterRoutes(mux, d.Auth)

	if d.MCP != nil {
		mux.Handle("/mcp", d.Auth.RequireAuthHandler(d.MCP.Handler()))
	}

	srv := d.Config.Server
	limiter := middleware.NewRateLimiter(srv.RateLimitRequests, srv.RateLimitWindow, logger)

	var handler http.Handler = mux
	handler = limiter.Middleware(handler)
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   srv.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader, "Mcp-Session-Id"},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)
	handler = middleware.RequestLogger(logger.Named("http"))(handler)
	return handler
}

// Run serves handler until ctx is cancelled, then shuts down gracefully
// within the configured timeout. TLS is used when both cert and key are set.
func Run(ctx context.Context, cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) error {
	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
			logger.Info("Starting HTTPS server", zap.String("addr", addr))
			err = httpServer.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			logger.Info("Starting HTTP server", zap.String("addr", addr))
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Shutting down HTTP server", zap.Duration("timeout", timeout))
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
