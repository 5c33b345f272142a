package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/mcp"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/mcp/tools"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the MCP endpoint and the job scheduler",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting ia-dental",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("datasource", cfg.Datasource.Type),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	jwks, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		Secret:             cfg.Auth.Secret,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		return err
	}
	defer jwks.Close()
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(jwks, logger), logger)

	deps := server.Deps{
		Config:       cfg,
		Auth:         authMiddleware,
		Health:       a.health,
		Orchestrator: a.orchestrator,
		Integrity:    a.integrity,
		Analytics:    a.analytics,
		Reports:      a.reports,
		Scheduler:    a.scheduler,
	}
	if cfg.MCP.Enabled {
		deps.MCP = mcp.NewServer(cfg.Version, &tools.ClinicToolDeps{
			Orchestrator: a.orchestrator,
			Integrity:    a.integrity,
			Reports:      a.reports,
			Analytics:    a.analytics,
			Health:       a.health,
		}, logger)
	}

	if cfg.Scheduler.Enabled {
		a.scheduler.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			a.scheduler.Stop(stopCtx)
		}()
	} else {
		logger.Info("Scheduler disabled; jobs run only on demand")
	}

	return server.Run(ctx, cfg.Server, server.NewHandler(deps, logger), logger)
}
