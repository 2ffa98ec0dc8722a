package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/auth"
	"github.com/ekaya-inc/ekaya-ask/pkg/handlers"
	"github.com/ekaya-inc/ekaya-ask/pkg/mcp"
	"github.com/ekaya-inc/ekaya-ask/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-ask/pkg/middleware"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

const shutdownTimeout = 15 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, MCP endpoint and metrics",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(ctx, cmd, "", prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("store_type", cfg.Store.Type),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("llm_configured", cfg.LLM.IsConfigured()),
		zap.Bool("admin_configured", cfg.Admin.IsConfigured()),
		zap.Bool("redis", cfg.Redis.IsConfigured()),
		zap.Bool("mcp", cfg.MCP.Enabled))

	sessions, err := auth.NewSessionManager(cfg.Admin.SessionSecret, cfg.Admin.SecureCookies)
	if err != nil {
		return err
	}
	if cfg.Admin.SessionSecret == "" {
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	authMiddleware := auth.NewMiddleware(sessions, logger)
	gate := auth.NewAdminGate(cfg.Admin.Password)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, a.connManager, logger).RegisterRoutes(mux)
	handlers.NewAskHandler(a.ask, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewSessionHandler(authMiddleware, gate, logger).RegisterRoutes(mux)
	handlers.NewAdminHandler(authMiddleware, gate, a.auditor, a.ask, a.catalog, a.ingestion, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	if cfg.MCP.Enabled {
		auditLogger := mcp.NewAuditLogger(logger)
		mcpServer := mcp.NewServer("ekaya-ask", cfg.Version, logger, server.WithHooks(auditLogger.Hooks()))
		tools.RegisterAskTools(mcpServer.MCP(), &tools.AskToolDeps{
			AskService: a.ask,
			Provider:   a.provider,
			Debug:      cfg.Admin.DebugAnswers,
			Logger:     logger.Named("mcp-tools"),
		})
		tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version, a.ask)
		mux.Handle("/mcp", middleware.MCPRequestLogger(logger)(mcpServer.NewStreamableHTTPServer()))
	}

	if cfg.Store.IsFileBacked() && cfg.Store.WatchFile {
		watcher := services.NewStoreWatcher(cfg.Store.Path, a.provider, services.DefaultWatchDebounce, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Warn("Store file watcher stopped", zap.Error(err))
			}
		}()
	}

	// Build the snapshot up front so the first question does not pay for it.
	status := a.ask.Status(ctx)
	logger.Info("Store status", zap.Bool("ready", status.Ready), zap.String("message", status.Message))

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-ask", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
