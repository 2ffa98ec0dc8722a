package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/config"
	"github.com/ekaya-inc/ekaya-ask/pkg/database"
	"github.com/ekaya-inc/ekaya-ask/pkg/llm"
	"github.com/ekaya-inc/ekaya-ask/pkg/metrics"
	"github.com/ekaya-inc/ekaya-ask/pkg/prompts"
	"github.com/ekaya-inc/ekaya-ask/pkg/repositories"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

// app holds the wired pipeline shared by every command.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	connManager *datasource.ConnectionManager
	redis       *redis.Client

	store     services.StoreRef
	catalog   services.SchemaCatalog
	provider  *services.SnapshotProvider
	auditor   *audit.SecurityAuditor
	ask       services.AskService
	ingestion services.IngestionService
}

// newApp wires config into the pipeline. reg receives the pipeline metrics;
// nil leaves them unregistered.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.connManager = datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTLMinutes:   cfg.Store.ConnectionTTLMinutes,
		PoolMaxConns: cfg.Store.PoolMaxConns,
		PoolMinConns: 1,
	}, logger)
	factory := datasource.NewDatasourceAdapterFactory(a.connManager, logger)

	var m *metrics.PipelineMetrics
	if reg != nil {
		m = metrics.NewPipelineMetrics(reg)
	}

	hints := prompts.DefaultHints()
	if cfg.Pipeline.HintsFile != "" {
		loaded, err := prompts.LoadHints(cfg.Pipeline.HintsFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load hints: %w", err)
		}
		hints = loaded
	}

	a.store = services.StoreRefFromConfig(&cfg.Store)
	a.auditor = audit.NewSecurityAuditor(logger)
	a.catalog = services.NewSchemaCatalog(a.store, factory, services.CatalogConfig{
		SampleRows:       cfg.Pipeline.SampleRows,
		EntityValueLimit: cfg.Pipeline.EntityValueLimit,
	}, logger)
	a.provider = services.NewSnapshotProvider(a.catalog, m, logger)

	canned := services.NewCannedAnswers(cfg.Pipeline.AssistantName, hints)
	builder := services.NewContextBuilder(services.ContextBuilderConfig{
		AssistantName:      cfg.Pipeline.AssistantName,
		PromptSampleRows:   cfg.Pipeline.PromptSampleRows,
		PromptEntityValues: cfg.Pipeline.PromptEntityValues,
	}, hints)
	executor := services.NewSafeExecutor(a.store, factory, a.catalog, a.auditor, services.SafeExecutorConfig{
		MaxRows: cfg.Pipeline.MaxResultRows,
		Timeout: cfg.Pipeline.QueryTimeout,
	}, m, logger)

	var (
		synthesizer services.QuerySynthesizer
		narrator    services.ResultNarrator
	)
	client, err := llm.NewClientFromConfig(&cfg.LLM, logger)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("No text-generation service configured; questions will get the not-configured answer")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("create llm client: %w", err)
	default:
		synthesizer = services.NewQuerySynthesizer(client, llm.GenerateOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.TranslationMaxTokens,
		}, m, logger)
		narrator = services.NewResultNarrator(client, llm.GenerateOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.NarrationMaxTokens,
		}, canned, m, logger)
	}

	conversations := repositories.NewMemoryConversationRepository(cfg.Redis.ConversationTTL)
	a.redis, err = database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.redis != nil {
		conversations = repositories.NewRedisConversationRepository(a.redis, cfg.Redis.ConversationTTL)
		logger.Info("Conversation history in Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	a.ask = services.NewAskService(a.provider, builder, synthesizer, executor, narrator, canned,
		services.NewTopicMatcher(hints), conversations, m, logger)
	a.ingestion = services.NewIngestionService(a.store, factory, a.provider, a.auditor, logger)
	return a, nil
}

// Close releases store pools and the Redis client and flushes the logger.
func (a *app) Close() {
	defer func() { _ = a.logger.Sync() }()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Warn("Failed to close store connections", zap.Error(err))
		}
	}
}

// setup loads config and the logger for cmd and wires the app.
func setup(ctx context.Context, cmd *cli.Command, fallbackLevel string, reg prometheus.Registerer) (*app, error) {
	cfg, err := loadConfig(cmd, fallbackLevel)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a, err := newApp(ctx, cfg, logger, reg)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}
