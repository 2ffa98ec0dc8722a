package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/metrics"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	sqlutil "github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// unknownIdentifierPatterns match store errors that mean the statement
// named a table or column the store does not have, across the supported
// dialects. Errors about functions, types or operators do not match.
var unknownIdentifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`no such (column|table)`),                               // sqlite
	regexp.MustCompile(`\b(column|relation)\s+("[^"]*"|\S+)\s+does not exist`), // postgres
	regexp.MustCompile(`invalid (column|object) name`),                         // mssql
	regexp.MustCompile(`unknown column`),                                       // mysql
	regexp.MustCompile(`\btable\s+\S+\s+doesn't exist`),                        // mysql
	regexp.MustCompile(`referenced column\s+\S+\s+not found`),                  // duckdb
	regexp.MustCompile(`table with name\s+\S+\s+does not exist`),               // duckdb
}

// SafeExecutorConfig bounds one execution.
type SafeExecutorConfig struct {
	MaxRows int           // Rows read back before the result is marked truncated
	Timeout time.Duration // Zero means no deadline beyond the caller's
}

// SafeExecutor runs a generated statement under read-only rules.
type SafeExecutor interface {
	// Execute returns exactly one of result and failure. The store
	// connection is released before it returns, on every path.
	Execute(ctx context.Context, questionID uuid.UUID, statement string) (*models.QueryResult, *models.QueryFailure)
}

type safeExecutor struct {
	store          StoreRef
	adapterFactory datasource.DatasourceAdapterFactory
	catalog        SchemaCatalog
	auditor        *audit.SecurityAuditor
	cfg            SafeExecutorConfig
	metrics        *metrics.PipelineMetrics
	logger         *zap.Logger
}

// NewSafeExecutor creates an executor for store. catalog supplies the
// table listing attached to failures.
func NewSafeExecutor(
	store StoreRef,
	adapterFactory datasource.DatasourceAdapterFactory,
	catalog SchemaCatalog,
	auditor *audit.SecurityAuditor,
	cfg SafeExecutorConfig,
	m *metrics.PipelineMetrics,
	logger *zap.Logger,
) SafeExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditor == nil {
		auditor = audit.NewSecurityAuditor(logger)
	}
	if cfg.MaxRows <= 0 || cfg.MaxRows > datasource.MaxQueryLimit {
		cfg.MaxRows = datasource.MaxQueryLimit
	}
	return &safeExecutor{
		store:          store,
		adapterFactory: adapterFactory,
		catalog:        catalog,
		auditor:        auditor,
		cfg:            cfg,
		metrics:        m,
		logger:         logger.Named("safe_executor"),
	}
}

func (e *safeExecutor) Execute(ctx context.Context, questionID uuid.UUID, statement string) (*models.QueryResult, *models.QueryFailure) {
	start := time.Now()

	stmt, err := ValidateReadOnly(statement)
	if err != nil {
		e.auditor.LogStatementRejected(ctx, questionID, audit.StatementDetails{
			Statement: statement,
			Reason:    err.Error(),
		})
		e.metrics.ObserveQuery(metrics.QueryRejected, time.Since(start))
		return nil, &models.QueryFailure{Kind: models.FailureRejected, Statement: statement, Message: err.Error()}
	}

	if flagged := sqlutil.CheckStatementLiterals(stmt.Literals); len(flagged) > 0 {
		for _, f := range flagged {
			e.auditor.LogInjectionAttempt(ctx, questionID, audit.SQLInjectionDetails{
				Statement:   stmt.SQL,
				Literal:     f.Value,
				Fingerprint: f.Fingerprint,
			})
		}
		e.metrics.ObserveQuery(metrics.QueryRejected, time.Since(start))
		return nil, &models.QueryFailure{
			Kind:      models.FailureRejected,
			Statement: stmt.SQL,
			Message:   fmt.Sprintf("string literal flagged as injection (%s)", flagged[0]),
		}
	}

	result, err := e.run(ctx, stmt.SQL)
	if err != nil {
		failure := &models.QueryFailure{
			Kind:      classifyExecutionError(err),
			Statement: stmt.SQL,
			Message:   logging.SanitizeError(err),
		}
		// The listing is a diagnostic aid; the statement is never retried.
		if failure.Kind != models.FailureStoreUnavailable {
			digest, digestErr := e.catalog.Digest(ctx)
			if digestErr != nil {
				e.logger.Debug("Could not list tables for failed statement", zap.Error(digestErr))
			}
			failure.SchemaDigest = digest
		}
		e.metrics.ObserveQuery(metrics.QueryFailed, time.Since(start))
		e.logger.Warn("Generated statement failed",
			zap.String("question_id", questionID.String()),
			zap.String("kind", string(failure.Kind)),
			zap.String("statement", logging.SanitizeQuery(stmt.SQL)),
			zap.String("error", failure.Message))
		return nil, failure
	}

	label := metrics.QuerySuccess
	if result.IsEmpty() {
		label = metrics.QueryEmpty
	}
	e.metrics.ObserveQuery(label, time.Since(start))
	e.logger.Debug("Statement executed",
		zap.String("question_id", questionID.String()),
		zap.Int("rows", result.RowCount),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// errStoreUnavailable marks failures to check out a connection.
var errStoreUnavailable = errors.New("store unavailable")

// run checks out one connection, runs the statement and returns the
// connection before reporting anything.
func (e *safeExecutor) run(ctx context.Context, statement string) (*models.QueryResult, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	executor, err := e.adapterFactory.NewQueryExecutor(ctx, e.store.Type, e.store.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errStoreUnavailable, err)
	}
	defer func() {
		if err := executor.Close(); err != nil {
			e.logger.Error("Failed to release store connection", zap.Error(err))
		}
	}()

	res, err := executor.Query(ctx, statement, e.cfg.MaxRows)
	if err != nil {
		return nil, err
	}

	return &models.QueryResult{
		Columns:   res.ColumnNames(),
		Rows:      res.Rows,
		RowCount:  res.RowCount,
		Truncated: res.Truncated,
		Statement: statement,
	}, nil
}

func classifyExecutionError(err error) models.FailureKind {
	if errors.Is(err, errStoreUnavailable) {
		return models.FailureStoreUnavailable
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range unknownIdentifierPatterns {
		if pattern.MatchString(msg) {
			return models.FailureUnknownIdentifier
		}
	}
	return models.FailureExecution
}
