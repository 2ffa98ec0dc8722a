package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/metrics"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/repositories"
)

// AskService answers questions end to end and keeps per-session history.
type AskService interface {
	// Ask runs the pipeline. It never fails: every internal error becomes
	// one of the canned answers, with detail only in Answer.Debug. A
	// non-empty sessionID records the turn in that session's history.
	Ask(ctx context.Context, sessionID, question string) *models.Answer

	// Status reports whether questions can be answered right now.
	Status(ctx context.Context) *StoreStatus

	// History returns the session's turns, oldest first.
	History(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)

	// ClearHistory forgets the session's turns.
	ClearHistory(ctx context.Context, sessionID string) error
}

// TableStatus summarizes one table for the admin status screen.
type TableStatus struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	RowCount    int64  `json:"row_count"`
	ColumnCount int    `json:"column_count"`
}

// StoreStatus is the readiness report.
type StoreStatus struct {
	Ready              bool          `json:"ready"`
	Message            string        `json:"message"`
	TableCount         int           `json:"table_count"`
	TotalRows          int64         `json:"total_rows"`
	Tables             []TableStatus `json:"tables,omitempty"`
	SnapshotGeneration uint64        `json:"snapshot_generation"`
	SnapshotBuiltAt    *time.Time    `json:"snapshot_built_at,omitempty"`
	LLMConfigured      bool          `json:"llm_configured"`
}

type askService struct {
	provider      *SnapshotProvider
	builder       ContextBuilder
	synthesizer   QuerySynthesizer
	executor      SafeExecutor
	narrator      ResultNarrator
	canned        *CannedAnswers
	topics        *TopicMatcher
	conversations repositories.ConversationRepository
	metrics       *metrics.PipelineMetrics
	logger        *zap.Logger
}

// NewAskService wires the pipeline. synthesizer and narrator are nil when
// no text-generation service is configured; every question then gets the
// not-configured answer. conversations may be nil to disable history.
func NewAskService(
	provider *SnapshotProvider,
	builder ContextBuilder,
	synthesizer QuerySynthesizer,
	executor SafeExecutor,
	narrator ResultNarrator,
	canned *CannedAnswers,
	topics *TopicMatcher,
	conversations repositories.ConversationRepository,
	m *metrics.PipelineMetrics,
	logger *zap.Logger,
) AskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topics == nil {
		topics = NewTopicMatcher(nil)
	}
	return &askService{
		provider:      provider,
		builder:       builder,
		synthesizer:   synthesizer,
		executor:      executor,
		narrator:      narrator,
		canned:        canned,
		topics:        topics,
		conversations: conversations,
		metrics:       m,
		logger:        logger.Named("ask_service"),
	}
}

// run is the state of one question moving through the pipeline.
type run struct {
	id     uuid.UUID
	start  time.Time
	answer *models.Answer
}

func (r *run) enter(stage models.Stage) {
	r.answer.Debug.Trace = append(r.answer.Debug.Trace, stage)
}

// finish sets the answer text and closes the trace.
func (r *run) finish(text string, outcome models.Outcome) *models.Answer {
	r.answer.Text = text
	r.answer.Outcome = outcome
	r.enter(models.StageAnswered)
	r.answer.Debug.ElapsedMS = time.Since(r.start).Milliseconds()
	return r.answer
}

func (s *askService) Ask(ctx context.Context, sessionID, question string) *models.Answer {
	done := s.metrics.QuestionStarted()
	defer done()

	answer := s.answer(ctx, question)
	s.metrics.ObserveQuestion(string(answer.Outcome))

	if sessionID != "" && s.conversations != nil {
		turn := models.ConversationTurn{
			Question: question,
			Answer:   answer.Text,
			Outcome:  answer.Outcome,
			AskedAt:  time.Now().UTC(),
		}
		if err := s.conversations.Append(ctx, sessionID, turn); err != nil {
			s.logger.Error("Failed to record conversation turn",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}
	return answer
}

func (s *askService) answer(ctx context.Context, question string) *models.Answer {
	r := &run{
		id:     uuid.New(),
		start:  time.Now(),
		answer: &models.Answer{Debug: &models.AnswerDebug{}},
	}
	r.enter(models.StageReceived)
	logger := s.logger.With(zap.String("question_id", r.id.String()))

	if s.synthesizer == nil || s.narrator == nil {
		return r.finish(s.canned.NotConfigured(), models.OutcomeNotConfigured)
	}

	snapshot, err := s.provider.Get(ctx)
	if err != nil {
		logger.Warn("Schema not available", zap.String("error", logging.SanitizeError(err)))
		r.answer.Debug.Error = logging.SanitizeError(err)
		return r.finish(s.canned.NotReady(), models.OutcomeNotReady)
	}
	r.answer.Debug.SnapshotGeneration = snapshot.Generation()

	switch {
	case IsGreeting(question):
		return r.finish(s.canned.Greeting(), models.OutcomeGreeting)
	case IsIdentityQuestion(question):
		return r.finish(s.canned.Identity(), models.OutcomeIdentity)
	case IsOffTopic(question) && !s.topics.MentionsData(question, snapshot):
		return r.finish(s.canned.Generic(), models.OutcomeOffTopic)
	}

	r.enter(models.StageTranslating)
	payload := s.builder.Build(snapshot, question)
	translation, err := s.synthesizer.Synthesize(ctx, payload, question)
	if err != nil {
		logger.Warn("Translation failed", zap.Error(err))
		r.answer.Debug.Error = logging.SanitizeError(err)
		return r.finish(s.canned.Generic(), models.OutcomeFallback)
	}
	r.answer.Debug.RawResponse = translation.Raw

	if !translation.HasStatement() {
		r.enter(models.StageNoStatement)
		switch {
		case IsOffTopic(question):
			return r.finish(s.canned.Generic(), models.OutcomeOffTopic)
		case translation.Raw != "":
			return r.finish(translation.Raw, models.OutcomePassthrough)
		default:
			return r.finish(s.canned.Generic(), models.OutcomeFallback)
		}
	}
	r.enter(models.StageTranslated)
	r.answer.Debug.Statement = translation.Statement

	r.enter(models.StageExecuting)
	result, failure := s.executor.Execute(ctx, r.id, translation.Statement)
	switch {
	case failure != nil:
		r.enter(models.StageExecFailed)
		if len(failure.SchemaDigest) == 0 && failure.Kind == models.FailureUnknownIdentifier {
			failure.SchemaDigest = snapshot.Digest()
		}
		r.answer.Debug.Error = failure.Message
		r.answer.Debug.FailureKind = failure.Kind
		r.answer.Debug.SchemaDigest = failure.SchemaDigest
	case result.IsEmpty():
		r.enter(models.StageExecEmpty)
	default:
		r.enter(models.StageExecSuccess)
		r.answer.Debug.RowCount = result.RowCount
		r.enter(models.StageNarrating)
	}

	narration := s.narrator.Narrate(ctx, question, result, failure)
	if narration.Err != nil {
		r.answer.Debug.Error = logging.SanitizeError(narration.Err)
	}
	return r.finish(narration.Text, narration.Outcome)
}

func (s *askService) Status(ctx context.Context) *StoreStatus {
	status := &StoreStatus{
		LLMConfigured:      s.synthesizer != nil && s.narrator != nil,
		SnapshotGeneration: s.provider.Generation(),
	}

	snapshot, err := s.provider.Get(ctx)
	if err != nil {
		var catErr *models.CatalogError
		switch {
		case errors.Is(err, models.ErrCatalogEmpty):
			status.Message = "Store is reachable but holds no data"
		case errors.As(err, &catErr):
			status.Message = "Store is not reachable: " + logging.SanitizeError(catErr.Cause)
		default:
			status.Message = "Store is not reachable: " + logging.SanitizeError(err)
		}
		return status
	}

	builtAt := snapshot.BuiltAt()
	status.Ready = true
	status.TableCount = snapshot.TableCount()
	status.TotalRows = snapshot.TotalRows()
	status.SnapshotGeneration = snapshot.Generation()
	status.SnapshotBuiltAt = &builtAt
	status.Message = fmt.Sprintf("Database ready with %d tables and %s total records",
		status.TableCount, FormatCount(status.TotalRows))
	for _, t := range snapshot.Tables() {
		status.Tables = append(status.Tables, TableStatus{
			Name:        t.Name,
			DisplayName: t.DisplayName,
			RowCount:    t.RowCount,
			ColumnCount: len(t.Columns),
		})
	}
	return status
}

func (s *askService) History(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	if s.conversations == nil {
		return nil, nil
	}
	return s.conversations.List(ctx, sessionID, 0)
}

func (s *askService) ClearHistory(ctx context.Context, sessionID string) error {
	if s.conversations == nil {
		return nil
	}
	return s.conversations.Clear(ctx, sessionID)
}
