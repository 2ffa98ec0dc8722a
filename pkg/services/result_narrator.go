package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/llm"
	"github.com/ekaya-inc/ekaya-ask/pkg/metrics"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/prompts"
)

var errEmptyNarration = errors.New("narration response was empty")

// Narration is the narrator's answer. Narrated is true when a second
// text-generation call was made; Err holds why a narrated answer fell back.
type Narration struct {
	Text     string
	Outcome  models.Outcome
	Narrated bool
	Err      error
}

// ResultNarrator turns an execution outcome into the user-facing answer.
type ResultNarrator interface {
	// Narrate makes a text-generation call only for a non-empty result.
	// Empty results and failures get a canned answer.
	Narrate(ctx context.Context, question string, result *models.QueryResult, failure *models.QueryFailure) Narration
}

type resultNarrator struct {
	client  llm.LLMClient
	opts    llm.GenerateOptions
	canned  *CannedAnswers
	metrics *metrics.PipelineMetrics
	logger  *zap.Logger
}

// NewResultNarrator creates a narrator.
func NewResultNarrator(client llm.LLMClient, opts llm.GenerateOptions, canned *CannedAnswers, m *metrics.PipelineMetrics, logger *zap.Logger) ResultNarrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &resultNarrator{
		client:  client,
		opts:    opts,
		canned:  canned,
		metrics: m,
		logger:  logger.Named("result_narrator"),
	}
}

func (n *resultNarrator) Narrate(ctx context.Context, question string, result *models.QueryResult, failure *models.QueryFailure) Narration {
	if failure != nil {
		if failure.Kind == models.FailureUnknownIdentifier {
			return Narration{
				Text:    n.canned.UnknownIdentifier(digestTables(failure.SchemaDigest)),
				Outcome: models.OutcomeUnknownIdentifier,
			}
		}
		return Narration{Text: n.canned.Generic(), Outcome: models.OutcomeFallback}
	}
	if result.IsEmpty() {
		return Narration{Text: n.canned.EmptyResult(), Outcome: models.OutcomeEmptyResult}
	}

	prompt := prompts.BuildNarrationPrompt(question, result.Columns, result.Rows)

	start := time.Now()
	resp, err := n.client.GenerateResponse(ctx, prompts.NarrationInstruction, prompt, n.opts)
	n.metrics.ObserveLLMCall(metrics.CallNarrate, time.Since(start))
	if err != nil {
		n.logger.Warn("Narration call failed", zap.Error(err))
		return Narration{Text: n.canned.Generic(), Outcome: models.OutcomeFallback, Narrated: true, Err: err}
	}

	text := strings.TrimSpace(llm.StripThinking(resp.Content))
	if text == "" {
		return Narration{Text: n.canned.Generic(), Outcome: models.OutcomeFallback, Narrated: true, Err: errEmptyNarration}
	}
	return Narration{Text: text, Outcome: models.OutcomeAnswered, Narrated: true}
}

func digestTables(digest map[string][]string) []string {
	tables := make([]string, 0, len(digest))
	for name := range digest {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables
}
