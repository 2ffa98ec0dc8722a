package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/llm"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/metrics"
	"github.com/ekaya-inc/ekaya-ask/pkg/prompts"
)

// Translation is the parsed response of a translation call. An empty
// Statement means the model answered without a query.
type Translation struct {
	Statement   string
	Explanation string
	Raw         string // Response with reasoning blocks removed
}

// HasStatement reports whether a query was found.
func (t *Translation) HasStatement() bool {
	return t.Statement != ""
}

// QuerySynthesizer turns a question into a single statement with one
// text-generation call.
type QuerySynthesizer interface {
	// Synthesize returns an error only when the text-generation call fails.
	// A response without a query is a Translation with no Statement.
	Synthesize(ctx context.Context, payload InstructionPayload, question string) (*Translation, error)
}

type querySynthesizer struct {
	client  llm.LLMClient
	opts    llm.GenerateOptions
	metrics *metrics.PipelineMetrics
	logger  *zap.Logger
}

// NewQuerySynthesizer creates a synthesizer. opts should carry a low
// temperature: a correct query matters more than varied phrasing.
func NewQuerySynthesizer(client llm.LLMClient, opts llm.GenerateOptions, m *metrics.PipelineMetrics, logger *zap.Logger) QuerySynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &querySynthesizer{
		client:  client,
		opts:    opts,
		metrics: m,
		logger:  logger.Named("query_synthesizer"),
	}
}

func (s *querySynthesizer) Synthesize(ctx context.Context, payload InstructionPayload, question string) (*Translation, error) {
	start := time.Now()
	result, err := s.client.GenerateResponse(ctx, question, payload.Text, s.opts)
	s.metrics.ObserveLLMCall(metrics.CallTranslate, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("translation call: %w", err)
	}

	translation := ParseTranslation(result.Content)

	s.logger.Debug("Translation received",
		zap.Int("payload_bytes", len(payload.Text)),
		zap.Int("completion_tokens", result.CompletionTokens),
		zap.Bool("has_statement", translation.HasStatement()),
		zap.String("statement", logging.SanitizeQuery(translation.Statement)))

	return translation, nil
}

// ParseTranslation extracts the statement and explanation from a response
// that follows the labeled format. Text search, not a grammar: anything
// after the query label up to the explanation label is the statement.
func ParseTranslation(raw string) *Translation {
	raw = strings.TrimSpace(llm.StripThinking(raw))
	t := &Translation{Raw: raw}

	idx := strings.Index(raw, prompts.QueryLabel)
	if idx < 0 {
		return t
	}
	body := raw[idx+len(prompts.QueryLabel):]
	if end := strings.Index(body, prompts.ExplanationLabel); end >= 0 {
		t.Explanation = strings.TrimSpace(body[end+len(prompts.ExplanationLabel):])
		body = body[:end]
	}

	t.Statement = SanitizeStatement(body)
	return t
}

var fenceReplacer = strings.NewReplacer(
	"```sql", "",
	"```SQL", "",
	"```", "",
	"<code>", "",
	"</code>", "",
	prompts.QueryLabel, "",
	prompts.ExplanationLabel, "",
)

// SanitizeStatement strips fencing and stray labels, collapses whitespace
// and ends the statement with exactly one semicolon. Returns "" when
// nothing is left.
func SanitizeStatement(s string) string {
	s = fenceReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	if s == "" {
		return ""
	}
	return s + ";"
}
