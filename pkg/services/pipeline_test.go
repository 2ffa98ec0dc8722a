package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/llm"
	"github.com/ekaya-inc/ekaya-ask/pkg/metrics"
	"github.com/ekaya-inc/ekaya-ask/pkg/prompts"
	"github.com/ekaya-inc/ekaya-ask/pkg/repositories"
	"github.com/ekaya-inc/ekaya-ask/pkg/testhelpers"
)

// testPipeline is a fully wired AskService over a SQLite file and a mock
// text-generation client.
type testPipeline struct {
	store    StoreRef
	factory  datasource.DatasourceAdapterFactory
	catalog  SchemaCatalog
	provider *SnapshotProvider
	llm      *llm.MockLLMClient
	ask      AskService
	canned   *CannedAnswers
}

func newTestPipeline(t *testing.T, path string, client *llm.MockLLMClient) *testPipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.NewPipelineMetrics(prometheus.NewRegistry())

	store := SQLiteStore(path)
	factory := datasource.NewDatasourceAdapterFactory(nil, logger)
	catalog := NewSchemaCatalog(store, factory, DefaultCatalogConfig(), logger)
	provider := NewSnapshotProvider(catalog, m, logger)
	hints := prompts.DefaultHints()
	canned := NewCannedAnswers("Test Assistant", hints)

	builder := NewContextBuilder(ContextBuilderConfig{
		AssistantName:      "Test Assistant",
		PromptSampleRows:   5,
		PromptEntityValues: 10,
	}, hints)
	executor := NewSafeExecutor(store, factory, catalog, audit.NewSecurityAuditor(logger),
		SafeExecutorConfig{MaxRows: 100}, m, logger)

	var (
		synth    QuerySynthesizer
		narrator ResultNarrator
	)
	if client != nil {
		synth = NewQuerySynthesizer(client, llm.GenerateOptions{Temperature: 0.1, MaxTokens: 1500}, m, logger)
		narrator = NewResultNarrator(client, llm.GenerateOptions{Temperature: 0.1, MaxTokens: 1000}, canned, m, logger)
	}

	ask := NewAskService(provider, builder, synth, executor, narrator, canned, NewTopicMatcher(hints),
		repositories.NewMemoryConversationRepository(time.Hour), m, logger)

	return &testPipeline{
		store:    store,
		factory:  factory,
		catalog:  catalog,
		provider: provider,
		llm:      client,
		ask:      ask,
		canned:   canned,
	}
}

// newScenarioStore creates sales(product, week, units) holding
// (widget, 25, 10) and (gadget, 25, 5).
func newScenarioStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.db")
	testhelpers.ExecSQLite(t, path, `CREATE TABLE sales (product TEXT, week INTEGER, units INTEGER)`)
	testhelpers.ExecSQLite(t, path, `INSERT INTO sales VALUES ('widget', 25, 10), ('gadget', 25, 5)`)
	return path
}

func translationResponse(statement string) string {
	return prompts.QueryLabel + "\n```sql\n" + statement + "\n```\n" + prompts.ExplanationLabel + " test query"
}
