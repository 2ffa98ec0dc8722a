package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/auth"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

// mockAskService answers every question with the configured answer and keeps
// history in memory.
type mockAskService struct {
	mu         sync.Mutex
	answer     *models.Answer
	status     *services.StoreStatus
	historyErr error
	questions  []string
	sessionIDs []string
	history    map[string][]models.ConversationTurn
}

func (m *mockAskService) Ask(ctx context.Context, sessionID, question string) *models.Answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, question)
	m.sessionIDs = append(m.sessionIDs, sessionID)

	answer := m.answer
	if answer == nil {
		answer = &models.Answer{Text: "ok", Outcome: models.OutcomeAnswered}
	}
	if m.history == nil {
		m.history = make(map[string][]models.ConversationTurn)
	}
	m.history[sessionID] = append(m.history[sessionID], models.ConversationTurn{
		Question: question,
		Answer:   answer.Text,
		Outcome:  answer.Outcome,
		AskedAt:  time.Now(),
	})
	return answer
}

func (m *mockAskService) Status(ctx context.Context) *services.StoreStatus {
	if m.status != nil {
		return m.status
	}
	return &services.StoreStatus{Ready: true, Message: "Database ready with 1 tables and 2 total records"}
}

func (m *mockAskService) History(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[sessionID], nil
}

func (m *mockAskService) ClearHistory(ctx context.Context, sessionID string) error {
	if m.historyErr != nil {
		return m.historyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, sessionID)
	return nil
}

type mockSchemaCatalog struct {
	digest map[string][]string
	err    error
}

func (m *mockSchemaCatalog) Build(ctx context.Context, generation uint64) (*models.SchemaSnapshot, error) {
	return nil, m.err
}

func (m *mockSchemaCatalog) Digest(ctx context.Context) (map[string][]string, error) {
	return m.digest, m.err
}

type mockIngestionService struct {
	summary  *models.IngestionSummary
	err      error
	received []byte
	source   string
}

func (m *mockIngestionService) IngestWorkbook(ctx context.Context, r io.Reader, source string) (*models.IngestionSummary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.received = data
	m.source = source
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func (m *mockIngestionService) IngestFile(ctx context.Context, path string) (*models.IngestionSummary, error) {
	return m.summary, m.err
}

// testServer wires every browser-facing handler onto one mux.
type testServer struct {
	*httptest.Server
	ask       *mockAskService
	catalog   *mockSchemaCatalog
	ingestion *mockIngestionService
}

func newTestServer(t *testing.T, adminPassword string) *testServer {
	t.Helper()

	sessions, err := auth.NewSessionManager("handler-test-secret", false)
	require.NoError(t, err)
	authMiddleware := auth.NewMiddleware(sessions, zap.NewNop())
	gate := auth.NewAdminGate(adminPassword)

	ts := &testServer{
		ask:       &mockAskService{},
		catalog:   &mockSchemaCatalog{},
		ingestion: &mockIngestionService{},
	}

	mux := http.NewServeMux()
	NewAskHandler(ts.ask, zap.NewNop()).RegisterRoutes(mux, authMiddleware)
	NewSessionHandler(authMiddleware, gate, zap.NewNop()).RegisterRoutes(mux)
	NewAdminHandler(authMiddleware, gate, audit.NewSecurityAuditor(zap.NewNop()),
		ts.ask, ts.catalog, ts.ingestion, zap.NewNop()).RegisterRoutes(mux)

	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// newBrowser returns a client that keeps the session cookie between requests.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}
