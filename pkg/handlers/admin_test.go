package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-ask/pkg/auth"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

func loginAdmin(t *testing.T, ts *testServer, browser *http.Client) {
	t.Helper()
	status, resp := doJSON[any](t, browser, http.MethodPost, ts.URL+"/api/admin/login",
		AdminLoginRequest{Password: "s3cret"})
	require.Equal(t, http.StatusOK, status, "login failed: %s", resp.Message)
}

func uploadWorkbook(t *testing.T, browser *http.Client, url, field, filename string, content []byte) (int, envelope[models.IngestionSummary]) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url+"/api/admin/workbook", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := browser.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope[models.IngestionSummary]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestAdminHandler_Login(t *testing.T) {
	ts := newTestServer(t, "s3cret")
	browser := newBrowser(t)

	status, resp := doJSON[any](t, browser, http.MethodPost, ts.URL+"/api/admin/login",
		AdminLoginRequest{Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_password", resp.Error)

	_, session := doJSON[SessionResponse](t, browser, http.MethodGet, ts.URL+"/api/session", nil)
	assert.False(t, session.Data.Admin)

	loginAdmin(t, ts, browser)

	_, session = doJSON[SessionResponse](t, browser, http.MethodGet, ts.URL+"/api/session", nil)
	assert.True(t, session.Data.Admin)
	assert.Equal(t, auth.ScreenAdmin, session.Data.Screen)

	status, _ = doJSON[any](t, browser, http.MethodPost, ts.URL+"/api/admin/logout", nil)
	require.Equal(t, http.StatusOK, status)

	_, session = doJSON[SessionResponse](t, browser, http.MethodGet, ts.URL+"/api/session", nil)
	assert.False(t, session.Data.Admin)
	assert.Equal(t, auth.ScreenHome, session.Data.Screen)
}

func TestAdminHandler_Login_NotConfigured(t *testing.T) {
	ts := newTestServer(t, "")

	status, resp := doJSON[any](t, newBrowser(t), http.MethodPost, ts.URL+"/api/admin/login",
		AdminLoginRequest{Password: "anything"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "admin_not_configured", resp.Error)
}

func TestAdminHandler_RequiresAdmin(t *testing.T) {
	ts := newTestServer(t, "s3cret")
	browser := newBrowser(t)

	for _, path := range []string{"/api/admin/status", "/api/admin/schema"} {
		status, resp := doJSON[any](t, browser, http.MethodGet, ts.URL+path, nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, "unauthorized", resp.Error, path)
	}

	status, _ := uploadWorkbook(t, browser, ts.URL, "file", "sales.xlsx", []byte("xlsx"))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Nil(t, ts.ingestion.received)
}

func TestAdminHandler_Status(t *testing.T) {
	ts := newTestServer(t, "s3cret")
	builtAt := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	ts.ask.status = &services.StoreStatus{
		Ready:      true,
		Message:    "Database ready with 1 tables and 2 total records",
		TableCount: 1,
		TotalRows:  2,
		Tables: []services.TableStatus{
			{Name: "sales", DisplayName: "Sales", RowCount: 2, ColumnCount: 3},
		},
		SnapshotGeneration: 1,
		SnapshotBuiltAt:    &builtAt,
	}
	browser := newBrowser(t)
	loginAdmin(t, ts, browser)

	status, resp := doJSON[services.StoreStatus](t, browser, http.MethodGet, ts.URL+"/api/admin/status", nil)

	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Data.Ready)
	assert.Equal(t, "Database ready with 1 tables and 2 total records", resp.Data.Message)
	require.Len(t, resp.Data.Tables, 1)
	assert.Equal(t, int64(2), resp.Data.Tables[0].RowCount)
}

func TestAdminHandler_Schema(t *testing.T) {
	ts := newTestServer(t, "s3cret")
	ts.catalog.digest = map[string][]string{"sales": {"product", "week", "units"}}
	browser := newBrowser(t)
	loginAdmin(t, ts, browser)

	status, resp := doJSON[SchemaDigestResponse](t, browser, http.MethodGet, ts.URL+"/api/admin/schema", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"product", "week", "units"}, resp.Data.Tables["sales"])

	ts.catalog.err = errors.New("unable to open database file")
	status, errResp := doJSON[any](t, browser, http.MethodGet, ts.URL+"/api/admin/schema", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "store_unavailable", errResp.Error)
}

func TestAdminHandler_UploadWorkbook(t *testing.T) {
	ts := newTestServer(t, "s3cret")
	ts.ingestion.summary = &models.IngestionSummary{
		Source:    "sales.xlsx",
		Tables:    []models.IngestedTable{{Sheet: "Weekly Sales", Table: "Weekly_Sales", RowCount: 3}},
		TotalRows: 3,
	}
	browser := newBrowser(t)
	loginAdmin(t, ts, browser)

	status, resp := uploadWorkbook(t, browser, ts.URL, "file", "sales.xlsx", []byte("workbook bytes"))

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, resp.Data.TotalRows)
	assert.Equal(t, "Weekly_Sales", resp.Data.Tables[0].Table)
	assert.Equal(t, "sales.xlsx", ts.ingestion.source)
	assert.Equal(t, []byte("workbook bytes"), ts.ingestion.received)
}

func TestAdminHandler_UploadWorkbook_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"store not writable", fmt.Errorf("postgres: %w", apperrors.ErrNotWritable), http.StatusConflict, "store_not_writable"},
		{"unreadable workbook", fmt.Errorf("%w: zip: not a valid zip file", apperrors.ErrIngestionFailed), http.StatusUnprocessableEntity, "ingestion_failed"},
		{"write failure", errors.New("disk I/O error"), http.StatusInternalServerError, "ingestion_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, "s3cret")
			ts.ingestion.err = tt.err
			browser := newBrowser(t)
			loginAdmin(t, ts, browser)

			status, resp := uploadWorkbook(t, browser, ts.URL, "file", "sales.xlsx", []byte("x"))
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestAdminHandler_UploadWorkbook_MissingFile(t *testing.T) {
	ts := newTestServer(t, "s3cret")
	browser := newBrowser(t)
	loginAdmin(t, ts, browser)

	status, resp := uploadWorkbook(t, browser, ts.URL, "attachment", "sales.xlsx", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", resp.Error)
	assert.Nil(t, ts.ingestion.received)
}
