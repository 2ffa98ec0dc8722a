package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/auth"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

// MaxWorkbookBytes caps a workbook upload.
const MaxWorkbookBytes = 32 << 20

// ============================================================================
// Request/Response Types
// ============================================================================

// AdminLoginRequest for POST /api/admin/login
type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// SchemaDigestResponse for GET /api/admin/schema
type SchemaDigestResponse struct {
	Tables map[string][]string `json:"tables"`
}

// ============================================================================
// Handler
// ============================================================================

// AdminHandler serves the admin screen: login, store status, schema and
// workbook uploads.
type AdminHandler struct {
	authMiddleware   *auth.Middleware
	gate             *auth.AdminGate
	auditor          *audit.SecurityAuditor
	askService       services.AskService
	catalog          services.SchemaCatalog
	ingestionService services.IngestionService
	logger           *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	authMiddleware *auth.Middleware,
	gate *auth.AdminGate,
	auditor *audit.SecurityAuditor,
	askService services.AskService,
	catalog services.SchemaCatalog,
	ingestionService services.IngestionService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		authMiddleware:   authMiddleware,
		gate:             gate,
		auditor:          auditor,
		askService:       askService,
		catalog:          catalog,
		ingestionService: ingestionService,
		logger:           logger,
	}
}

// RegisterRoutes registers the admin handler's routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/admin/login", h.authMiddleware.WithSession(h.Login))
	mux.HandleFunc("POST /api/admin/logout", h.authMiddleware.WithSession(h.Logout))
	mux.HandleFunc("GET /api/admin/status", h.authMiddleware.RequireAdmin(h.Status))
	mux.HandleFunc("GET /api/admin/schema", h.authMiddleware.RequireAdmin(h.Schema))
	mux.HandleFunc("POST /api/admin/workbook", h.authMiddleware.RequireAdmin(h.UploadWorkbook))
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	ctx := r.Context()
	if err := h.gate.Check(req.Password); err != nil {
		if errors.Is(err, auth.ErrAdminNotConfigured) {
			if err := ErrorResponse(w, http.StatusServiceUnavailable, "admin_not_configured", "Admin access is not configured"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.auditor.LogAdminLogin(ctx, false)
		if err := ErrorResponse(w, http.StatusUnauthorized, "invalid_password", "Invalid password"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	state, _ := auth.GetSession(ctx)
	state.Admin = true
	state.Screen = auth.ScreenAdmin
	if !h.saveSession(w, r, state) {
		return
	}
	h.auditor.LogAdminLogin(ctx, true)

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Logged in"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Logout handles POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	state, _ := auth.GetSession(r.Context())
	state.Admin = false
	if state.Screen == auth.ScreenAdmin {
		state.Screen = auth.ScreenHome
	}
	if !h.saveSession(w, r, state) {
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Logged out"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Status handles GET /api/admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.askService.Status(r.Context())
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: status}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Schema handles GET /api/admin/schema
func (h *AdminHandler) Schema(w http.ResponseWriter, r *http.Request) {
	digest, err := h.catalog.Digest(r.Context())
	if err != nil {
		h.logger.Error("Failed to read schema digest", zap.Error(err))
		if err := ErrorResponse(w, http.StatusServiceUnavailable, "store_unavailable", "Could not read the store schema"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := SchemaDigestResponse{Tables: digest}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UploadWorkbook handles POST /api/admin/workbook with a multipart "file" field.
func (h *AdminHandler) UploadWorkbook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxWorkbookBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Debug("Workbook upload without a usable file", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Expected a workbook in the 'file' field"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer file.Close()

	summary, err := h.ingestionService.IngestWorkbook(r.Context(), file, header.Filename)
	if err != nil {
		status, code := http.StatusInternalServerError, "ingestion_failed"
		switch {
		case errors.Is(err, apperrors.ErrNotWritable):
			status, code = http.StatusConflict, "store_not_writable"
		case errors.Is(err, apperrors.ErrIngestionFailed):
			status = http.StatusUnprocessableEntity
		}
		h.logger.Error("Workbook upload failed",
			zap.String("filename", header.Filename),
			zap.Error(err))
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: summary}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *AdminHandler) saveSession(w http.ResponseWriter, r *http.Request, state *auth.SessionState) bool {
	if err := h.authMiddleware.Sessions().Save(r, w, state); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to save session"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}
