package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/auth"
)

// SessionResponse for GET /api/session
type SessionResponse struct {
	Admin           bool        `json:"admin"`
	AdminConfigured bool        `json:"admin_configured"`
	Screen          auth.Screen `json:"screen"`
}

// SetScreenRequest for PUT /api/session/screen
type SetScreenRequest struct {
	Screen string `json:"screen" validate:"required"`
}

// SessionHandler exposes the browser session's navigation state.
type SessionHandler struct {
	authMiddleware *auth.Middleware
	gate           *auth.AdminGate
	logger         *zap.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(authMiddleware *auth.Middleware, gate *auth.AdminGate, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		authMiddleware: authMiddleware,
		gate:           gate,
		logger:         logger,
	}
}

// RegisterRoutes registers the session handler's routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/session", h.authMiddleware.WithSession(h.Get))
	mux.HandleFunc("PUT /api/session/screen", h.authMiddleware.WithSession(h.SetScreen))
}

// Get handles GET /api/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, _ := auth.GetSession(r.Context())
	response := SessionResponse{
		Admin:           state.Admin,
		AdminConfigured: h.gate.Configured(),
		Screen:          state.Screen,
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SetScreen handles PUT /api/session/screen. The admin screen is only
// reachable with an admin session.
func (h *SessionHandler) SetScreen(w http.ResponseWriter, r *http.Request) {
	var req SetScreenRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	screen, err := auth.ParseScreen(req.Screen)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_screen", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	state, _ := auth.GetSession(r.Context())
	if screen == auth.ScreenAdmin && !state.Admin {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Admin login required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	state.Screen = screen
	if err := h.authMiddleware.Sessions().Save(r, w, state); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to save session"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := SessionResponse{
		Admin:           state.Admin,
		AdminConfigured: h.gate.Configured(),
		Screen:          state.Screen,
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
