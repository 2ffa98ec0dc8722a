package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/auth"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// AskRequest for POST /api/ask
type AskRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

// ConversationResponse for GET /api/conversation
type ConversationResponse struct {
	Turns []models.ConversationTurn `json:"turns"`
	Total int                       `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// AskHandler serves the chat screen: questions and the session's conversation.
type AskHandler struct {
	askService services.AskService
	logger     *zap.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(askService services.AskService, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		askService: askService,
		logger:     logger,
	}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/ask", authMiddleware.WithSession(h.Ask))
	mux.HandleFunc("GET /api/conversation", authMiddleware.WithSession(h.Conversation))
	mux.HandleFunc("DELETE /api/conversation", authMiddleware.WithSession(h.ClearConversation))
}

// Ask handles POST /api/ask. The pipeline never fails, so every valid request
// gets a 200 with an answer; pipeline diagnostics are only shown to admins.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	ctx := r.Context()
	answer := h.askService.Ask(ctx, auth.SessionIDFromContext(ctx), req.Question)
	if !auth.IsAdminFromContext(ctx) {
		answer = answer.Public()
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: answer}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Conversation handles GET /api/conversation
func (h *AskHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	turns, err := h.askService.History(ctx, auth.SessionIDFromContext(ctx))
	if err != nil {
		h.logger.Error("Failed to load conversation", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "load_conversation_failed", "Failed to load conversation"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if turns == nil {
		turns = []models.ConversationTurn{}
	}

	response := ConversationResponse{Turns: turns, Total: len(turns)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ClearConversation handles DELETE /api/conversation
func (h *AskHandler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.askService.ClearHistory(ctx, auth.SessionIDFromContext(ctx)); err != nil {
		h.logger.Error("Failed to clear conversation", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "clear_conversation_failed", "Failed to clear conversation"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Conversation cleared"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
