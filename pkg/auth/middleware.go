package auth

import (
	"encoding/json"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// Middleware attaches session state to requests and enforces the admin gate.
type Middleware struct {
	sessions *SessionManager
	logger   *zap.Logger
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(sessions *SessionManager, logger *zap.Logger) *Middleware {
	return &Middleware{
		sessions: sessions,
		logger:   logger,
	}
}

// Sessions returns the session manager handlers use to persist changes.
func (m *Middleware) Sessions() *SessionManager {
	return m.sessions
}

// WithSession loads (or starts) the browser session, refreshes its cookie and
// puts the state and client address in the request context.
func (m *Middleware) WithSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := m.sessions.Load(r)
		if err != nil {
			m.logger.Error("Failed to load session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load session")
			return
		}
		if err := m.sessions.Save(r, w, state); err != nil {
			m.logger.Error("Failed to save session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to save session")
			return
		}

		ctx := WithSession(r.Context(), state)
		ctx = WithClientIP(ctx, clientIP(r))
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin is WithSession plus the admin flag check.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.WithSession(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdminFromContext(r.Context()) {
			m.logger.Debug("Admin endpoint without admin session",
				zap.String("path", r.URL.Path))
			writeError(w, http.StatusUnauthorized, "unauthorized", "Admin login required")
			return
		}
		next(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
