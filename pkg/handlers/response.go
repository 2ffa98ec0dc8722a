package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ApiResponse is the envelope every JSON endpoint answers with.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// maxJSONBody bounds request bodies decoded by decodeJSON.
const maxJSONBody = 1 << 20

var validate = validator.New()

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a bounded JSON body into dst and runs its validate tags.
// It writes the 400 itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	if err := validate.Struct(dst); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error()); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}
