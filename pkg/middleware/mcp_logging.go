package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
)

// maxLoggedArgument bounds each logged tool argument.
const maxLoggedArgument = 200

// MCPRequestLogger logs JSON-RPC calls on the MCP endpoint: the method, the
// tool name and its arguments going in, and whether the tool reported an
// error coming out. Streamed (SSE) responses are passed through unparsed.
// A nil logger disables it.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				http.Error(w, "unreadable request body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var req jsonRPCRequest
			if err := json.Unmarshal(body, &req); err != nil {
				logger.Debug("MCP request is not a single JSON-RPC call", zap.Error(err))
			}

			requestID := RequestIDFromContext(r.Context())
			if req.Method == "tools/call" {
				logger.Info("MCP tool call",
					zap.String("request_id", requestID),
					zap.String("tool", req.Params.Name),
					zap.Any("arguments", sanitizeArguments(req.Params.Arguments)))
			} else {
				logger.Debug("MCP request",
					zap.String("request_id", requestID),
					zap.String("method", req.Method))
			}

			recorder := &mcpResponseRecorder{ResponseWriter: w, body: &bytes.Buffer{}}
			start := time.Now()
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)

			if req.Method != "tools/call" || recorder.streamed {
				return
			}

			var resp jsonRPCResponse
			if err := json.Unmarshal(recorder.body.Bytes(), &resp); err != nil {
				logger.Debug("MCP response is not JSON", zap.Error(err))
				return
			}

			switch {
			case resp.Error != nil:
				logger.Warn("MCP tool call failed",
					zap.String("request_id", requestID),
					zap.String("tool", req.Params.Name),
					zap.Int("error_code", resp.Error.Code),
					zap.String("error_message", resp.Error.Message),
					zap.Duration("duration", duration))
			case resp.Result.IsError:
				logger.Warn("MCP tool returned an error result",
					zap.String("request_id", requestID),
					zap.String("tool", req.Params.Name),
					zap.Duration("duration", duration))
			default:
				logger.Debug("MCP tool call completed",
					zap.String("request_id", requestID),
					zap.String("tool", req.Params.Name),
					zap.Duration("duration", duration))
			}
		})
	}
}

type jsonRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type jsonRPCResponse struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *jsonRPCError `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// mcpResponseRecorder tees the response body so it can be inspected after
// the handler returns. Event streams are not buffered.
type mcpResponseRecorder struct {
	http.ResponseWriter
	body     *bytes.Buffer
	streamed bool
}

func (r *mcpResponseRecorder) Write(b []byte) (int, error) {
	if strings.HasPrefix(r.Header().Get("Content-Type"), "text/event-stream") {
		r.streamed = true
	}
	if !r.streamed {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

func (r *mcpResponseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *mcpResponseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// sanitizeArguments redacts credential-looking keys and truncates long values.
func sanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	sensitive := []string{"password", "secret", "token", "key", "credential"}
	result := make(map[string]any, len(args))
	for k, v := range args {
		lower := strings.ToLower(k)
		redacted := false
		for _, kw := range sensitive {
			if strings.Contains(lower, kw) {
				redacted = true
				break
			}
		}
		if redacted {
			result[k] = logging.RedactedText
			continue
		}
		if s, ok := v.(string); ok {
			result[k] = logging.TruncateString(s, maxLoggedArgument)
			continue
		}
		result[k] = v
	}
	return result
}
