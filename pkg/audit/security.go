// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/auth"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a literal in a generated statement.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventStatementRejected is logged when a generated statement is not a single read-only query.
	EventStatementRejected SecurityEventType = "statement_rejected"
	// EventAdminLogin is logged for a successful admin password check.
	EventAdminLogin SecurityEventType = "admin_login"
	// EventAdminLoginFailed is logged for a wrong admin password.
	EventAdminLoginFailed SecurityEventType = "admin_login_failed"
	// EventWorkbookIngested is logged when an admin replaces store contents.
	EventWorkbookIngested SecurityEventType = "workbook_ingested"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  SecurityEventType `json:"event_type"`
	QuestionID uuid.UUID         `json:"question_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	Details    any               `json:"details"`
	Severity   string            `json:"severity"` // info, warning, critical
}

// StatementDetails describes a generated statement the executor refused.
type StatementDetails struct {
	Statement string `json:"statement"` // Sanitized
	Reason    string `json:"reason"`
}

// SQLInjectionDetails contains specifics of a flagged literal.
type SQLInjectionDetails struct {
	Statement   string `json:"statement"`   // Sanitized
	Literal     string `json:"literal"`     // Truncated
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records a literal that libinjection flagged inside a
// generated statement. Logged at ERROR with "critical" severity: a question
// that steers the model into emitting injection payloads is hostile.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, questionID uuid.UUID, details SQLInjectionDetails) {
	details.Statement = logging.SanitizeQuery(details.Statement)
	details.Literal = logging.TruncateString(details.Literal, 200)

	event := a.newEvent(ctx, EventSQLInjectionAttempt, questionID, details, "critical")
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("SQL injection pattern in generated statement",
		zap.String("event_json", string(eventJSON)),
		zap.String("question_id", questionID.String()),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("session_id", event.SessionID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", "critical"),
	)
}

// LogStatementRejected records a generated statement that was not a single
// read-only query.
func (a *SecurityAuditor) LogStatementRejected(ctx context.Context, questionID uuid.UUID, details StatementDetails) {
	details.Statement = logging.SanitizeQuery(details.Statement)

	event := a.newEvent(ctx, EventStatementRejected, questionID, details, "warning")
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Generated statement rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("question_id", questionID.String()),
		zap.String("reason", details.Reason),
		zap.String("session_id", event.SessionID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", "warning"),
	)
}

// LogAdminLogin records an admin password check.
func (a *SecurityAuditor) LogAdminLogin(ctx context.Context, success bool) {
	eventType, severity, msg := EventAdminLogin, "info", "Admin login"
	if !success {
		eventType, severity, msg = EventAdminLoginFailed, "warning", "Admin login failed"
	}

	event := a.newEvent(ctx, eventType, uuid.Nil, map[string]bool{"success": success}, severity)
	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("session_id", event.SessionID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", severity),
	}
	if success {
		a.logger.Info(msg, fields...)
	} else {
		a.logger.Warn(msg, fields...)
	}
}

// LogWorkbookIngested records which tables an ingestion replaced.
func (a *SecurityAuditor) LogWorkbookIngested(ctx context.Context, source string, tables []string) {
	details := map[string]any{"source": source, "tables": tables}
	event := a.newEvent(ctx, EventWorkbookIngested, uuid.Nil, details, "info")
	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Workbook ingested",
		zap.String("event_json", string(eventJSON)),
		zap.String("source", source),
		zap.Int("table_count", len(tables)),
		zap.String("session_id", event.SessionID),
		zap.String("severity", "info"),
	)
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, questionID uuid.UUID, details any, severity string) SecurityEvent {
	return SecurityEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		QuestionID: questionID,
		SessionID:  auth.SessionIDFromContext(ctx),
		ClientIP:   auth.ClientIPFromContext(ctx),
		Details:    details,
		Severity:   severity,
	}
}
