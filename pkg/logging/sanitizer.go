// Package logging redacts secrets from values before they reach a log line.
package logging

import (
	"regexp"
	"strings"
)

const (
	// MaxQueryLogLength is the maximum length of a statement to log
	MaxQueryLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx and sqlite's _auth_pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass|_auth_pass)=[^;&\s]+`)

	// OpenAI (sk-...) and Anthropic (sk-ant-...) style keys anywhere in text
	secretKeyPattern = regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`)

	// Bearer tokens
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]+`)

	// api_key=..., key=... query parameters
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// user:pass@host in URLs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

func redact(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@")
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = secretKeyPattern.ReplaceAllString(s, RedactedText)
	return s
}

// SanitizeConnectionString removes credentials from a DSN or URL.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	return redact(connStr)
}

// SanitizeError returns the error text with credentials removed.
// Driver errors sometimes echo the DSN they failed on.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return redact(err.Error())
}

// SanitizeQuery collapses whitespace, truncates and redacts a statement for logging.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	sanitized := strings.TrimSpace(whitespaceRun.ReplaceAllString(query, " "))
	return redact(TruncateString(sanitized, MaxQueryLogLength))
}

// TruncateString truncates a string to maxLen bytes and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
