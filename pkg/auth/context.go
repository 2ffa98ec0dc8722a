// Package auth holds the admin gate and the per-browser session state: the
// session id conversations are keyed by, the admin flag and the current screen.
package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// SessionKey is the context key for the request's *SessionState.
	SessionKey contextKey = "session"
	// ClientIPKey is the context key for the caller's address.
	ClientIPKey contextKey = "client_ip"
)

// WithSession returns a copy of ctx carrying state.
func WithSession(ctx context.Context, state *SessionState) context.Context {
	return context.WithValue(ctx, SessionKey, state)
}

// GetSession extracts the session state from the context.
func GetSession(ctx context.Context) (*SessionState, bool) {
	state, ok := ctx.Value(SessionKey).(*SessionState)
	return state, ok && state != nil
}

// SessionIDFromContext returns the session id, or "" outside a session.
func SessionIDFromContext(ctx context.Context) string {
	state, ok := GetSession(ctx)
	if !ok {
		return ""
	}
	return state.ID
}

// IsAdminFromContext reports whether the request's session passed the admin gate.
func IsAdminFromContext(ctx context.Context) bool {
	state, ok := GetSession(ctx)
	return ok && state.Admin
}

// WithClientIP returns a copy of ctx carrying the caller's address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// ClientIPFromContext returns the caller's address, or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ClientIPKey).(string)
	return ip
}
