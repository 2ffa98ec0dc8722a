package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

var (
	// ErrAdminNotConfigured is returned when no admin password is set.
	ErrAdminNotConfigured = errors.New("admin password is not configured")
	// ErrInvalidPassword is returned for a wrong admin password.
	ErrInvalidPassword = errors.New("invalid admin password")
)

// AdminGate checks the shared admin password.
type AdminGate struct {
	digest     [32]byte
	configured bool
}

// NewAdminGate creates a gate for password. An empty password disables admin login.
func NewAdminGate(password string) *AdminGate {
	if password == "" {
		return &AdminGate{}
	}
	return &AdminGate{digest: sha256.Sum256([]byte(password)), configured: true}
}

// Configured reports whether admin login is possible.
func (g *AdminGate) Configured() bool {
	return g.configured
}

// Check compares candidate with the configured password in constant time.
func (g *AdminGate) Check(candidate string) error {
	if !g.configured {
		return ErrAdminNotConfigured
	}
	got := sha256.Sum256([]byte(candidate))
	if subtle.ConstantTimeCompare(got[:], g.digest[:]) != 1 {
		return ErrInvalidPassword
	}
	return nil
}
