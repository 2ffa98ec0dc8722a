package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// SessionName is the name of the session cookie.
const SessionName = "ekaya-ask-session"

// Session value keys.
const (
	sessionKeyID     = "id"
	sessionKeyAdmin  = "admin"
	sessionKeyScreen = "screen"
)

// Screen is the page a browser session is looking at.
type Screen string

const (
	ScreenHome  Screen = "home"
	ScreenChat  Screen = "chat"
	ScreenAdmin Screen = "admin"
)

// ParseScreen validates a screen name.
func ParseScreen(s string) (Screen, error) {
	switch Screen(s) {
	case ScreenHome, ScreenChat, ScreenAdmin:
		return Screen(s), nil
	default:
		return "", fmt.Errorf("unknown screen %q", s)
	}
}

// SessionState is what a browser session carries between requests.
type SessionState struct {
	ID     string `json:"id"`
	Admin  bool   `json:"admin"`
	Screen Screen `json:"screen"`
}

// SessionManager reads and writes SessionState in a signed cookie.
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager creates the cookie store.
//
// The secret can be any passphrase; it is SHA-256 hashed to derive a 32-byte
// signing key. An empty secret gets a random key, so sessions do not survive
// a restart.
func NewSessionManager(secret string, secure bool) (*SessionManager, error) {
	var key [32]byte
	if secret == "" {
		if _, err := rand.Read(key[:]); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	} else {
		key = sha256.Sum256([]byte(secret))
	}

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
	return &SessionManager{store: store}, nil
}

// Load returns the request's session state. A request without a valid cookie
// gets a fresh state with a new id on the home screen.
func (m *SessionManager) Load(r *http.Request) (*SessionState, error) {
	// Get returns a usable new session alongside a decode error for a
	// tampered or stale cookie.
	session, err := m.store.Get(r, SessionName)
	if session == nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	state := &SessionState{Screen: ScreenHome}
	if id, ok := session.Values[sessionKeyID].(string); ok && id != "" {
		state.ID = id
	} else {
		state.ID = uuid.NewString()
	}
	if admin, ok := session.Values[sessionKeyAdmin].(bool); ok {
		state.Admin = admin
	}
	if screen, ok := session.Values[sessionKeyScreen].(string); ok {
		if parsed, err := ParseScreen(screen); err == nil {
			state.Screen = parsed
		}
	}
	return state, nil
}

// Save writes state to the response cookie.
func (m *SessionManager) Save(r *http.Request, w http.ResponseWriter, state *SessionState) error {
	session, _ := m.store.Get(r, SessionName)
	if session == nil {
		session = sessions.NewSession(m.store, SessionName)
	}
	session.Options = m.store.Options
	session.Values[sessionKeyID] = state.ID
	session.Values[sessionKeyAdmin] = state.Admin
	session.Values[sessionKeyScreen] = string(state.Screen)
	return session.Save(r, w)
}
