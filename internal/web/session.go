// Package web provides the HTTP server and JSON API for the wrapped service.
package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/antigravity/go-spotify-wrapped/internal/db"
)

const (
	sessionCookieName = "session_id"
	sessionTTL        = 24 * time.Hour
)

// ErrNoSession is returned by session stores for IDs that are unknown or
// expired. Callers cannot distinguish the two cases.
var ErrNoSession = errors.New("no active session")

// Session is an authenticated browser session. Token carries the refresh
// token, so the oauth2 transport can mint fresh access tokens for the whole
// session lifetime; sessions simply expire after their TTL.
type Session struct {
	ID        string
	Token     *oauth2.Token
	UserID    string
	UserName  string
	ExpiresAt time.Time
}

// SessionStore persists sessions.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Sessions issues, resolves, and revokes session cookies over a backing
// store.
type Sessions struct {
	store SessionStore
}

// NewSessions creates a session front over the given store.
func NewSessions(store SessionStore) *Sessions {
	return &Sessions{store: store}
}

// SignIn creates a session for the user and sets the session cookie.
func (s *Sessions) SignIn(ctx context.Context, w http.ResponseWriter, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := randomID(32)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        id,
		Token:     token,
		UserID:    userID,
		UserName:  userName,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return session, nil
}

// FromRequest resolves the caller's session from the request cookie.
// Returns nil when the cookie is absent or the session is gone.
func (s *Sessions) FromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	session, err := s.store.Get(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return session
}

// SignOut revokes the caller's session, if any, and clears the cookie.
func (s *Sessions) SignOut(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		_ = s.store.Delete(ctx, cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// MemoryStore keeps sessions in process memory, for tests and single-node
// development runs. Expired sessions are dropped on read.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Create stores a session.
func (m *MemoryStore) Create(_ context.Context, session *Session) error {
	m.mu.Lock()
	m.sessions[session.ID] = *session
	m.mu.Unlock()
	return nil
}

// Get retrieves a live session by ID, deleting it if it has expired.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	if time.Now().After(session.ExpiresAt) {
		delete(m.sessions, id)
		return nil, ErrNoSession
	}
	return &session, nil
}

// Delete removes a session by ID.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// PGStore keeps sessions in PostgreSQL so they survive restarts. The
// repository resolves the user's display name alongside the session row.
type PGStore struct {
	sessions *db.SessionRepository
}

// NewPGStore creates a Postgres-backed session store.
func NewPGStore(database *db.DB) *PGStore {
	return &PGStore{sessions: database.Sessions()}
}

// Create stores a session.
func (p *PGStore) Create(ctx context.Context, session *Session) error {
	return p.sessions.Create(ctx, &db.Session{
		ID:           session.ID,
		UserID:       session.UserID,
		AccessToken:  session.Token.AccessToken,
		RefreshToken: session.Token.RefreshToken,
		TokenExpiry:  session.Token.Expiry,
		ExpiresAt:    session.ExpiresAt,
	})
}

// Get retrieves a live session by ID.
func (p *PGStore) Get(ctx context.Context, id string) (*Session, error) {
	row, err := p.sessions.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	return &Session{
		ID: row.ID,
		Token: &oauth2.Token{
			AccessToken:  row.AccessToken,
			RefreshToken: row.RefreshToken,
			Expiry:       row.TokenExpiry,
			TokenType:    "Bearer",
		},
		UserID:    row.UserID,
		UserName:  row.UserName,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

// Delete removes a session by ID.
func (p *PGStore) Delete(ctx context.Context, id string) error {
	return p.sessions.Delete(ctx, id)
}

// randomID returns n cryptographically random bytes, hex encoded.
func randomID(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var (
	_ SessionStore = (*MemoryStore)(nil)
	_ SessionStore = (*PGStore)(nil)
)
