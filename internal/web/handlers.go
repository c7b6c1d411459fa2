package web

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/antigravity/go-spotify-wrapped/internal/db"
	"github.com/antigravity/go-spotify-wrapped/internal/spotify"
)

// AuthHandlers contains the OAuth sign-in handlers.
type AuthHandlers struct {
	auth     *spotifyauth.Authenticator
	sessions *Sessions
	users    *db.UserRepository // nil without a database
	log      zerolog.Logger
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(auth *spotifyauth.Authenticator, sessions *Sessions, users *db.UserRepository, logger zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		auth:     auth,
		sessions: sessions,
		users:    users,
		log:      logger,
	}
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	// Verify state
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	// Check for error from Spotify
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	// Exchange code for token
	token, err := h.auth.Token(r.Context(), state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	// Get user info from Spotify
	client := spotify.New(spotifyapi.New(h.auth.Client(r.Context(), token)))
	profile, err := client.CurrentUserProfile(r.Context())
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	// Keep the stored profile current
	if h.users != nil {
		user := &db.User{
			ID:          profile.ID,
			DisplayName: profile.DisplayName,
			Email:       profile.Email,
		}
		if profile.ImageURL != "" {
			user.ImageURL = &profile.ImageURL
		}
		if err := h.users.Upsert(r.Context(), user); err != nil {
			h.log.Error().Err(err).Str("user_id", profile.ID).Msg("upserting user on login")
			http.Error(w, "Failed to store user", http.StatusInternalServerError)
			return
		}
	}

	// Create session
	if _, err := h.sessions.SignIn(r.Context(), w, token, profile.ID, profile.DisplayName); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("user_id", profile.ID).Msg("user signed in")

	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut(r.Context(), w, r)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
