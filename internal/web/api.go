package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/antigravity/go-spotify-wrapped/internal/analytics"
	"github.com/antigravity/go-spotify-wrapped/internal/history"
	"github.com/antigravity/go-spotify-wrapped/internal/scrobble"
	"github.com/antigravity/go-spotify-wrapped/internal/spotify"
	"github.com/antigravity/go-spotify-wrapped/internal/wrapped"
)

// API contains the JSON API handlers.
type API struct {
	auth      *spotifyauth.Authenticator
	sessions  *Sessions
	importer  *history.Importer
	analytics *analytics.Service
	scrobbler *scrobble.Service
	log       zerolog.Logger
}

// NewAPI creates the API handler set.
func NewAPI(auth *spotifyauth.Authenticator, sessions *Sessions, importer *history.Importer, analyticsSvc *analytics.Service, scrobbler *scrobble.Service, logger zerolog.Logger) *API {
	return &API{
		auth:      auth,
		sessions:  sessions,
		importer:  importer,
		analytics: analyticsSvc,
		scrobbler: scrobbler,
		log:       logger,
	}
}

// requireSession resolves the caller's session, writing a 401 when absent.
func (a *API) requireSession(w http.ResponseWriter, r *http.Request) *Session {
	session := a.sessions.FromRequest(r)
	if session == nil || session.UserID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil
	}
	return session
}

// client returns a Spotify client authenticated as the session's user.
func (a *API) client(r *http.Request, session *Session) *spotify.Client {
	return spotify.New(spotifyapi.New(a.auth.Client(r.Context(), session.Token)))
}

// Me returns the signed-in user (GET /api/me).
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":   session.UserID,
		"name": session.UserName,
	})
}

// NowPlaying returns the user's current playback (GET /api/spotify/now-playing).
// Playback errors degrade to a not-playing response rather than failing.
func (a *API) NowPlaying(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	now, err := a.client(r, session).CurrentlyPlaying(r.Context())
	if err != nil {
		a.log.Debug().Err(err).Msg("now playing unavailable")
		respondJSON(w, http.StatusOK, spotify.NowPlaying{})
		return
	}
	respondJSON(w, http.StatusOK, now)
}

// RecentlyPlayed returns the user's recent plays (GET /api/spotify/recently-played).
// Errors degrade to an empty list.
func (a *API) RecentlyPlayed(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	played, err := a.client(r, session).RecentlyPlayed(r.Context(), 50)
	if err != nil {
		a.log.Warn().Err(err).Msg("fetching recently played")
		played = []spotify.PlayedTrack{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": played})
}

// TopTracks returns the user's top tracks (GET /api/spotify/top-tracks).
func (a *API) TopTracks(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	timeRange, err := spotify.ParseTimeRange(r.URL.Query().Get("time_range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tracks, err := a.client(r, session).TopTracks(r.Context(), timeRange, parseLimit(r, spotify.DefaultTopLimit))
	if err != nil {
		a.log.Error().Err(err).Msg("fetching top tracks")
		respondError(w, http.StatusInternalServerError, "Failed to get top tracks")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": tracks})
}

// TopArtists returns the user's top artists (GET /api/spotify/top-artists).
func (a *API) TopArtists(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	timeRange, err := spotify.ParseTimeRange(r.URL.Query().Get("time_range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	artists, err := a.client(r, session).TopArtists(r.Context(), timeRange, parseLimit(r, spotify.DefaultTopLimit))
	if err != nil {
		a.log.Error().Err(err).Msg("fetching top artists")
		respondError(w, http.StatusInternalServerError, "Failed to get top artists")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": artists})
}

// Recommendations returns recommended tracks (GET /api/spotify/recommendations).
// Optional seed_tracks and seed_artists query params override the derived seeds.
func (a *API) Recommendations(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	var seedTracks, seedArtists []string
	if t, ar := r.URL.Query().Get("seed_tracks"), r.URL.Query().Get("seed_artists"); t != "" && ar != "" {
		seedTracks = strings.Split(t, ",")
		seedArtists = strings.Split(ar, ",")
	}

	tracks, err := a.client(r, session).Recommendations(r.Context(), seedTracks, seedArtists,
		parseLimit(r, spotify.DefaultRecommendationLimit))
	if err != nil {
		a.log.Error().Err(err).Msg("fetching recommendations")
		respondError(w, http.StatusInternalServerError, "Failed to get recommendations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

type createPlaylistRequest struct {
	TrackURIs []string `json:"track_uris"`
	Name      string   `json:"name"`
}

// CreatePlaylist creates a playlist from the given tracks (POST /api/spotify/create-playlist).
func (a *API) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.TrackURIs) == 0 {
		respondError(w, http.StatusBadRequest, "No tracks provided")
		return
	}

	name := req.Name
	if name == "" {
		name = "Wrapped Picks - " + time.Now().Format("Jan 2, 2006")
	}

	client := a.client(r, session)
	playlist, err := client.CreatePlaylist(r.Context(), session.UserID, name,
		"Generated from your recent listening")
	if err != nil {
		a.log.Error().Err(err).Msg("creating playlist")
		respondError(w, http.StatusInternalServerError, "Failed to create playlist")
		return
	}

	trackIDs := make([]string, len(req.TrackURIs))
	for i, uri := range req.TrackURIs {
		trackIDs[i] = spotify.TrackIDFromURI(uri)
	}
	if err := client.AddTracksToPlaylist(r.Context(), playlist.ID, trackIDs); err != nil {
		a.log.Error().Err(err).Str("playlist_id", playlist.ID).Msg("adding playlist tracks")
		respondError(w, http.StatusInternalServerError, "Failed to add tracks")
		return
	}

	respondJSON(w, http.StatusOK, playlist)
}

// ImportHistory ingests a chunk of streaming-history entries (POST /api/history/import).
func (a *API) ImportHistory(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	var req history.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Entries) == 0 {
		respondError(w, http.StatusBadRequest, "No entries provided")
		return
	}

	result := a.importer.ImportBatch(r.Context(), session.UserID, req.Entries)
	respondJSON(w, http.StatusOK, result)
}

// Scrobble records the user's recent plays into history (POST /api/history/scrobble).
func (a *API) Scrobble(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	force := r.URL.Query().Get("force") == "true"
	result, err := a.scrobbler.Scrobble(r.Context(), a.client(r, session), session.UserID, force)
	if errors.Is(err, scrobble.ErrTooRecent) {
		respondError(w, http.StatusTooManyRequests, err.Error())
		return
	}
	if err != nil {
		a.log.Error().Err(err).Msg("scrobbling")
		respondError(w, http.StatusInternalServerError, "Scrobble failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Analytics returns the listening report built from stored history (GET /api/analytics).
func (a *API) Analytics(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	report, err := a.analytics.Report(r.Context(), session.UserID)
	if err != nil {
		a.log.Error().Err(err).Msg("building analytics report")
		respondError(w, http.StatusInternalServerError, "Failed to fetch analytics")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Wrapped returns the wrapped story data for a time range (GET /api/wrapped).
func (a *API) Wrapped(w http.ResponseWriter, r *http.Request) {
	session := a.requireSession(w, r)
	if session == nil {
		return
	}

	timeRange, err := spotify.ParseTimeRange(r.URL.Query().Get("time_range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	client := a.client(r, session)
	tracks, err := client.TopTracks(r.Context(), timeRange, spotify.DefaultTopLimit)
	if err != nil {
		a.log.Error().Err(err).Msg("fetching wrapped tracks")
		respondError(w, http.StatusInternalServerError, "Failed to build wrapped")
		return
	}
	artists, err := client.TopArtists(r.Context(), timeRange, spotify.DefaultTopLimit)
	if err != nil {
		a.log.Error().Err(err).Msg("fetching wrapped artists")
		respondError(w, http.StatusInternalServerError, "Failed to build wrapped")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"time_range":        string(timeRange),
		"tracks":            tracks,
		"artists":           artists,
		"albums":            wrapped.DeriveAlbums(tracks, wrapped.DefaultPlaysPerTrack),
		"estimated_minutes": wrapped.EstimateMinutes(tracks, wrapped.DefaultPlaysPerTrack),
	})
}

// ============================================================================
// Helpers
// ============================================================================

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 50 {
		return fallback
	}
	return limit
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
