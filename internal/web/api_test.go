package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/antigravity/go-spotify-wrapped/internal/analytics"
	"github.com/antigravity/go-spotify-wrapped/internal/db"
	"github.com/antigravity/go-spotify-wrapped/internal/history"
)

// stubHistoryStore implements history.Store and analytics.HistoryStats with
// duplicate-ignoring inserts keyed like the database constraint.
type stubHistoryStore struct {
	seen map[string]bool
}

func newStubHistoryStore() *stubHistoryStore {
	return &stubHistoryStore{seen: make(map[string]bool)}
}

func (s *stubHistoryStore) InsertBatch(_ context.Context, rows []db.HistoryRow) (int, error) {
	inserted := 0
	for _, r := range rows {
		key := fmt.Sprintf("%s|%d|%s", r.UserID, r.PlayedAt.Unix(), *r.TrackURI)
		if !s.seen[key] {
			s.seen[key] = true
			inserted++
		}
	}
	return inserted, nil
}

func (s *stubHistoryStore) DailyStats(context.Context, string, int) ([]db.DailyStat, error) {
	return nil, nil
}

func (s *stubHistoryStore) HourlyStats(context.Context, string) ([]db.HourlyStat, error) {
	return nil, nil
}

func (s *stubHistoryStore) TopArtists(context.Context, string, int) ([]db.ArtistStat, error) {
	return nil, nil
}

func (s *stubHistoryStore) Totals(context.Context, string) (*db.HistoryTotals, error) {
	return &db.HistoryTotals{}, nil
}

func newTestAPI(t *testing.T) (*API, *Sessions, *stubHistoryStore) {
	t.Helper()

	store := newStubHistoryStore()
	sessions := NewSessions(NewMemoryStore())
	auth := spotifyauth.New(
		spotifyauth.WithClientID("test-client"),
		spotifyauth.WithClientSecret("test-secret"),
		spotifyauth.WithRedirectURL("http://127.0.0.1:8080/callback"),
	)

	api := NewAPI(auth, sessions,
		history.NewImporter(store, zerolog.Nop()),
		analytics.New(store),
		nil, // scrobbler unused in these tests
		zerolog.Nop(),
	)
	return api, sessions, store
}

func signIn(t *testing.T, sessions *Sessions) *Session {
	t.Helper()
	session, err := sessions.SignIn(context.Background(), httptest.NewRecorder(),
		&oauth2.Token{AccessToken: "token"}, "user-1", "Test User")
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	return session
}

func importRequest(t *testing.T, session *Session, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/history/import", strings.NewReader(body))
	if session != nil {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.ID})
	}
	return req
}

func TestImportHistoryUnauthorized(t *testing.T) {
	api, _, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.ImportHistory(rec, importRequest(t, nil, `{"entries":[{"ts":"2023-01-01T00:00:00Z","ms_played":40000}]}`))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestImportHistoryBadRequest(t *testing.T) {
	api, sessions, _ := newTestAPI(t)
	session := signIn(t, sessions)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty entries", body: `{"entries":[]}`},
		{name: "missing entries", body: `{}`},
		{name: "not json", body: `plain text`},
		{name: "wrong top-level shape", body: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			api.ImportHistory(rec, importRequest(t, session, tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestImportHistoryCounters(t *testing.T) {
	api, sessions, store := newTestAPI(t)
	session := signIn(t, sessions)

	body := `{"entries":[
		{"ts":"2023-01-01T10:00:00Z","ms_played":5000,"spotify_track_uri":"spotify:track:a"},
		{"ts":"2023-01-01T10:01:00Z","ms_played":31000,"master_metadata_track_name":"A","spotify_track_uri":"spotify:track:a"},
		{"ts":"2023-01-01T10:02:00Z","ms_played":40000,"spotify_track_uri":null}
	]}`

	rec := httptest.NewRecorder()
	api.ImportHistory(rec, importRequest(t, session, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp history.ImportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if resp.Inserted != 1 || resp.SkippedShort != 1 || resp.Total != 3 {
		t.Errorf("counters = %+v, want inserted 1, skippedShort 1, total 3", resp)
	}

	// Re-importing the same payload inserts nothing new.
	rec = httptest.NewRecorder()
	api.ImportHistory(rec, importRequest(t, session, body))
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Inserted != 0 {
		t.Errorf("second import inserted = %d, want 0", resp.Inserted)
	}
	if len(store.seen) != 1 {
		t.Errorf("store holds %d rows, want 1", len(store.seen))
	}
}

func TestAnalyticsRequiresSession(t *testing.T) {
	api, _, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.Analytics(rec, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAnalyticsEmptyHistory(t *testing.T) {
	api, sessions, _ := newTestAPI(t)
	session := signIn(t, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/analytics", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.ID})

	rec := httptest.NewRecorder()
	api.Analytics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var report analytics.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Summary.TotalTracks != 0 {
		t.Errorf("TotalTracks = %d, want 0", report.Summary.TotalTracks)
	}
}

func TestMe(t *testing.T) {
	api, sessions, _ := newTestAPI(t)
	session := signIn(t, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.ID})

	rec := httptest.NewRecorder()
	api.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["id"] != "user-1" || body["name"] != "Test User" {
		t.Errorf("body = %v", body)
	}
}
