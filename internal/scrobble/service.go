// Package scrobble records recent Spotify plays into the streaming history
// store, so live listening shows up in analytics alongside bulk imports.
package scrobble

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/antigravity/go-spotify-wrapped/internal/db"
	"github.com/antigravity/go-spotify-wrapped/internal/spotify"
)

// SourceScrobble tags rows written by the live scrobbler.
const SourceScrobble = "scrobble"

// DefaultCooldown is the default minimum time between scrobble runs per user.
const DefaultCooldown = 10 * time.Minute

// recentlyPlayedLimit is the Spotify API maximum.
const recentlyPlayedLimit = 50

// Common errors.
var (
	// ErrTooRecent is returned when a scrobble is attempted within the
	// cooldown period.
	ErrTooRecent = errors.New("scrobble attempted too recently")
)

// Player fetches recent plays from Spotify.
type Player interface {
	RecentlyPlayed(ctx context.Context, limit int) ([]spotify.PlayedTrack, error)
}

// HistoryStore persists play rows.
type HistoryStore interface {
	InsertBatch(ctx context.Context, rows []db.HistoryRow) (int, error)
}

// UserStore reads and updates user scrobble state.
type UserStore interface {
	Get(ctx context.Context, id string) (*db.User, error)
	UpdateLastScrobble(ctx context.Context, id string, scrobbleTime time.Time) error
}

// Service records recent plays for users.
type Service struct {
	history  HistoryStore
	users    UserStore
	cooldown time.Duration
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCooldown sets the minimum time between scrobble runs.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		s.cooldown = d
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.log = logger
	}
}

// New creates a scrobble service.
func New(history HistoryStore, users UserStore, opts ...Option) *Service {
	s := &Service{
		history:  history,
		users:    users,
		cooldown: DefaultCooldown,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result contains the outcome of a scrobble run.
type Result struct {
	Fetched     int       `json:"fetched"`
	Scrobbled   int       `json:"scrobbled"`
	ScrobbledAt time.Time `json:"scrobbledAt"`
}

// CanScrobble reports whether enough time has passed since the user's last
// scrobble run, and when the next run becomes available if not.
func (s *Service) CanScrobble(ctx context.Context, userID string) (bool, time.Time, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return true, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("getting user: %w", err)
	}

	if user.LastScrobbleAt == nil {
		return true, time.Time{}, nil
	}

	next := user.LastScrobbleAt.Add(s.cooldown)
	if time.Now().Before(next) {
		return false, next, nil
	}
	return true, time.Time{}, nil
}

// Scrobble fetches the user's recent plays and stores them with scrobble
// provenance. The duplicate-ignoring insert makes repeated runs safe: plays
// already stored are no-ops. Returns ErrTooRecent inside the cooldown window
// unless force is set.
func (s *Service) Scrobble(ctx context.Context, player Player, userID string, force bool) (*Result, error) {
	if !force {
		ok, next, err := s.CanScrobble(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: next scrobble available at %s", ErrTooRecent, next.Format(time.RFC3339))
		}
	}

	played, err := player.RecentlyPlayed(ctx, recentlyPlayedLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	now := time.Now()
	result := &Result{Fetched: len(played), ScrobbledAt: now}

	if len(played) > 0 {
		rows := make([]db.HistoryRow, len(played))
		for i, p := range played {
			rows[i] = toRow(userID, p)
		}

		inserted, err := s.history.InsertBatch(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("storing scrobbles: %w", err)
		}
		result.Scrobbled = inserted
	}

	if err := s.users.UpdateLastScrobble(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("updating last scrobble: %w", err)
	}

	s.log.Debug().
		Str("user_id", userID).
		Int("fetched", result.Fetched).
		Int("scrobbled", result.Scrobbled).
		Msg("scrobble run complete")

	return result, nil
}

// toRow maps a recent play to a history row. The recently-played API only
// reports finished plays, so ms_played is the track duration.
func toRow(userID string, p spotify.PlayedTrack) db.HistoryRow {
	track := p.Track
	uri := track.URI
	return db.HistoryRow{
		UserID:     userID,
		PlayedAt:   p.PlayedAt,
		MsPlayed:   track.DurationMs,
		TrackName:  &track.Name,
		ArtistName: firstOrNil(track.ArtistNames),
		AlbumName:  &track.Album.Name,
		TrackURI:   &uri,
		Source:     SourceScrobble,
	}
}

func firstOrNil(names []string) *string {
	if len(names) == 0 {
		return nil
	}
	return &names[0]
}
