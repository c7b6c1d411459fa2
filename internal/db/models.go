package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a Spotify user profile.
type User struct {
	ID             string
	DisplayName    string
	Email          string
	ImageURL       *string // nullable
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastScrobbleAt *time.Time // nullable
}

// Session represents an authenticated web session. UserName is joined from
// spotify_users on read and is not a column of the sessions table.
type Session struct {
	ID           string
	UserID       string
	UserName     string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	ExpiresAt    time.Time
}

// HistoryRow represents one persisted play event.
// Uniqueness is enforced on (UserID, PlayedAt, TrackURI); an insert for an
// existing key is a no-op, never an overwrite.
type HistoryRow struct {
	ID         uuid.UUID
	UserID     string
	PlayedAt   time.Time
	MsPlayed   int
	TrackName  *string // nullable
	ArtistName *string // nullable
	AlbumName  *string // nullable
	TrackURI   *string // nullable
	Skipped    bool
	Source     string // "import" or "scrobble"
	CreatedAt  time.Time
}

// DailyStat is one day of aggregated listening.
type DailyStat struct {
	Day     time.Time
	Minutes int
	Plays   int
}

// HourlyStat is one hour-of-day bucket of aggregated listening.
type HourlyStat struct {
	Hour  int // 0-23
	Plays int
}

// ArtistStat is an artist's play count over the stored history.
type ArtistStat struct {
	ArtistName string
	Plays      int
	Minutes    int
}

// HistoryTotals are the overall listening totals for a user.
type HistoryTotals struct {
	TotalMs     int64
	TotalTracks int
}
