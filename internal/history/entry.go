// Package history implements the streaming-history import pipeline: filtering
// and normalizing raw export entries, chunking them for transport and storage,
// and uploading local export files to the import endpoint.
package history

import (
	"time"

	"github.com/antigravity/go-spotify-wrapped/internal/db"
)

const (
	// MinPlayedMs is the minimum play duration for an entry to be stored.
	// Shorter plays are counted as skipped.
	MinPlayedMs = 30000

	// TransportChunkSize is the number of entries per client-to-server call.
	TransportChunkSize = 2000

	// StoreChunkSize is the number of entries per database insert.
	StoreChunkSize = 500

	// SourceImport tags rows created by a bulk import, as opposed to rows
	// written by the live scrobbler.
	SourceImport = "import"
)

// PlayEvent is one raw record from a Spotify extended streaming history
// export, with the field names used by the export files.
type PlayEvent struct {
	Timestamp  string  `json:"ts"`
	MsPlayed   int     `json:"ms_played"`
	TrackName  *string `json:"master_metadata_track_name"`
	ArtistName *string `json:"master_metadata_album_artist_name"`
	AlbumName  *string `json:"master_metadata_album_album_name"`
	TrackURI   *string `json:"spotify_track_uri"`
	Skipped    *bool   `json:"skipped"`
}

// Rejection classifies why an entry was not accepted for storage.
type Rejection int

const (
	// Accepted means the entry normalized cleanly.
	Accepted Rejection = iota

	// RejectedShort means the entry played for less than MinPlayedMs.
	// These are reported as skippedShort.
	RejectedShort

	// RejectedNoTrack means the entry has no track URI (podcast episodes in
	// older exports). Excluded from inserted without a wire counter.
	RejectedNoTrack

	// RejectedBadTime means the entry's timestamp could not be parsed.
	RejectedBadTime
)

// Normalize filters and maps one raw export entry to a storable history row.
// The returned Rejection is Accepted when the row is usable; any other value
// means the row must be discarded. Rejections are checked in order: duration,
// track URI, timestamp.
func Normalize(userID string, e PlayEvent) (db.HistoryRow, Rejection) {
	if e.MsPlayed < MinPlayedMs {
		return db.HistoryRow{}, RejectedShort
	}
	if e.TrackURI == nil || *e.TrackURI == "" {
		return db.HistoryRow{}, RejectedNoTrack
	}

	playedAt, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return db.HistoryRow{}, RejectedBadTime
	}

	skipped := false
	if e.Skipped != nil {
		skipped = *e.Skipped
	}

	return db.HistoryRow{
		UserID:     userID,
		PlayedAt:   playedAt,
		MsPlayed:   e.MsPlayed,
		TrackName:  e.TrackName,
		ArtistName: e.ArtistName,
		AlbumName:  e.AlbumName,
		TrackURI:   e.TrackURI,
		Skipped:    skipped,
		Source:     SourceImport,
	}, Accepted
}
