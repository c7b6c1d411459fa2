package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository handles streaming history database operations.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// InsertBatch inserts multiple history rows, ignoring rows whose natural key
// (user_id, played_at, track_uri) already exists. Returns the number of rows
// actually written. Existing rows are never updated.
func (r *HistoryRepository) InsertBatch(ctx context.Context, rows []HistoryRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO streaming_history
			(id, user_id, played_at, ms_played, track_name, artist_name, album_name, track_uri, skipped, source, created_at)
		SELECT * FROM unnest(
			$1::uuid[], $2::text[], $3::timestamptz[], $4::int[], $5::text[],
			$6::text[], $7::text[], $8::text[], $9::bool[], $10::text[], $11::timestamptz[])
		ON CONFLICT (user_id, played_at, track_uri) DO NOTHING
	`

	ids := make([]uuid.UUID, len(rows))
	userIDs := make([]string, len(rows))
	playedAts := make([]time.Time, len(rows))
	msPlayeds := make([]int, len(rows))
	trackNames := make([]*string, len(rows))
	artistNames := make([]*string, len(rows))
	albumNames := make([]*string, len(rows))
	trackURIs := make([]*string, len(rows))
	skippeds := make([]bool, len(rows))
	sources := make([]string, len(rows))
	createdAts := make([]time.Time, len(rows))

	now := time.Now()
	for i, row := range rows {
		ids[i] = uuid.New()
		userIDs[i] = row.UserID
		playedAts[i] = row.PlayedAt
		msPlayeds[i] = row.MsPlayed
		trackNames[i] = row.TrackName
		artistNames[i] = row.ArtistName
		albumNames[i] = row.AlbumName
		trackURIs[i] = row.TrackURI
		skippeds[i] = row.Skipped
		sources[i] = row.Source
		createdAts[i] = now
	}

	result, err := r.pool.Exec(ctx, query,
		ids, userIDs, playedAts, msPlayeds, trackNames,
		artistNames, albumNames, trackURIs, skippeds, sources, createdAts,
	)
	if err != nil {
		return 0, fmt.Errorf("batch inserting history: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// DailyStats returns per-day listening minutes and play counts for the last
// n days, oldest first.
func (r *HistoryRepository) DailyStats(ctx context.Context, userID string, days int) ([]DailyStat, error) {
	query := `
		SELECT date_trunc('day', played_at) AS day,
		       (SUM(ms_played) / 60000)::int AS minutes,
		       COUNT(*)::int AS plays
		FROM streaming_history
		WHERE user_id = $1 AND played_at >= NOW() - ($2 || ' days')::interval
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.pool.Query(ctx, query, userID, days)
	if err != nil {
		return nil, fmt.Errorf("querying daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var s DailyStat
		if err := rows.Scan(&s.Day, &s.Minutes, &s.Plays); err != nil {
			return nil, fmt.Errorf("scanning daily stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// HourlyStats returns play counts bucketed by hour of day (0-23).
func (r *HistoryRepository) HourlyStats(ctx context.Context, userID string) ([]HourlyStat, error) {
	query := `
		SELECT EXTRACT(HOUR FROM played_at)::int AS hour, COUNT(*)::int AS plays
		FROM streaming_history
		WHERE user_id = $1
		GROUP BY hour
		ORDER BY hour
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying hourly stats: %w", err)
	}
	defer rows.Close()

	var stats []HourlyStat
	for rows.Next() {
		var s HourlyStat
		if err := rows.Scan(&s.Hour, &s.Plays); err != nil {
			return nil, fmt.Errorf("scanning hourly stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// TopArtists returns the most played artists by play count.
func (r *HistoryRepository) TopArtists(ctx context.Context, userID string, limit int) ([]ArtistStat, error) {
	query := `
		SELECT artist_name, COUNT(*)::int AS plays, (SUM(ms_played) / 60000)::int AS minutes
		FROM streaming_history
		WHERE user_id = $1 AND artist_name IS NOT NULL
		GROUP BY artist_name
		ORDER BY plays DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top artists: %w", err)
	}
	defer rows.Close()

	var stats []ArtistStat
	for rows.Next() {
		var s ArtistStat
		if err := rows.Scan(&s.ArtistName, &s.Plays, &s.Minutes); err != nil {
			return nil, fmt.Errorf("scanning artist stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Totals returns overall listening totals for a user.
func (r *HistoryRepository) Totals(ctx context.Context, userID string) (*HistoryTotals, error) {
	query := `
		SELECT COALESCE(SUM(ms_played), 0), COUNT(*)
		FROM streaming_history
		WHERE user_id = $1
	`
	var t HistoryTotals
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&t.TotalMs, &t.TotalTracks); err != nil {
		return nil, fmt.Errorf("querying history totals: %w", err)
	}
	return &t, nil
}
