// Package wrapped derives the summary statistics shown on wrapped story
// cards from the user's top tracks.
package wrapped

import (
	"sort"

	"github.com/antigravity/go-spotify-wrapped/internal/spotify"
)

// DefaultPlaysPerTrack approximates how often a top track was played over
// its time range. Top-track responses carry no play counts, so estimated
// listening time scales each track's duration by this factor.
const DefaultPlaysPerTrack = 15

// AlbumStat aggregates a user's top tracks by album.
type AlbumStat struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ArtistName       string `json:"artist_name"`
	ImageURL         string `json:"image_url"`
	TrackCount       int    `json:"track_count"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// EstimateMinutes estimates total listening minutes for a set of top tracks,
// assuming each was played playsEach times. Rounded to the nearest minute.
func EstimateMinutes(tracks []spotify.Track, playsEach int) int {
	totalMs := 0
	for _, t := range tracks {
		totalMs += t.DurationMs * playsEach
	}
	return (totalMs + 30_000) / 60_000
}

// DeriveAlbums groups top tracks by album and returns album stats sorted by
// track count, most represented album first.
func DeriveAlbums(tracks []spotify.Track, playsEach int) []AlbumStat {
	byID := make(map[string]*AlbumStat)
	for _, t := range tracks {
		minutes := (t.DurationMs + 30_000) / 60_000 * playsEach

		stat, ok := byID[t.Album.ID]
		if !ok {
			stat = &AlbumStat{
				ID:       t.Album.ID,
				Name:     t.Album.Name,
				ImageURL: t.Album.ImageURL,
			}
			if len(t.ArtistNames) > 0 {
				stat.ArtistName = t.ArtistNames[0]
			}
			byID[t.Album.ID] = stat
		}
		stat.TrackCount++
		stat.EstimatedMinutes += minutes
	}

	stats := make([]AlbumStat, 0, len(byID))
	for _, s := range byID {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TrackCount != stats[j].TrackCount {
			return stats[i].TrackCount > stats[j].TrackCount
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}
