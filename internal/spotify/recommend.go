package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

const (
	// Spotify caps the combined seed list at five; the split below matches
	// the proportions used for auto-derived seeds.
	maxSeedTracks  = 3
	maxSeedArtists = 2

	// DefaultRecommendationLimit is the number of tracks requested when the
	// caller does not ask for a specific count.
	DefaultRecommendationLimit = 20

	minRecommendationPopularity = 30
)

// Recommendations returns recommended tracks for the given seeds. When both
// seed lists are empty, seeds are derived from the user's recent top tracks
// and artists.
func (c *Client) Recommendations(ctx context.Context, seedTracks, seedArtists []string, limit int) ([]Track, error) {
	if len(seedTracks) == 0 && len(seedArtists) == 0 {
		var err error
		seedTracks, seedArtists, err = c.deriveSeeds(ctx)
		if err != nil {
			return nil, err
		}
	}

	seeds := spotify.Seeds{
		Tracks:  toIDs(truncate(seedTracks, maxSeedTracks)),
		Artists: toIDs(truncate(seedArtists, maxSeedArtists)),
	}
	attrs := spotify.NewTrackAttributes().MinPopularity(minRecommendationPopularity)

	recs, err := c.api.GetRecommendations(ctx, seeds, attrs, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("getting recommendations: %w", err)
	}

	tracks := make([]Track, len(recs.Tracks))
	for i, t := range recs.Tracks {
		tracks[i] = convertSimpleTrack(t)
	}
	return tracks, nil
}

// deriveSeeds picks seeds from the user's short-term top tracks and artists.
func (c *Client) deriveSeeds(ctx context.Context) (seedTracks, seedArtists []string, err error) {
	tracks, err := c.TopTracks(ctx, spotify.ShortTermRange, 10)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving track seeds: %w", err)
	}
	artists, err := c.TopArtists(ctx, spotify.ShortTermRange, 5)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving artist seeds: %w", err)
	}

	for _, t := range truncate(tracks, maxSeedTracks) {
		seedTracks = append(seedTracks, t.ID)
	}
	for _, a := range truncate(artists, maxSeedArtists) {
		seedArtists = append(seedArtists, a.ID)
	}
	return seedTracks, seedArtists, nil
}

func truncate[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func toIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}
