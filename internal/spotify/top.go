package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// DefaultTopLimit is the number of top items fetched when none is requested.
const DefaultTopLimit = 50

// ParseTimeRange maps the wire time_range parameter to a Spotify range.
// An empty value defaults to medium_term; anything else is rejected.
func ParseTimeRange(s string) (spotify.Range, error) {
	switch s {
	case "short_term":
		return spotify.ShortTermRange, nil
	case "medium_term", "":
		return spotify.MediumTermRange, nil
	case "long_term":
		return spotify.LongTermRange, nil
	default:
		return "", fmt.Errorf("invalid time range %q", s)
	}
}

// TopTracks returns the user's top tracks for the given time range.
func (c *Client) TopTracks(ctx context.Context, timeRange spotify.Range, limit int) ([]Track, error) {
	page, err := c.api.CurrentUsersTopTracks(ctx, spotify.Timerange(timeRange), spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("getting top tracks: %w", err)
	}

	tracks := make([]Track, len(page.Tracks))
	for i, t := range page.Tracks {
		tracks[i] = convertFullTrack(t)
	}
	return tracks, nil
}

// TopArtists returns the user's top artists for the given time range.
func (c *Client) TopArtists(ctx context.Context, timeRange spotify.Range, limit int) ([]Artist, error) {
	page, err := c.api.CurrentUsersTopArtists(ctx, spotify.Timerange(timeRange), spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("getting top artists: %w", err)
	}

	artists := make([]Artist, len(page.Artists))
	for i, a := range page.Artists {
		artists[i] = convertArtist(a)
	}
	return artists, nil
}
