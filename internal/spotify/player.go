package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// CurrentlyPlaying returns the user's current playback state.
// When nothing is playing the result has IsPlaying false and a nil Track.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*NowPlaying, error) {
	playing, err := c.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current playback: %w", err)
	}

	now := &NowPlaying{
		IsPlaying:  playing.Playing,
		ProgressMs: int(playing.Progress),
	}
	if playing.Item != nil {
		track := convertFullTrack(*playing.Item)
		now.Track = &track
	}
	return now, nil
}

// RecentlyPlayed returns the user's most recent plays, newest first.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]PlayedTrack, error) {
	items, err := c.api.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{Limit: spotify.Numeric(limit)})
	if err != nil {
		return nil, fmt.Errorf("getting recently played: %w", err)
	}

	played := make([]PlayedTrack, len(items))
	for i, item := range items {
		played[i] = PlayedTrack{
			Track:    convertSimpleTrack(item.Track),
			PlayedAt: item.PlayedAt,
		}
	}
	return played, nil
}
