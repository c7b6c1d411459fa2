package wrapped

import (
	"testing"

	"github.com/antigravity/go-spotify-wrapped/internal/spotify"
)

func track(id, album, albumName, artist string, durationMs int) spotify.Track {
	return spotify.Track{
		ID:          id,
		Name:        id,
		ArtistNames: []string{artist},
		DurationMs:  durationMs,
		Album:       spotify.Album{ID: album, Name: albumName},
	}
}

func TestEstimateMinutes(t *testing.T) {
	tests := []struct {
		name      string
		tracks    []spotify.Track
		playsEach int
		want      int
	}{
		{name: "empty", tracks: nil, playsEach: 15, want: 0},
		{
			name:      "single three minute track",
			tracks:    []spotify.Track{track("t1", "a1", "A", "X", 180_000)},
			playsEach: 15,
			want:      45,
		},
		{
			name: "rounds to nearest minute",
			// 90s * 1 play = 1.5 min, rounds up to 2.
			tracks:    []spotify.Track{track("t1", "a1", "A", "X", 90_000)},
			playsEach: 1,
			want:      2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateMinutes(tt.tracks, tt.playsEach); got != tt.want {
				t.Errorf("EstimateMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDeriveAlbums(t *testing.T) {
	tracks := []spotify.Track{
		track("t1", "album-a", "OK Computer", "Radiohead", 240_000),
		track("t2", "album-b", "In Rainbows", "Radiohead", 180_000),
		track("t3", "album-a", "OK Computer", "Radiohead", 300_000),
		track("t4", "album-a", "OK Computer", "Radiohead", 200_000),
	}

	stats := DeriveAlbums(tracks, 15)

	if len(stats) != 2 {
		t.Fatalf("got %d albums, want 2", len(stats))
	}
	if stats[0].ID != "album-a" {
		t.Errorf("first album = %s, want album-a (most tracks)", stats[0].ID)
	}
	if stats[0].TrackCount != 3 {
		t.Errorf("album-a track count = %d, want 3", stats[0].TrackCount)
	}
	if stats[1].TrackCount != 1 {
		t.Errorf("album-b track count = %d, want 1", stats[1].TrackCount)
	}
	// 4 + 5 + 3 minutes, each times 15 plays.
	if want := (4 + 5 + 3) * 15; stats[0].EstimatedMinutes != want {
		t.Errorf("album-a estimated minutes = %d, want %d", stats[0].EstimatedMinutes, want)
	}
	if stats[0].ArtistName != "Radiohead" {
		t.Errorf("album-a artist = %q", stats[0].ArtistName)
	}
}

func TestDeriveAlbumsEmpty(t *testing.T) {
	if stats := DeriveAlbums(nil, 15); len(stats) != 0 {
		t.Errorf("DeriveAlbums(nil) = %v, want empty", stats)
	}
}
