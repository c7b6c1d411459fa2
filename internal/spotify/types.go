package spotify

import (
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
)

// Album identifies the album a track belongs to.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	ReleaseDate string `json:"release_date"`
}

// Track is the track shape returned by the API endpoints.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ArtistNames []string `json:"artists"`
	Album       Album    `json:"album"`
	DurationMs  int      `json:"duration_ms"`
	Popularity  int      `json:"popularity"`
	URI         string   `json:"uri"`
	SpotifyURL  string   `json:"spotify_url"`
}

// Artist is the artist shape returned by the API endpoints.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Followers  int      `json:"followers"`
	ImageURL   string   `json:"image_url"`
	SpotifyURL string   `json:"spotify_url"`
}

// PlayedTrack is one recently-played entry.
type PlayedTrack struct {
	Track    Track     `json:"track"`
	PlayedAt time.Time `json:"played_at"`
}

// NowPlaying reports the user's current playback state.
// When nothing is playing, IsPlaying is false and Track is nil.
type NowPlaying struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMs int    `json:"progress_ms"`
	Track      *Track `json:"item"`
}

// TrackIDFromURI accepts either a bare track ID or a spotify:track: URI and
// returns the bare ID.
func TrackIDFromURI(s string) string {
	return strings.TrimPrefix(s, "spotify:track:")
}

func convertAlbum(a spotify.SimpleAlbum) Album {
	album := Album{
		ID:          a.ID.String(),
		Name:        a.Name,
		ReleaseDate: a.ReleaseDate,
	}
	if len(a.Images) > 0 {
		album.ImageURL = a.Images[0].URL
	}
	return album
}

func convertSimpleTrack(t spotify.SimpleTrack) Track {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return Track{
		ID:          t.ID.String(),
		Name:        t.Name,
		ArtistNames: names,
		Album:       convertAlbum(t.Album),
		DurationMs:  int(t.Duration),
		URI:         string(t.URI),
		SpotifyURL:  t.ExternalURLs["spotify"],
	}
}

func convertFullTrack(t spotify.FullTrack) Track {
	track := convertSimpleTrack(t.SimpleTrack)
	track.Album = convertAlbum(t.Album)
	track.Popularity = int(t.Popularity)
	return track
}

func convertArtist(a spotify.FullArtist) Artist {
	artist := Artist{
		ID:         a.ID.String(),
		Name:       a.Name,
		Genres:     a.Genres,
		Popularity: int(a.Popularity),
		Followers:  int(a.Followers.Count),
		SpotifyURL: a.ExternalURLs["spotify"],
	}
	if len(a.Images) > 0 {
		artist.ImageURL = a.Images[0].URL
	}
	return artist
}
