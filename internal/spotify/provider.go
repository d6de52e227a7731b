package spotify

import (
	"context"
	"strconv"

	"github.com/technomythic/hitster/internal/game"
	"github.com/technomythic/hitster/internal/songdata"
)

// PlaylistProvider turns a Spotify playlist into a validated song list.
type PlaylistProvider struct {
	Client     *Client
	PlaylistID string
	// Market overrides the profile country for track relinking.
	Market string
}

// Load fetches the playlist's tracks and converts them to songs, dropping
// any without a parseable release year.
func (p *PlaylistProvider) Load(ctx context.Context) ([]game.Song, error) {
	market := p.Market
	if market == "" {
		me, err := p.Client.Me(ctx)
		if err != nil {
			return nil, err
		}
		market = me.Country
		if market == "" {
			market = "US"
		}
	}

	tracks, err := p.Client.PlaylistTracks(ctx, p.PlaylistID, market)
	if err != nil {
		return nil, err
	}

	songs := make([]game.Song, 0, len(tracks))
	for _, t := range tracks {
		songs = append(songs, SongFromTrack(t))
	}
	return songdata.Filter(songs), nil
}

// SongFromTrack maps a track to a game song. The year is the leading
// YYYY of the album release date, which Spotify reports with year, month or
// day precision.
func SongFromTrack(t Track) game.Song {
	year := 0
	if len(t.Album.ReleaseDate) >= 4 {
		if y, err := strconv.Atoi(t.Album.ReleaseDate[:4]); err == nil {
			year = y
		}
	}
	artist := ""
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	image := ""
	if n := len(t.Album.Images); n > 0 {
		// The last image is the smallest, fine for a card face.
		image = t.Album.Images[n-1].URL
	}
	return game.Song{
		ID:     t.ID,
		Title:  t.Name,
		Artist: artist,
		Year:   year,
		Audio:  t.PreviewURL,
		Image:  image,
	}
}

var _ songdata.Provider = (*PlaylistProvider)(nil)
