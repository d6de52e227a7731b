// Package songdata loads and validates the song records games are built
// from.
package songdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/technomythic/hitster/internal/game"
)

// Provider produces a validated song list from some backing source.
type Provider interface {
	Load(ctx context.Context) ([]game.Song, error)
}

// Library reads songs from a local JSON file, the bundled-asset format.
type Library struct {
	Path string
}

// Load parses the library file and filters out incomplete records.
func (l *Library) Load(_ context.Context) ([]game.Song, error) {
	raw, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read song library: %w", err)
	}
	var songs []game.Song
	if err := json.Unmarshal(raw, &songs); err != nil {
		return nil, fmt.Errorf("parse song library %s: %w", l.Path, err)
	}
	return Filter(songs), nil
}

// Filter drops records the rule engine cannot use: missing id, title or
// artist, or a non-positive year.
func Filter(songs []game.Song) []game.Song {
	out := make([]game.Song, 0, len(songs))
	for _, s := range songs {
		if s.ID == "" || s.Title == "" || s.Artist == "" || s.Year <= 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}
