// Package playback defines the audio control surface games use without
// caring which backend plays the music.
package playback

import (
	"context"
	"time"
)

// Controller starts, stops and reports playback of one track at a time.
type Controller interface {
	// Play starts the given track from the beginning.
	Play(ctx context.Context, trackID string) error
	// Pause halts playback, keeping position.
	Pause(ctx context.Context) error
	// Resume continues from the paused position.
	Resume(ctx context.Context) error
	// Position reports the playback offset and whether anything is playing.
	Position(ctx context.Context) (time.Duration, bool, error)
}
