package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/technomythic/hitster/internal/playback"
)

// Device is one Spotify Connect playback target.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// PlaybackState is the subset of the player state the game reads.
type PlaybackState struct {
	IsPlaying  bool  `json:"is_playing"`
	ProgressMs int64 `json:"progress_ms"`
	Item       *struct {
		ID string `json:"id"`
	} `json:"item"`
}

// Devices lists the user's available Connect devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var out struct {
		Devices []Device `json:"devices"`
	}
	if err := c.do(ctx, http.MethodGet, "/me/player/devices", nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// State fetches the current playback state. A nil state means nothing is
// playing anywhere.
func (c *Client) State(ctx context.Context) (*PlaybackState, error) {
	var st PlaybackState
	err := c.do(ctx, http.MethodGet, "/me/player", nil, &st)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if st.Item == nil && !st.IsPlaying && st.ProgressMs == 0 {
		// 204 No Content decodes nothing.
		return nil, nil
	}
	return &st, nil
}

// TransferPlayback moves playback to the given device.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	body, err := json.Marshal(map[string]any{
		"device_ids": []string{deviceID},
		"play":       play,
	})
	if err != nil {
		return err
	}
	return mapPlayerErr(c.do(ctx, http.MethodPut, "/me/player", body, nil))
}

// ConnectPlayer drives playback on a Spotify Connect device.
type ConnectPlayer struct {
	Client *Client
	// DeviceID targets a specific device; empty uses the active one.
	DeviceID string
}

var _ playback.Controller = (*ConnectPlayer)(nil)

func (p *ConnectPlayer) playPath() string {
	path := "/me/player/play"
	if p.DeviceID != "" {
		path += "?" + url.Values{"device_id": {p.DeviceID}}.Encode()
	}
	return path
}

// Play starts the track from the beginning on the target device.
func (p *ConnectPlayer) Play(ctx context.Context, trackID string) error {
	body, err := json.Marshal(map[string]any{
		"uris": []string{"spotify:track:" + trackID},
	})
	if err != nil {
		return err
	}
	return mapPlayerErr(p.Client.do(ctx, http.MethodPut, p.playPath(), body, nil))
}

// Pause halts playback.
func (p *ConnectPlayer) Pause(ctx context.Context) error {
	return mapPlayerErr(p.Client.do(ctx, http.MethodPut, "/me/player/pause", nil, nil))
}

// Resume continues the paused track. An empty body resumes instead of
// restarting.
func (p *ConnectPlayer) Resume(ctx context.Context) error {
	return mapPlayerErr(p.Client.do(ctx, http.MethodPut, p.playPath(), nil, nil))
}

// Position reports the playback offset and whether a track is playing.
func (p *ConnectPlayer) Position(ctx context.Context) (time.Duration, bool, error) {
	st, err := p.Client.State(ctx)
	if err != nil {
		return 0, false, err
	}
	if st == nil {
		return 0, false, nil
	}
	return time.Duration(st.ProgressMs) * time.Millisecond, st.IsPlaying, nil
}

// mapPlayerErr narrows generic API errors to playback-specific ones: 404
// means no device is active, 403 on the player endpoints means the account
// is not Premium.
func mapPlayerErr(err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return ErrNoActiveDevice
	}
	if errors.Is(err, ErrPermissionDenied) {
		return ErrPremiumRequired
	}
	return err
}
