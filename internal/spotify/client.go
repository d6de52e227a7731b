// Package spotify talks to the Spotify Web API: PKCE auth, playlist and
// track reads, and Connect playback control.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const apiBase = "https://api.spotify.com/v1"

var (
	// ErrSessionExpired means the access token was rejected and could not be
	// refreshed; the user must log in again.
	ErrSessionExpired = errors.New("spotify session expired")
	// ErrPermissionDenied means the token lacks a scope or the account lacks
	// access to the resource.
	ErrPermissionDenied = errors.New("spotify permission denied")
	// ErrNoActiveDevice means no Spotify Connect device is available.
	ErrNoActiveDevice = errors.New("no active spotify device")
	// ErrPremiumRequired means playback control needs a Premium account.
	ErrPremiumRequired = errors.New("spotify premium required")
)

// StatusError carries an unmapped non-2xx API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify api: %d %s", e.Code, e.Message)
}

// Client is a thin wrapper over the Web API. HTTP should come from
// Authenticator.Client so tokens refresh transparently.
type Client struct {
	HTTP *http.Client
	// BaseURL overrides the API root, for tests.
	BaseURL string

	maxRetries int
}

func NewClient(httpClient *http.Client) *Client {
	return &Client{HTTP: httpClient, BaseURL: apiBase, maxRetries: 3}
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// do issues one API call, retrying on 429 per the Retry-After header, and
// decodes a JSON body into out when given.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp)
			resp.Body.Close()
			lastErr = &StatusError{Code: resp.StatusCode, Message: "rate limited"}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return c.statusError(resp)
		}

		if out == nil || resp.StatusCode == http.StatusNoContent {
			resp.Body.Close()
			return nil
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return nil
	}
	return lastErr
}

func (c *Client) statusError(resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error.Message

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrSessionExpired
	case http.StatusForbidden:
		return ErrPermissionDenied
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

// nextPath converts an absolute pagination URL back to a client-relative
// path.
func (c *Client) nextPath(next string) string {
	return strings.TrimPrefix(next, c.BaseURL)
}

// Image is album or playlist artwork.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// User is the /me profile subset the game needs.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

// Playlist is a playlist summary from the listing endpoint.
type Playlist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type Artist struct {
	Name string `json:"name"`
}

type Album struct {
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Images      []Image `json:"images"`
}

// Track is the track subset needed to build a game song.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	PreviewURL string   `json:"preview_url"`
	IsPlayable bool     `json:"is_playable"`
}

type playlistItem struct {
	Track *Track `json:"track"`
}

type page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next"`
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CurrentUserPlaylists lists the user's playlists, following pagination.
func (c *Client) CurrentUserPlaylists(ctx context.Context) ([]Playlist, error) {
	var out []Playlist
	path := "/me/playlists?limit=50"
	for path != "" {
		var p page[Playlist]
		if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Items...)
		if p.Next == "" {
			break
		}
		path = c.nextPath(p.Next)
	}
	return out, nil
}

// PlaylistTracks fetches every track of a playlist, following pagination.
// market relinks region-locked tracks to playable equivalents.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID, market string) ([]Track, error) {
	var out []Track
	q := url.Values{"limit": {"100"}}
	if market != "" {
		q.Set("market", market)
	}
	path := "/playlists/" + playlistID + "/tracks?" + q.Encode()
	for path != "" {
		var p page[playlistItem]
		if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
			return nil, err
		}
		for _, item := range p.Items {
			// Local files and removed tracks come back null.
			if item.Track != nil {
				out = append(out, *item.Track)
			}
		}
		if p.Next == "" {
			break
		}
		path = c.nextPath(p.Next)
	}
	return out, nil
}
