package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// Endpoint is Spotify's OAuth pair. Token exchange uses PKCE, so no client
// secret is involved.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

// DefaultScopes covers playlist reading and Connect playback control.
var DefaultScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-modify-playback-state",
	"user-read-playback-state",
	"streaming",
}

// TokenStore persists the OAuth token between runs so refresh tokens
// survive process restarts.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
}

// FileTokenStore keeps the token as a JSON file with owner-only permissions.
type FileTokenStore struct {
	Path string
}

func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", s.Path, err)
	}
	return &tok, nil
}

func (s *FileTokenStore) Save(tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, raw, 0o600)
}

// Authenticator runs the authorization-code + PKCE flow for a public client
// and hands out token-refreshing HTTP clients.
type Authenticator struct {
	cfg   *oauth2.Config
	store TokenStore
}

func NewAuthenticator(clientID, redirectURL string, store TokenStore) *Authenticator {
	return &Authenticator{
		cfg: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURL,
			Scopes:      DefaultScopes,
			Endpoint:    Endpoint,
		},
		store: store,
	}
}

// NewVerifier returns a fresh PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthURL builds the user-consent URL carrying the S256 challenge for
// verifier.
func (a *Authenticator) AuthURL(state, verifier string) string {
	return a.cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades the authorization code for a token, proving possession of
// the verifier, and persists the result.
func (a *Authenticator) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	tok, err := a.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if err := a.store.Save(tok); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	return tok, nil
}

// Client returns an HTTP client that attaches the stored token, refreshes it
// when expired and re-persists rotated tokens.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	tok, err := a.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	src := &persistingSource{
		src:   a.cfg.TokenSource(ctx, tok),
		store: a.store,
		last:  tok,
	}
	return oauth2.NewClient(ctx, src), nil
}

// persistingSource writes refreshed tokens back to the store, so the rotated
// refresh token is not lost on exit.
type persistingSource struct {
	src   oauth2.TokenSource
	store TokenStore
	last  *oauth2.Token
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if p.last == nil || tok.AccessToken != p.last.AccessToken {
		p.last = tok
		if err := p.store.Save(tok); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
	}
	return tok, nil
}
