// Command export-playlist logs in to Spotify with the PKCE flow, then lists
// the user's playlists or exports one as a song-library JSON file usable by
// the local game data loader.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/technomythic/hitster/internal/spotify"
)

func main() {
	cmd := &cobra.Command{
		Use:          "export-playlist [playlist-id]",
		Short:        "Export a Spotify playlist as a song library",
		Args:         cobra.MaximumNArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}

	cmd.Flags().String("client-id", "", "Spotify application client id")
	cmd.Flags().String("out", "songs.json", "output file for the song library")
	cmd.Flags().String("token-file", defaultTokenPath(), "where the OAuth token is cached")
	cmd.Flags().String("listen", "127.0.0.1:8888", "local address for the OAuth redirect")
	cmd.Flags().String("market", "", "market for track relinking (default: profile country)")

	viper.SetEnvPrefix("hitster")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
		_ = viper.BindEnv(f.Name)
	})

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hitster/spotify-token.json"
	}
	return home + "/.hitster/spotify-token.json"
}

func run(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	ctx := cmd.Context()

	clientID := viper.GetString("client-id")
	if clientID == "" {
		return fmt.Errorf("--client-id (or HITSTER_CLIENT_ID) is required")
	}

	listen := viper.GetString("listen")
	store := &spotify.FileTokenStore{Path: viper.GetString("token-file")}
	auth := spotify.NewAuthenticator(clientID, "http://"+listen+"/callback", store)

	httpClient, err := auth.Client(ctx)
	if err != nil {
		logger.Info("no cached session, starting login")
		httpClient, err = login(ctx, logger, auth, listen)
		if err != nil {
			return err
		}
	}

	api := spotify.NewClient(httpClient)

	if len(args) == 0 {
		return listPlaylists(ctx, api)
	}
	return export(ctx, logger, api, args[0])
}

// login runs the browser consent flow with a one-shot local redirect
// listener.
func login(ctx context.Context, logger *logrus.Logger, auth *spotify.Authenticator, listen string) (*http.Client, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	verifier := spotify.NewVerifier()

	codes := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := r.URL.Query().Get("error"); e != "" {
			http.Error(w, "authorization denied: "+e, http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Login complete. You can close this tab.")
		codes <- r.URL.Query().Get("code")
	})
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	defer srv.Close()

	fmt.Println("Open this URL in your browser to log in:")
	fmt.Println()
	fmt.Println("  " + auth.AuthURL(state, verifier))
	fmt.Println()

	var code string
	select {
	case code = <-codes:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if _, err := auth.Exchange(ctx, code, verifier); err != nil {
		return nil, err
	}
	logger.Info("login successful, token cached")
	return auth.Client(ctx)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func listPlaylists(ctx context.Context, api *spotify.Client) error {
	playlists, err := api.CurrentUserPlaylists(ctx)
	if err != nil {
		return err
	}
	for _, p := range playlists {
		fmt.Printf("%s  %4d tracks  %s\n", p.ID, p.Tracks.Total, p.Name)
	}
	return nil
}

func export(ctx context.Context, logger *logrus.Logger, api *spotify.Client, playlistID string) error {
	provider := &spotify.PlaylistProvider{
		Client:     api,
		PlaylistID: playlistID,
		Market:     viper.GetString("market"),
	}
	songs, err := provider.Load(ctx)
	if err != nil {
		return err
	}

	out := viper.GetString("out")
	raw, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return err
	}
	logger.Infof("wrote %d songs to %s", len(songs), out)
	return nil
}
