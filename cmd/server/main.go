package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/technomythic/hitster/internal/coordinator"
	"github.com/technomythic/hitster/internal/middleware"
)

func main() {
	cmd := &cobra.Command{
		Use:   "hitster-server",
		Short: "Room coordinator for the melody timeline game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("bind", "0.0.0.0", "address to listen on")
	cmd.Flags().Int("port", 3001, "port to listen on")
	cmd.Flags().BoolP("verbose", "v", false, "enable debug logging")

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

func run() error {
	logger := logrus.New()
	if viper.GetBool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}

	store := coordinator.NewStore()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/ws", coordinator.Handler(logger, store))

	addr := fmt.Sprintf("%s:%d", viper.GetString("bind"), viper.GetInt("port"))
	srv := &http.Server{
		Addr:    addr,
		Handler: middleware.LogMiddleware(logger)(mux),
		// No ReadTimeout: it would kill long-lived WebSocket sessions.
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigs:
		logger.Infof("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
