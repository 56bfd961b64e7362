// serve.go
//
// The serve command: wire storage, sessions, and the HTTP server, then run
// until interrupted.

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/robalobadob/wholepart/internal/activity"
	"github.com/robalobadob/wholepart/internal/content"
	"github.com/robalobadob/wholepart/internal/httpserver"
	"github.com/robalobadob/wholepart/internal/progress"
	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/store"
)

const sweepInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides config)")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
	rootCmd.RunE = runServe
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := migrate(db); err != nil {
		return err
	}

	scenes, err := scene.Default()
	if err != nil {
		return err
	}
	catalogs, err := content.LoadDefault(cfg.DefaultLang)
	if err != nil {
		return err
	}
	manifest, err := content.DefaultAssets()
	if err != nil {
		return err
	}
	progressStore := progress.NewStore(db)
	factory, err := activity.NewFactory(activity.Options{
		Scenes:      scenes,
		Content:     catalogs,
		Assets:      manifest,
		Progress:    progressStore,
		AutoAdvance: cfg.AutoAdvance(),
	})
	if err != nil {
		return err
	}

	sessions := store.NewMemoryStore()
	go store.RunSweeper(ctx, sessions, cfg.SessionTTL(), sweepInterval, func(s *activity.Session) {
		log.Info().Str("session", s.ID()).Msg("evicting idle session")
		s.Close()
	})

	srv := httpserver.New(httpserver.Options{
		Config:   cfg,
		Sessions: sessions,
		Factory:  factory,
		Progress: progressStore,
		DB:       db,
		Scenes:   scenes,
	})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Int("scenes", len(scenes)).Msg("starting wholepart server")
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}
	srv.Close()
	return nil
}
