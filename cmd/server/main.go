package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"fininsight/internal/config"
	"fininsight/internal/handlers/backup"
	insightshandler "fininsight/internal/handlers/insights"
	apphttp "fininsight/internal/http"
	"fininsight/internal/logger"
	"fininsight/internal/services/dataloader"
	"fininsight/internal/services/insights"
	"fininsight/internal/services/insightstate"
	"fininsight/internal/services/pgstore"
	"fininsight/internal/services/storage"
	"fininsight/internal/version"
)

var (
	cfg   *config.Config
	log   = zerolog.Nop()
	store *storage.Storage
	state *insightstate.Store
	db    *pgstore.Store
)

func main() {
	c, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := SetupDependencies(c); err != nil {
		log.Fatal().Err(err).Msg("setup failed")
	}
	defer Shutdown()

	info := version.Get()
	log.Info().Str("version", info.String()).Msg("starting fininsight")
	if warning := info.Check(); warning != "" {
		log.Warn().Msg(warning)
	}
	log.Info().
		Str("source", cfg.Source).
		Str("data_dir", cfg.DataDirectory).
		Bool("encrypted", store.IsEncrypted()).
		Msg("configuration loaded")

	if store.IsEncrypted() && !store.IsUnlocked() {
		log.Warn().Msg("data directory is encrypted; POST /api/unlock before requesting insights")
	}

	if err := state.StartPruning(cfg.StatePruneSchedule, time.Now); err != nil {
		log.Fatal().Err(err).Msg("schedule state pruning")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

// SetupDependencies builds storage, the snapshot source and insight state from
// c and hands them to the handler packages. FININSIGHT_PASSWORD, when set,
// unlocks encrypted storage before any file is read.
func SetupDependencies(c *config.Config) error {
	cfg = c
	log = logger.New(cfg.LogLevel)

	var err error
	store, err = storage.New(cfg.DataDirectory)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if password := os.Getenv("FININSIGHT_PASSWORD"); password != "" {
		if err := store.Unlock(password); err != nil {
			return fmt.Errorf("unlock storage: %w", err)
		}
	}

	var source insightshandler.Source
	switch cfg.Source {
	case config.SourcePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err = pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		source = db
	default:
		source = dataloader.New(cfg.DataDirectory, cfg.SettingsDirectory, store, log)
	}

	state, err = insightstate.Open(store, cfg.StateFile(), log)
	if err != nil {
		return err
	}

	insightshandler.Initialize(source, insights.New(), state, cfg.WindowDays)
	backup.Initialize(cfg, store)
	return nil
}

// SetupRouter creates the chi router with middleware and all routes
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(apphttp.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/insights", http.StatusTemporaryRedirect)
	})

	backup.RegisterRoutes(r)
	insightshandler.RegisterRoutes(r)
	return r
}

// Shutdown stops background work and closes the database pool
func Shutdown() {
	if state != nil {
		state.Stop()
	}
	if db != nil {
		db.Close()
	}
}
