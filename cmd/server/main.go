// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/reorder-planner/internal/api"
	"github.com/andresuchdata/reorder-planner/internal/cache"
	"github.com/andresuchdata/reorder-planner/internal/config"
	"github.com/andresuchdata/reorder-planner/internal/forecast"
	"github.com/andresuchdata/reorder-planner/internal/generator"
	"github.com/andresuchdata/reorder-planner/internal/repository"
	"github.com/andresuchdata/reorder-planner/internal/repository/postgres"
	"github.com/andresuchdata/reorder-planner/internal/service"
	"github.com/andresuchdata/reorder-planner/internal/state"
	"github.com/andresuchdata/reorder-planner/internal/storage"
	"github.com/andresuchdata/reorder-planner/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.SetLevel(cfg.App.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Persistence is optional; without it the dataset lives in memory only
	var repo repository.DatasetRepository
	if cfg.Planner.Persist {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		repo = postgres.NewDatasetRepository(db)
	}

	gen := generator.New(cfg.Planner.Seed, cfg.Planner.Regions.Regions())
	logger.Log.Info().Uint64("seed", gen.Seed()).Msg("Data generator ready")

	ds, err := service.LoadDataset(ctx, repo, gen)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load dataset")
	}

	calc := forecast.NewCalculator(cfg.Planner.Regions)
	store, err := state.NewStore(calc, ds, cfg.Planner.DefaultParams(), state.Options{
		Workers:   cfg.Planner.RecomputeWorkers,
		Generator: gen,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to build planner state")
	}

	kpiCache, err := cache.NewKPICache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, KPI cache disabled")
		kpiCache = cache.NewNoopKPICache()
	}
	defer kpiCache.Close()

	objects := newObjectStorage(ctx, cfg)

	planner := service.NewPlannerService(store, repo, kpiCache, objects, service.Options{
		Persist:      repo != nil,
		ReportPrefix: cfg.Storage.Prefix,
	})
	defer planner.Close()

	router := api.NewRouter(&api.Services{Planner: planner}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Int("records", len(ds.Records)).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// newObjectStorage returns MinIO when configured and reachable, the report directory otherwise.
func newObjectStorage(ctx context.Context, cfg *config.Config) storage.ObjectStorage {
	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err == nil {
			err = client.EnsureBucket(ctx)
		}
		if err == nil {
			logger.Log.Info().Str("bucket", cfg.Storage.Bucket).Msg("Publishing reports to object storage")
			return client
		}
		logger.Log.Warn().Err(err).Msg("Object storage unavailable, falling back to local reports")
	}
	return storage.NewLocalStorage(cfg.App.ReportDir)
}
