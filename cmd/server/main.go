// Command server runs the HL7 interface monitor API.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/hl7-monitor-backend/internal/config"
	httpapi "github.com/tbourn/hl7-monitor-backend/internal/http"
	"github.com/tbourn/hl7-monitor-backend/internal/observability"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"
	"github.com/tbourn/hl7-monitor-backend/internal/services"
	"github.com/tbourn/hl7-monitor-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if cfg.SeedFixtures {
		seeded, err := repo.SeedFixtures(ctx, db)
		if err != nil {
			log.Fatal().Err(err).Msg("seed fixtures")
		}
		if seeded {
			log.Info().Msg("fixture data loaded")
		}
	}

	r := gin.New()
	svcs := httpapi.RegisterRoutes(r, db, cfg)

	var wg sync.WaitGroup

	// Trend samples, pruned to what the sparkline reads.
	wg.Add(1)
	go func() {
		defer wg.Done()
		services.RunSampler(ctx, cfg.KPI.SampleInterval, svcs.Kpis, func(ctx context.Context) error {
			_, err := repo.PruneKpiSamples(ctx, db, cfg.KPI.TrendSamples)
			return err
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		services.RunEvery(ctx, cfg.PurgeInterval, "idempotency purge", func(ctx context.Context) error {
			n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired idempotency keys removed")
			}
			return err
		})
	}()

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()

	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("stopped")
}
