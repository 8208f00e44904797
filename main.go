package main

import (
	"context"
	"errors"
	"fmt"
	"issuehub/auth"
	"issuehub/config"
	"issuehub/database"
	"issuehub/handlers"
	"issuehub/logging"
	"issuehub/services"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "issuehub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer closer.Close()

	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	svc := services.New(
		database.NewStore(db),
		auth.NewHasher(cfg.BcryptCost),
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiration),
		services.Options{StartDateWindow: cfg.StartDateWindow},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDemo {
		fixtures, err := database.DemoFixtures()
		if err != nil {
			return err
		}
		if err := database.Seed(ctx, svc, fixtures, log); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Services:    svc,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     cfg.MetricsEnabled,
		Development: strings.EqualFold(cfg.LogFormat, logging.FormatConsole),
	})

	return serve(ctx, &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}, log)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", handlers.Version).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
