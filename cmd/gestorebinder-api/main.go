package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gestorebinder/internal/cli"
	apphttp "gestorebinder/internal/http"
	applog "gestorebinder/internal/log"
	"gestorebinder/web"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(applog.ComponentApp)

	ctx := context.Background()

	store, err := cli.InitStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	sessions, err := cli.InitSessions(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize session store", "error", err, "backend", cfg.SessionBackend)
		os.Exit(1)
	}
	if sessions.Close != nil {
		defer sessions.Close()
	}

	opts := apphttp.Options{
		Addr:           cfg.Addr(),
		Store:          store,
		Sessions:       sessions.Store,
		Shell:          web.Shell(),
		JWTSecret:      cfg.JWTSecret,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.SecureCookies,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
		ReadyChecks:    map[string]apphttp.Pinger{},
	}
	if sessions.Ping != nil {
		opts.ReadyChecks["sessions"] = pingFunc(sessions.Ping)
	}

	publisher, err := cli.InitPublisher(cfg, logger)
	if err != nil {
		// Push is best effort; the API keeps serving without it.
		logger.Warn("AMQP unavailable, continuing without push", "error", err)
	} else if publisher != nil {
		defer publisher.Close()
		opts.Publisher = publisher
	}

	if cfg.SeedUsername != "" {
		if err := apphttp.SeedUser(ctx, store, cfg.SeedUsername, cfg.SeedPassword); err != nil {
			logger.Error("Failed to seed user", "error", err, "username", cfg.SeedUsername)
			os.Exit(1)
		}
	}

	srv, err := apphttp.NewServer(opts)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting gestorebinder server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"sessions", cfg.SessionBackend,
		applog.FieldOperation, applog.OpStartup)

	err = cli.Run(ctx, logger, 30*time.Second,
		func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		srv.Shutdown)
	if err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
