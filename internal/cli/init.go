// Package cli provides the start-up helpers shared by the gestorebinder
// binaries: logging, configuration, storage, sessions, push and shutdown.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gestorebinder/internal/amqp"
	"gestorebinder/internal/backend"
	"gestorebinder/internal/config"
	applog "gestorebinder/internal/log"
	"gestorebinder/internal/sessionstore"
	"gestorebinder/internal/storage"
)

// SetupLogger builds the process logger from level and format and sets it as
// the slog default.
func SetupLogger(level, format string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	if format != "" {
		cfg.Format = format
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads .env and the environment and validates the
// result. It exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	config.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the configured data backend. The returned store must be
// closed by the caller.
func InitStore(ctx context.Context, cfg *config.Config, logger *applog.Logger) (storage.Store, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("initializing %s backend: %w", bcfg.Type, err)
	}
	return res.Store, nil
}

// Sessions is the revocation store plus what start-up needs to check and
// release it. Ping and Close are nil for the memory backend.
type Sessions struct {
	Store sessionstore.Store
	Ping  func(context.Context) error
	Close func() error
}

// InitSessions connects the configured session revocation backend.
func InitSessions(ctx context.Context, cfg *config.Config, logger *applog.Logger) (Sessions, error) {
	if cfg.SessionBackend != "redis" {
		return Sessions{Store: sessionstore.NewMemory()}, nil
	}
	client, err := sessionstore.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return Sessions{}, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	store := sessionstore.NewRedis(client)
	logger.Info("Initialized redis session store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return Sessions{Store: store, Ping: store.Ping, Close: client.Close}, nil
}

// InitPublisher dials the push exchange. It returns nil when AMQP is not
// configured.
func InitPublisher(cfg *config.Config, logger *applog.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, push messages will not be published")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp: %w", err)
	}
	logger.Info("Initialized AMQP publisher", "exchange", cfg.AMQPExchange, "topic", cfg.AMQPQueue)
	return client, nil
}

// Run calls serve until it fails or SIGINT/SIGTERM arrives, then calls
// shutdown with a context bounded by timeout.
func Run(ctx context.Context, logger *applog.Logger, timeout time.Duration,
	serve func() error, shutdown func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(serve)
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				logger.Warn("Shutdown timeout reached")
			}
			return err
		}
		logger.Info("Shutdown complete")
		return nil
	})
	return g.Wait()
}
