/*
Package app wires configuration, logging, storage, the time-bank service,
the passcode gate and the HTTP server together. Both binaries under cmd/
start from here.

STARTUP SEQUENCE:
  1. Build the zap logger from cfg.Log
  2. Resolve the calendar time zone
  3. Open the configured store (sqlite | postgres | memory)
  4. Create the service and the passcode gate
  5. (Serve) Start the balance scheduler and the HTTP server

GRACEFUL SHUTDOWN:
  Serve returns when its context is cancelled: the HTTP server drains
  in-flight requests for server.shutdown_timeout, the scheduler stops,
  and Close releases the store.
*/
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nobel/timebank/api"
	"github.com/nobel/timebank/auth"
	"github.com/nobel/timebank/config"
	"github.com/nobel/timebank/logger"
	"github.com/nobel/timebank/store"
	"github.com/nobel/timebank/timebank"
)

// App is a fully wired application.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   store.Backend
	Service *timebank.Service
	Gate    *auth.Gate
}

// New builds every dependency named in cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	backend, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	log.Info("store opened", zap.String("driver", cfg.Store.Driver), zap.String("timezone", loc.String()))

	svc := timebank.NewService(backend, log.Named("service"))
	svc.Location = loc

	gate, err := auth.NewGate(backend, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.DefaultPIN)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("create passcode gate: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret not set; sessions will not survive a restart")
	}

	return &App{
		Config:  cfg,
		Logger:  log,
		Store:   backend,
		Service: svc,
		Gate:    gate,
	}, nil
}

// Serve runs the HTTP server and the balance scheduler until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	metrics := api.NewMetrics()
	handler := api.NewHandler(a.Service, a.Gate, metrics, a.Logger.Named("http"))
	router := api.NewRouter(handler, a.Config.Server)

	scheduler := api.NewBalanceScheduler(a.Service, metrics, a.Logger)
	scheduler.Enabled = a.Config.Scheduler.Enabled
	scheduler.CheckInterval = a.Config.Scheduler.Interval
	scheduler.Start()
	defer scheduler.Stop()

	return api.ListenAndServe(ctx, a.Config.Addr(), router, a.Config.Server.ShutdownTimeout, a.Logger)
}

// Close releases the store and flushes the logger.
func (a *App) Close() error {
	err := a.Store.Close()
	_ = a.Logger.Sync()
	return err
}
