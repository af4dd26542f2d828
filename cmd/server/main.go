/*
main.go - Application entry point

PURPOSE:
  Starts the time-bank HTTP server: punch terminal API, manager API,
  Prometheus metrics and the periodic balance refresh.

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (default: ./config/timebank.yaml
           or ./timebank.yaml when present)

ENVIRONMENT:
  Every setting can be overridden with TIMEBANK_<SECTION>_<KEY>, e.g.
  TIMEBANK_SERVER_PORT=3000, TIMEBANK_STORE_DRIVER=postgres,
  TIMEBANK_STORE_POSTGRES_DSN=postgres://..., TIMEBANK_TIMEZONE=America/Sao_Paulo

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Stop the scheduler and close the store
  4. Exit

SEE ALSO:
  - app/app.go: Dependency wiring
  - api/server.go: Router configuration
  - cmd/timebank: Admin CLI (same server via "timebank serve")
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nobel/timebank/app"
	"github.com/nobel/timebank/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		a.Logger.Error("server failed", zap.Error(err))
		return err
	}
	a.Logger.Info("server stopped")
	return nil
}
