// Package store opens the persistence backend named in the configuration.
package store

import (
	"context"
	"fmt"

	"github.com/nobel/timebank/config"
	"github.com/nobel/timebank/store/postgres"
	"github.com/nobel/timebank/store/sqlite"
	"github.com/nobel/timebank/timebank"
	memstore "github.com/nobel/timebank/timebank/store"
)

// Backend is what the server needs from a store.
type Backend interface {
	timebank.TxStore
	timebank.SettingsStore
	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Driver {
	case "", "sqlite":
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, nil
	case "postgres":
		s, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	case "memory":
		return memstore.NewTxMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
