package main

import (
	"context"
	"fmt"

	"tableread/internal/config"
	"tableread/internal/store"
	"tableread/internal/store/postgres"
	"tableread/internal/store/sqlite"
)

func openDB(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return sqlite.New(ctx, cfg.Store.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
