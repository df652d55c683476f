package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tamween/internal/config"
)

// Open builds the slot selected by cfg, wrapped with the configured quota.
func Open(ctx context.Context, cfg config.StorageConfig) (Slot, error) {
	var (
		slot Slot
		err  error
	)

	switch strings.ToLower(cfg.Backend) {
	case config.BackendFile, "":
		slot = NewFileSlot(cfg.Key, cfg.Path)
	case config.BackendSQLite:
		slot, err = OpenSQLite(cfg.Key, cfg.SQLitePath)
	case config.BackendPostgres:
		slot, err = OpenPostgres(ctx, cfg.Key, cfg.DatabaseURL, cfg.MaxConns)
	case config.BackendMemory:
		slot = NewMemorySlot(cfg.Key)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return WithQuota(slot, cfg.MaxBytes), nil
}
