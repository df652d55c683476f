// Package application wires configuration, storage and the core service. It
// is shared by the server and the command-line tool so both open the
// register the same way.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/tamween/internal/config"
	"github.com/JonMunkholm/tamween/internal/core"
	"github.com/JonMunkholm/tamween/internal/storage"
)

// Register is an opened register: the service and the slot behind it.
type Register struct {
	Service *core.Service
	Slot    storage.Slot
}

// Close releases the slot.
func (r *Register) Close() error {
	return r.Slot.Close()
}

// ServiceOptions translates cfg into core.Service options.
func ServiceOptions(cfg *config.Config) ([]core.ServiceOption, error) {
	loc, err := cfg.Export.Location()
	if err != nil {
		return nil, fmt.Errorf("export timezone %q: %w", cfg.Export.Timezone, err)
	}
	return []core.ServiceOption{
		core.WithSlotTimeout(cfg.Storage.Timeout),
		core.WithMaxImportSize(cfg.Import.MaxFileSize),
		core.WithImportLimit(cfg.Import.MaxConcurrent, cfg.Import.MaxWait),
		core.WithDateFormatter(core.NewDateFormatter(cfg.Export.Locale, loc)),
	}, nil
}

// Open connects the configured slot, creates the service and restores the
// register from the slot. A slot that cannot be opened is an error; a slot
// that cannot be read or parsed yields an empty register.
func Open(ctx context.Context, cfg *config.Config, extra ...core.ServiceOption) (*Register, error) {
	opts, err := ServiceOptions(cfg)
	if err != nil {
		return nil, err
	}

	slot, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	svc := core.NewService(slot, append(opts, extra...)...)
	n := svc.Load(ctx)
	slog.Debug("register opened",
		"backend", cfg.Storage.Backend,
		"slot", slot.Key(),
		"records", n,
	)
	return &Register{Service: svc, Slot: slot}, nil
}
