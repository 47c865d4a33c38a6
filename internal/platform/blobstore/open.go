package blobstore

import (
	"context"
	"fmt"

	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

// Open validates cfg and builds the backend it names.
func Open(ctx context.Context, log *logger.Logger, cfg Config) (Store, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	var (
		store Store
		err   error
	)
	switch cfg.Mode {
	case ModeLocal:
		store, err = NewFSStore(log, cfg.Dir)
	default:
		store, err = NewGCSStore(ctx, log, cfg)
	}
	if err != nil {
		return nil, err
	}
	log.Info("Object storage initialized",
		"mode", cfg.Mode,
		"dir", cfg.Dir,
		"bucket", cfg.Bucket,
		"emulator_host", cfg.EmulatorHost,
	)
	return store, nil
}
