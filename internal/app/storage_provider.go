package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/rastion-hub/internal/platform/blobstore"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

var openBlobStore = blobstore.Open

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingConfig       StorageProviderBootstrapErrorCode = "missing_config"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func resolveBlobStore(ctx context.Context, log *logger.Logger, cfg Config) (blobstore.Store, error) {
	storageCfg := cfg.StorageConfig().Normalize()
	log.Info(
		"Selecting object storage provider",
		"mode", storageCfg.Mode,
		"emulator_host", storageCfg.EmulatorHost,
	)

	store, err := openBlobStore(ctx, log, storageCfg)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", storageCfg.Mode,
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return store, nil
}

func classifyStorageProviderBootstrapError(storageCfg blobstore.Config, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *blobstore.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case blobstore.ConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case blobstore.ConfigErrorMissingDir, blobstore.ConfigErrorMissingBucket:
			code = StorageProviderBootstrapErrorMissingConfig
		case blobstore.ConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case blobstore.ConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(storageCfg.Mode),
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
