package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/yungbote/rastion-hub/internal/platform/blobstore"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

func TestClassifyStorageProviderBootstrapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want StorageProviderBootstrapErrorCode
	}{
		{
			name: "invalid mode",
			err:  &blobstore.ConfigError{Code: blobstore.ConfigErrorInvalidMode, Mode: "bad-mode"},
			want: StorageProviderBootstrapErrorInvalidMode,
		},
		{
			name: "missing bucket",
			err:  fmt.Errorf("validate: %w", &blobstore.ConfigError{Code: blobstore.ConfigErrorMissingBucket, Mode: "gcs"}),
			want: StorageProviderBootstrapErrorMissingConfig,
		},
		{
			name: "missing emulator host",
			err:  &blobstore.ConfigError{Code: blobstore.ConfigErrorMissingEmulatorHost, Mode: "gcs_emulator"},
			want: StorageProviderBootstrapErrorMissingEmulatorHost,
		},
		{
			name: "invalid emulator host",
			err:  &blobstore.ConfigError{Code: blobstore.ConfigErrorInvalidEmulatorHost, EmulatorHost: "fake-gcs:4443"},
			want: StorageProviderBootstrapErrorInvalidEmulatorHost,
		},
		{
			name: "connect failed",
			err:  errors.New("dial tcp: connection refused"),
			want: StorageProviderBootstrapErrorConnectFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyStorageProviderBootstrapError(blobstore.Config{Mode: blobstore.ModeGCS}, tc.err)
			var got *StorageProviderBootstrapError
			if !errors.As(err, &got) {
				t.Fatalf("expected StorageProviderBootstrapError, got=%T", err)
			}
			if got.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, got.Code)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("cause not preserved: %v", err)
			}
		})
	}
}

func TestResolveBlobStoreLocal(t *testing.T) {
	cfg := Config{ObjectStorageMode: " LOCAL ", StorageDir: t.TempDir()}
	store, err := resolveBlobStore(context.Background(), logger.NewNop(), cfg)
	if err != nil {
		t.Fatalf("resolveBlobStore: %v", err)
	}
	if _, ok := store.(*blobstore.FSStore); !ok {
		t.Fatalf("store type: want=*blobstore.FSStore got=%T", store)
	}
}

func TestResolveBlobStoreRejectsEmulatorWithoutHost(t *testing.T) {
	cfg := Config{ObjectStorageMode: "gcs_emulator", ArchiveBucket: "archives"}
	_, err := resolveBlobStore(context.Background(), logger.NewNop(), cfg)
	if got := storageProviderBootstrapErrorCode(err); got != StorageProviderBootstrapErrorMissingEmulatorHost {
		t.Fatalf("code: want=%q got=%q", StorageProviderBootstrapErrorMissingEmulatorHost, got)
	}
}

func TestResolveBlobStorePassesNormalizedConfig(t *testing.T) {
	orig := openBlobStore
	t.Cleanup(func() { openBlobStore = orig })

	var seen blobstore.Config
	openBlobStore = func(_ context.Context, _ *logger.Logger, cfg blobstore.Config) (blobstore.Store, error) {
		seen = cfg
		return nil, errors.New("boom")
	}
	cfg := Config{ObjectStorageMode: "GCS", ArchiveBucket: " archives ", StorageEmulatorHost: "http://fake-gcs:4443/"}
	if _, err := resolveBlobStore(context.Background(), logger.NewNop(), cfg); err == nil {
		t.Fatalf("expected error")
	}
	if seen.Mode != blobstore.ModeGCS || seen.Bucket != "archives" || seen.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("config not normalized: %+v", seen)
	}
}
