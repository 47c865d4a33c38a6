package blobstore

import (
	"errors"
	"testing"
)

func TestNormalizeDefaultsToLocal(t *testing.T) {
	cfg := Config{Mode: "  ", Dir: " ./storage "}.Normalize()
	if cfg.Mode != ModeLocal {
		t.Fatalf("mode: want=%q got=%q", ModeLocal, cfg.Mode)
	}
	if cfg.Dir != "./storage" {
		t.Fatalf("dir: want=%q got=%q", "./storage", cfg.Dir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateClassifiesErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want ConfigErrorCode
	}{
		{"invalid mode", Config{Mode: "s3"}, ConfigErrorInvalidMode},
		{"local without dir", Config{Mode: ModeLocal}, ConfigErrorMissingDir},
		{"gcs without bucket", Config{Mode: ModeGCS}, ConfigErrorMissingBucket},
		{"emulator without host", Config{Mode: ModeGCSEmulator, Bucket: "b"}, ConfigErrorMissingEmulatorHost},
		{"emulator bad host", Config{Mode: ModeGCSEmulator, Bucket: "b", EmulatorHost: "fake-gcs"}, ConfigErrorInvalidEmulatorHost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Normalize().Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("want ConfigError got=%v", err)
			}
			if cfgErr.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, cfgErr.Code)
			}
		})
	}
}

func TestValidateAcceptsEmulator(t *testing.T) {
	cfg := Config{Mode: "GCS_EMULATOR", Bucket: "archives", EmulatorHost: "http://fake-gcs:4443/"}.Normalize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("emulator host: want=%q got=%q", "http://fake-gcs:4443", cfg.EmulatorHost)
	}
}
