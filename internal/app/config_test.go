package app

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)
	require.Equal(t, ":8000", cfg.ListenAddr())
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, "local", cfg.ObjectStorageMode)
	require.Equal(t, 168*time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, 12*time.Second, cfg.GitHubTimeout)
	require.Equal(t, "read:user", cfg.GitHubScope)
	require.Equal(t, "rastion.registry", cfg.RedisChannel)
	require.True(t, cfg.UsesDefaultSecret())
	require.False(t, cfg.OtelEnabled)
	require.Empty(t, cfg.CORSAllowOrigins)
}

func TestParseConfigOverrides(t *testing.T) {
	cfg, err := parseConfig(env.Options{Environment: map[string]string{
		"PORT":                       "127.0.0.1:9000",
		"DATABASE_DRIVER":            " Postgres ",
		"DATABASE_URL":               "postgres://rastion@db/rastion",
		"ACCESS_TOKEN_TTL":           "2h",
		"JWT_SECRET":                 "s3cret",
		"CORS_ALLOW_ORIGINS":         "https://a.example,https://b.example",
		"OTEL_EXPORTER_OTLP_HEADERS": "api-key=abc",
		"GITHUB_HTTP_TIMEOUT":        "3s",
	}})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddr())
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, 2*time.Hour, cfg.AccessTokenTTL)
	require.False(t, cfg.UsesDefaultSecret())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	require.Equal(t, map[string]string{"api-key": "abc"}, cfg.OtelConfig().Headers)
	require.Equal(t, 3*time.Second, cfg.GitHubConfig().Timeout)
}

func TestParseConfigRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver": {"DATABASE_DRIVER": "mysql"},
		"blank secret":   {"JWT_SECRET": "   "},
		"zero ttl":       {"ACCESS_TOKEN_TTL": "0s"},
		"bad duration":   {"ACCESS_TOKEN_TTL": "soon"},
	}
	for name, environ := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig(env.Options{Environment: environ})
			require.Error(t, err)
		})
	}
}
