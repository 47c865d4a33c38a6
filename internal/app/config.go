package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/yungbote/rastion-hub/internal/data/db"
	"github.com/yungbote/rastion-hub/internal/observability"
	"github.com/yungbote/rastion-hub/internal/platform/blobstore"
	"github.com/yungbote/rastion-hub/internal/platform/events"
	"github.com/yungbote/rastion-hub/internal/platform/github"
)

const defaultJWTSecret = "dev-secret-change-this"

// Config is read once at process start and passed down by value.
type Config struct {
	Port        string `env:"PORT"          envDefault:"8000"`
	LogMode     string `env:"LOG_MODE"      envDefault:"development"`
	LogHashSalt string `env:"LOG_HASH_SALT"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL"    envDefault:"./data/rastion.db"`

	ObjectStorageMode   string `env:"OBJECT_STORAGE_MODE"            envDefault:"local"`
	StorageDir          string `env:"STORAGE_DIR"                    envDefault:"./data/storage"`
	ArchiveBucket       string `env:"ARCHIVE_GCS_BUCKET_NAME"`
	StorageEmulatorHost string `env:"STORAGE_EMULATOR_HOST"`
	GCPCredentialsJSON  string `env:"GCP_CREDENTIALS_JSON"`
	GCPCredentialsFile  string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	MaxUploadBytes      int64  `env:"MAX_UPLOAD_BYTES"               envDefault:"268435456"`

	JWTSecret      string        `env:"JWT_SECRET"       envDefault:"dev-secret-change-this"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"168h"`

	GitHubClientID     string        `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `env:"GITHUB_CLIENT_SECRET"`
	GitHubScope        string        `env:"GITHUB_OAUTH_SCOPE"    envDefault:"read:user"`
	GitHubAuthorizeURL string        `env:"GITHUB_AUTHORIZE_URL"  envDefault:"https://github.com/login/oauth/authorize"`
	GitHubTokenURL     string        `env:"GITHUB_TOKEN_URL"      envDefault:"https://github.com/login/oauth/access_token"`
	GitHubUserURL      string        `env:"GITHUB_USER_URL"       envDefault:"https://api.github.com/user"`
	GitHubTimeout      time.Duration `env:"GITHUB_HTTP_TIMEOUT"   envDefault:"12s"`
	GitHubCallbackURL  string        `env:"GITHUB_CALLBACK_URL"`

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:","`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`
	RedisChannel  string `env:"REDIS_CHANNEL"  envDefault:"rastion.registry"`

	OtelEnabled     bool    `env:"OTEL_ENABLED"`
	OtelServiceName string  `env:"OTEL_SERVICE_NAME"            envDefault:"rastion-hub"`
	OtelEnvironment string  `env:"OTEL_ENVIRONMENT"             envDefault:"development"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLER_RATIO"           envDefault:"0.1"`

	MetricsEnabled  bool          `env:"METRICS_ENABLED"`
	MetricsAddr     string        `env:"METRICS_ADDR"`
	MetricsInterval time.Duration `env:"METRICS_SCRAPE_INTERVAL" envDefault:"10s"`

	Version string `env:"APP_VERSION" envDefault:"dev"`
}

// LoadConfig parses the process environment.
func LoadConfig() (Config, error) {
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	if cfg.DatabaseDriver != db.DriverSQLite && cfg.DatabaseDriver != db.DriverPostgres {
		return Config{}, fmt.Errorf("invalid DATABASE_DRIVER=%q (allowed: %q, %q)", cfg.DatabaseDriver, db.DriverSQLite, db.DriverPostgres)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must not be blank")
	}
	if cfg.AccessTokenTTL <= 0 {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %s", cfg.AccessTokenTTL)
	}
	return cfg, nil
}

func (c Config) UsesDefaultSecret() bool { return c.JWTSecret == defaultJWTSecret }

func (c Config) ListenAddr() string {
	port := strings.TrimSpace(c.Port)
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func (c Config) DBConfig() db.Config {
	return db.Config{Driver: c.DatabaseDriver, DSN: c.DatabaseURL}
}

func (c Config) StorageConfig() blobstore.Config {
	return blobstore.Config{
		Mode:            blobstore.Mode(c.ObjectStorageMode),
		Dir:             c.StorageDir,
		Bucket:          c.ArchiveBucket,
		EmulatorHost:    c.StorageEmulatorHost,
		CredentialsJSON: c.GCPCredentialsJSON,
		CredentialsFile: c.GCPCredentialsFile,
	}
}

func (c Config) GitHubConfig() github.Config {
	return github.Config{
		ClientID:     c.GitHubClientID,
		ClientSecret: c.GitHubClientSecret,
		Scope:        c.GitHubScope,
		AuthorizeURL: c.GitHubAuthorizeURL,
		TokenURL:     c.GitHubTokenURL,
		UserURL:      c.GitHubUserURL,
		Timeout:      c.GitHubTimeout,
	}
}

func (c Config) RedisConfig() events.RedisConfig {
	return events.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		Channel:  c.RedisChannel,
	}
}

func (c Config) OtelConfig() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.OtelEnabled,
		ServiceName: c.OtelServiceName,
		Environment: c.OtelEnvironment,
		Version:     c.Version,
		Endpoint:    c.OtelEndpoint,
		Headers:     observability.ParseHeaders(c.OtelHeaders),
		Insecure:    c.OtelInsecure,
		SampleRatio: c.OtelSampleRatio,
	}
}
