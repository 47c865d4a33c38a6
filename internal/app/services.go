package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/platform/blobstore"
	"github.com/yungbote/rastion-hub/internal/platform/events"
	"github.com/yungbote/rastion-hub/internal/platform/github"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
	"github.com/yungbote/rastion-hub/internal/services"
)

type Services struct {
	Sessions services.SessionTokenService
	Identity services.IdentityService
	Auth     services.AuthService
	Registry services.RegistryService
	Category services.CategoryService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, blobs blobstore.Store, publisher events.Publisher) Services {
	log.Info("Wiring services...")
	if cfg.UsesDefaultSecret() {
		log.Warn("JWT_SECRET is the development default; set it before exposing this server")
	}
	if cfg.GitHubClientID == "" {
		log.Warn("GITHUB_CLIENT_ID is empty; browser login will fail")
	}

	sessions := services.NewSessionTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, nil)
	identity := services.NewIdentityService(db, log, github.NewClient(cfg.GitHubConfig()), repos.User)
	return Services{
		Sessions: sessions,
		Identity: identity,
		Auth:     services.NewAuthService(log, sessions, identity, repos.User),
		Registry: services.NewRegistryService(db, log, repos.Artifact, repos.User, blobs, publisher),
		Category: services.NewCategoryService(db, log, repos.Artifact),
	}
}

// wirePublisher connects the registry event bus when REDIS_ADDR is set.
// Without it events are dropped.
func wirePublisher(ctx context.Context, log *logger.Logger, cfg Config) (events.Publisher, *events.RedisBus, error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set; registry events disabled")
		return events.Nop{}, nil, nil
	}
	bus, err := events.NewRedisBus(ctx, log, cfg.RedisConfig())
	if err != nil {
		return nil, nil, err
	}
	log.Info("Registry events enabled", "channel", bus.Channel())
	return bus, bus, nil
}
