package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/http"
	httpH "github.com/yungbote/rastion-hub/internal/http/handlers"
	httpMW "github.com/yungbote/rastion-hub/internal/http/middleware"
	"github.com/yungbote/rastion-hub/internal/observability"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Auth      *httpH.AuthHandler
	Rate      *httpH.RateHandler
	Artifacts []*httpH.ArtifactHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health: httpH.NewHealthHandler(),
		Auth:   httpH.NewAuthHandler(log, services.Auth, metrics, cfg.GitHubCallbackURL),
		Rate:   httpH.NewRateHandler(services.Registry, metrics),
	}
	for _, kind := range artifact.Kinds {
		h.Artifacts = append(h.Artifacts, httpH.NewArtifactHandler(log, services.Registry, metrics, kind, cfg.MaxUploadBytes))
	}
	return h
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	serviceName := ""
	if cfg.OtelEnabled {
		serviceName = cfg.OtelServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:              log,
		ServiceName:      serviceName,
		CORSOrigins:      cfg.CORSAllowOrigins,
		Metrics:          metrics,
		ExposeMetrics:    cfg.MetricsAddr == "",
		AuthHandler:      handlers.Auth,
		AuthMiddleware:   middleware.Auth,
		HealthHandler:    handlers.Health,
		RateHandler:      handlers.Rate,
		ArtifactHandlers: handlers.Artifacts,
	})
}
