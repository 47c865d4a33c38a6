package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	httpH "github.com/yungbote/rastion-hub/internal/http/handlers"
	httpMW "github.com/yungbote/rastion-hub/internal/http/middleware"
	"github.com/yungbote/rastion-hub/internal/observability"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	ExposeMetrics  bool
	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	HealthHandler  *httpH.HealthHandler
	RateHandler    *httpH.RateHandler

	// ArtifactHandlers holds one handler per kind.
	ArtifactHandlers []*httpH.ArtifactHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	requireAuth := func(c *gin.Context) { c.Next() }
	if cfg.AuthMiddleware != nil {
		requireAuth = cfg.AuthMiddleware.RequireAuth()
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.ExposeMetrics && cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Auth
	if cfg.AuthHandler != nil {
		auth := r.Group("/auth")
		auth.GET("/login", cfg.AuthHandler.Login)
		auth.GET("/callback", cfg.AuthHandler.Callback)
		auth.POST("/token", cfg.AuthHandler.VerifyToken)
		auth.POST("/login", cfg.AuthHandler.LoginWithBearer)
		auth.GET("/me", requireAuth, cfg.AuthHandler.Me)
	}

	// Problems / solvers
	for _, h := range cfg.ArtifactHandlers {
		if h == nil {
			continue
		}
		g := r.Group("/" + h.Kind().Table())
		g.GET("", h.List)
		g.POST("", requireAuth, h.Create)
		g.GET("/:id", h.Get)
		g.GET("/:id/versions", h.Versions)
		g.GET("/:id/download", h.Download)
		g.DELETE("/:id", requireAuth, h.Delete)
	}

	// Ratings: one route per accepted spelling, plus a catch-all so other
	// spellings reach the registry and get its 400.
	if cfg.RateHandler != nil {
		for _, tag := range artifact.RateTags {
			r.POST("/"+tag+"/:id/rate", requireAuth, cfg.RateHandler.Rate(tag))
		}
		r.POST("/:tag/:id/rate", requireAuth, cfg.RateHandler.RateAny)
	}

	return r
}
