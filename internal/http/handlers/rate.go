package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/http/middleware"
	"github.com/yungbote/rastion-hub/internal/http/response"
	"github.com/yungbote/rastion-hub/internal/observability"
	"github.com/yungbote/rastion-hub/internal/platform/apierr"
	"github.com/yungbote/rastion-hub/internal/services"
)

type RateHandler struct {
	registry services.RegistryService
	metrics  *observability.Metrics
}

func NewRateHandler(registry services.RegistryService, metrics *observability.Metrics) *RateHandler {
	return &RateHandler{registry: registry, metrics: metrics}
}

// Rate serves POST /<tag>/:id/rate for one tag spelling.
func (h *RateHandler) Rate(tag string) gin.HandlerFunc {
	kindLabel := kindLabelFor(tag)
	return func(c *gin.Context) {
		h.rate(c, tag, kindLabel)
	}
}

// RateAny serves POST /:tag/:id/rate for spellings without a dedicated route.
// The registry rejects unknown tags with 400.
func (h *RateHandler) RateAny(c *gin.Context) {
	tag := c.Param("tag")
	h.rate(c, tag, kindLabelFor(tag))
}

func kindLabelFor(tag string) string {
	if k, ok := artifact.ParseTag(tag); ok {
		return string(k)
	}
	return "unknown"
}

func (h *RateHandler) rate(c *gin.Context, tag, kindLabel string) {
	id, err := idParam(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var req struct {
		Rating *float64 `json:"rating"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating == nil {
		response.RespondAPIError(c, apierr.BadRequest("body must be {\"rating\": <0..5>}"))
		return
	}
	res, err := h.registry.Rate(c.Request.Context(), middleware.CallerFrom(c), tag, id, *req.Rating)
	if err != nil {
		h.metrics.ObserveRegistry("rate", kindLabel, apierr.As(err).Status)
		response.RespondAPIError(c, err)
		return
	}
	h.metrics.ObserveRegistry("rate", kindLabel, http.StatusOK)
	response.RespondOK(c, res)
}
