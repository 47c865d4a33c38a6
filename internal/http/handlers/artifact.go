package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rastion-hub/internal/domain/artifact"
	"github.com/yungbote/rastion-hub/internal/http/middleware"
	"github.com/yungbote/rastion-hub/internal/http/response"
	"github.com/yungbote/rastion-hub/internal/observability"
	"github.com/yungbote/rastion-hub/internal/platform/apierr"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
	"github.com/yungbote/rastion-hub/internal/services"
)

const defaultMaxUploadBytes int64 = 256 << 20

// ArtifactHandler serves one artifact kind. The router mounts one per kind.
type ArtifactHandler struct {
	log            *logger.Logger
	registry       services.RegistryService
	metrics        *observability.Metrics
	kind           artifact.Kind
	maxUploadBytes int64
}

func NewArtifactHandler(
	log *logger.Logger,
	registry services.RegistryService,
	metrics *observability.Metrics,
	kind artifact.Kind,
	maxUploadBytes int64,
) *ArtifactHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &ArtifactHandler{
		log:            log.With("handler", "ArtifactHandler", "kind", string(kind)),
		registry:       registry,
		metrics:        metrics,
		kind:           kind,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *ArtifactHandler) Kind() artifact.Kind { return h.kind }

func (h *ArtifactHandler) fail(c *gin.Context, op string, err error) {
	h.metrics.ObserveRegistry(op, string(h.kind), apierr.As(err).Status)
	response.RespondAPIError(c, err)
}

func (h *ArtifactHandler) List(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	size, err := intQuery(c, "page_size", services.DefaultPageSize)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := h.registry.List(c.Request.Context(), h.kind, services.ListQuery{
		Q:        c.Query("q"),
		Category: c.Query("category"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, toArtifactListOut(res))
}

func (h *ArtifactHandler) Create(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.ObserveRegistry("create", string(h.kind), http.StatusRequestEntityTooLarge)
			response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", err)
			return
		}
		h.fail(c, "create", apierr.BadRequest("multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	defer f.Close()

	a, err := h.registry.Create(c.Request.Context(), caller, h.kind, services.CreateInput{
		Name:        c.PostForm("name"),
		Version:     c.PostForm("version"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Manifest:    c.PostForm("manifest"),
		Filename:    fh.Filename,
		Body:        f,
	})
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	h.metrics.ObserveRegistry("create", string(h.kind), http.StatusCreated)
	h.metrics.ObserveUpload(string(h.kind), fh.Size)
	response.RespondCreated(c, toArtifactOut(a))
}

func (h *ArtifactHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	a, err := h.registry.Get(c.Request.Context(), h.kind, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, toArtifactOut(a))
}

func (h *ArtifactHandler) Versions(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	versions, err := h.registry.ListVersions(c.Request.Context(), h.kind, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out := make([]VersionOut, 0, len(versions))
	for _, v := range versions {
		out = append(out, toVersionOut(v))
	}
	response.RespondOK(c, gin.H{"items": out})
}

func (h *ArtifactHandler) Download(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	dl, err := h.registry.Download(c.Request.Context(), h.kind, id)
	if err != nil {
		h.fail(c, "download", err)
		return
	}
	defer dl.Body.Close()
	h.metrics.ObserveRegistry("download", string(h.kind), http.StatusOK)

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename})
	c.DataFromReader(http.StatusOK, -1, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (h *ArtifactHandler) Delete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if err := h.registry.Delete(c.Request.Context(), middleware.CallerFrom(c), h.kind, id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	h.metrics.ObserveRegistry("delete", string(h.kind), http.StatusNoContent)
	c.Status(http.StatusNoContent)
}

func idParam(c *gin.Context) (uint, error) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apierr.BadRequest("invalid id %q", raw)
	}
	return uint(id), nil
}

// intQuery reads an optional integer query parameter. Range checks belong
// to the service.
func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apierr.BadRequest("%s must be an integer", key)
	}
	return n, nil
}
