package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rastion-hub/internal/http/middleware"
	"github.com/yungbote/rastion-hub/internal/http/response"
	"github.com/yungbote/rastion-hub/internal/observability"
	"github.com/yungbote/rastion-hub/internal/platform/apierr"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
	"github.com/yungbote/rastion-hub/internal/services"
)

const callbackPath = "/auth/callback"

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
	metrics     *observability.Metrics
	// callbackURL overrides the redirect URI derived from the request host.
	callbackURL string
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService, metrics *observability.Metrics, callbackURL string) *AuthHandler {
	return &AuthHandler{
		log:         log.With("handler", "AuthHandler"),
		authService: authService,
		metrics:     metrics,
		callbackURL: strings.TrimSpace(callbackURL),
	}
}

func (h *AuthHandler) redirectURI(c *gin.Context) string {
	if h.callbackURL != "" {
		return h.callbackURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")); fwd != "" {
		scheme = strings.ToLower(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + c.Request.Host + callbackPath
}

// Login returns the GitHub authorize URL for the browser flow.
func (h *AuthHandler) Login(c *gin.Context) {
	response.RespondOK(c, gin.H{"url": h.authService.LoginURL(h.redirectURI(c))})
}

func (h *AuthHandler) Callback(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	if len(code) < 4 {
		response.RespondAPIError(c, apierr.BadRequest("missing or malformed oauth code"))
		return
	}
	token, u, err := h.authService.CompleteCallback(c.Request.Context(), code, h.redirectURI(c))
	if err != nil {
		h.metrics.ObserveLogin("callback", apierr.As(err).Status)
		response.RespondAPIError(c, err)
		return
	}
	h.metrics.ObserveLogin("callback", http.StatusOK)

	var buf bytes.Buffer
	if err := callbackPage.Execute(&buf, struct{ Token, Username string }{token, u.Username}); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Header("Content-Disposition", "inline")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// VerifyToken reports whether a credential resolves to a user. An invalid
// credential is a 200 with valid=false, not an error.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req struct {
		Token *string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == nil {
		response.RespondAPIError(c, apierr.BadRequest("body must be {\"token\": \"...\"}"))
		return
	}
	u, ok, err := h.authService.VerifyCredential(c.Request.Context(), *req.Token)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if !ok {
		response.RespondOK(c, gin.H{"valid": false, "user": nil})
		return
	}
	response.RespondOK(c, gin.H{"valid": true, "user": toUserOut(u)})
}

// LoginWithBearer trades a GitHub token for a session token.
func (h *AuthHandler) LoginWithBearer(c *gin.Context) {
	upstream := middleware.BearerToken(c)
	if upstream == "" {
		response.RespondAPIError(c, apierr.Unauthenticated("missing bearer token"))
		return
	}
	res, err := h.authService.LoginWithUpstream(c.Request.Context(), upstream)
	if err != nil {
		h.metrics.ObserveLogin("bearer", apierr.As(err).Status)
		response.RespondAPIError(c, err)
		return
	}
	h.metrics.ObserveLogin("bearer", http.StatusOK)
	response.RespondOK(c, gin.H{
		"access_token": res.AccessToken,
		"token_type":   res.TokenType,
		"expires_in":   res.ExpiresIn,
		"user":         toUserOut(res.User),
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	u := middleware.CallerFrom(c)
	if u == nil {
		response.RespondAPIError(c, apierr.Unauthenticated("not signed in"))
		return
	}
	response.RespondOK(c, toUserOut(u))
}

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>Rastion Authorization</title>
    <style>
      body { margin: 0; font-family: ui-sans-serif, system-ui, sans-serif; color: #0f172a; background: #f1f5f9; }
      main { max-width: 720px; margin: 4rem auto; background: #fff; border: 1px solid #dbe3ef; border-radius: 14px; padding: 1.6rem; }
      pre { padding: 0.85rem; border-radius: 10px; background: #0f172a; color: #f8fafc; white-space: pre-wrap; word-break: break-all; }
      button { border: 0; border-radius: 10px; background: #0f766e; color: #fff; padding: 0.6rem 1rem; cursor: pointer; }
    </style>
  </head>
  <body>
    <main>
      <h1>Authorization successful</h1>
      <p>Signed in as <strong>{{.Username}}</strong>.</p>
      <p>Copy this token and paste it into your terminal client:</p>
      <pre id="token">{{.Token}}</pre>
      <button id="copy" type="button">Copy token</button>
    </main>
    <script>
      document.getElementById("copy").addEventListener("click", async () => {
        const btn = document.getElementById("copy");
        try {
          await navigator.clipboard.writeText(document.getElementById("token").textContent || "");
          btn.textContent = "Copied";
        } catch {
          btn.textContent = "Copy failed";
        }
      });
    </script>
  </body>
</html>
`))
