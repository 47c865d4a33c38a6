package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rastion-hub/internal/domain/user"
	"github.com/yungbote/rastion-hub/internal/http/response"
	"github.com/yungbote/rastion-hub/internal/platform/apierr"
	"github.com/yungbote/rastion-hub/internal/platform/ctxutil"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
	"github.com/yungbote/rastion-hub/internal/services"
)

const callerKey = "caller"

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authService: authService}
}

// RequireAuth resolves the bearer credential to a user and aborts with 401
// when there is none.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := BearerToken(c)
		if credential == "" {
			response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, errMissingBearer)
			return
		}
		u, err := am.authService.ResolveCaller(c.Request.Context(), credential)
		if err != nil {
			am.log.Debug("caller resolution failed", "path", c.FullPath(), "error", err)
			response.RespondAPIError(c, err)
			return
		}
		c.Set(callerKey, u)
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID:   u.ID,
			Username: u.Username,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CallerFrom returns the user attached by RequireAuth.
func CallerFrom(c *gin.Context) *user.User {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	u, _ := v.(*user.User)
	return u
}

// BearerToken extracts the credential from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

var errMissingBearer = apierr.Unauthenticated("missing bearer token")
