package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/abduss/contactbook/internal/logger"
	"github.com/abduss/contactbook/internal/user"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userContextKey = "contactsUser"

type identityResolver interface {
	Resolve(ctx context.Context, token string) (user.User, error)
}

// AuthMiddleware resolves the bearer token and injects the authenticated user.
func AuthMiddleware(resolver identityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abortUnauthenticated(c, "not authenticated")
			return
		}

		u, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				logger.FromGin(c).Debug("bearer token rejected", zap.Error(err))
				abortUnauthenticated(c, ErrUnauthenticated.Error())
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate"})
			return
		}

		c.Set(userContextKey, u)
		c.Next()
	}
}

// CurrentUser extracts the authenticated user from the context.
func CurrentUser(c *gin.Context) (user.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return user.User{}, false
	}
	u, ok := value.(user.User)
	return u, ok
}

// RequireUser returns the authenticated user or aborts with 401.
func RequireUser(c *gin.Context) (user.User, bool) {
	u, ok := CurrentUser(c)
	if !ok {
		abortUnauthenticated(c, "not authenticated")
		return user.User{}, false
	}
	return u, true
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
