package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-scheduler-api/internal/backend"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
	"github.com/noah-isme/course-scheduler-api/pkg/logger"
	"github.com/noah-isme/course-scheduler-api/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the resolved caller.
const ContextPrincipalKey = "currentPrincipal"

type principalResolver interface {
	Resolve(ctx context.Context, cookie string) (*models.Principal, error)
}

// Session protects routes by resolving the session cookie into a principal.
// The cookie is attached to the request context so backend calls made on the
// caller's behalf carry it.
func Session(resolver principalResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Request.Cookie(cookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session cookie missing"))
			c.Abort()
			return
		}

		ctx := backend.WithCookie(c.Request.Context(), &http.Cookie{Name: cookie.Name, Value: cookie.Value})
		c.Request = c.Request.WithContext(ctx)

		principal, err := resolver.Resolve(ctx, cookie.Value)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Set(logger.UserIDKey, principal.UserID)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Session, if any.
func PrincipalFrom(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	principal, ok := value.(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}
