package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-portal/internal/service"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/response"
)

// ContextViewerKey is the gin context key storing the resolved viewer.
const ContextViewerKey = "viewer"

// Session requires a bearer credential and resolves the viewer's role from
// the profile header. The credential is forwarded to the backend untouched.
func Session(profiles *ProfileDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		c.Set(ContextViewerKey, service.Viewer{
			Credential: strings.TrimSpace(parts[1]),
			Role:       profiles.Role(c.GetHeader(ProfileHeader)),
		})
		c.Next()
	}
}

// ViewerFromContext returns the viewer stored by Session.
func ViewerFromContext(c *gin.Context) (service.Viewer, bool) {
	value, exists := c.Get(ContextViewerKey)
	if !exists {
		return service.Viewer{}, false
	}
	viewer, ok := value.(service.Viewer)
	return viewer, ok
}
