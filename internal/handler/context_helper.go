package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-portal/internal/middleware"
	"github.com/noah-isme/sma-report-portal/internal/service"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/response"
)

// viewerOrAbort returns the session viewer, answering 401 when missing.
func viewerOrAbort(c *gin.Context) (service.Viewer, bool) {
	viewer, ok := middleware.ViewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Viewer{}, false
	}
	return viewer, true
}

// idParam parses a positive integer path parameter, answering 400 otherwise.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation, map[string][]string{
			name: {name + " must be a positive integer"},
		}, ""))
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body, answering 400 on malformed JSON.
// Field validation happens in the services.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation, map[string][]string{
			"body": {"invalid JSON payload: " + err.Error()},
		}, ""))
		return false
	}
	return true
}
