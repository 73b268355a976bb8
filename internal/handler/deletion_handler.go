package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/internal/service"
	"github.com/noah-isme/sma-report-portal/pkg/response"
)

type deletionProvider interface {
	Request(ctx context.Context, viewer service.Viewer, collection models.Collection, recordID int64, req dto.DeleteRequest) (*dto.DeleteConfirmationResponse, error)
	Confirm(ctx context.Context, viewer service.Viewer, token string) (*service.CollectionRefresh, error)
	Cancel(ctx context.Context, token string) error
}

// DeletionHandler exposes the two-phase delete endpoints.
type DeletionHandler struct {
	deletions deletionProvider
}

// NewDeletionHandler constructs handler.
func NewDeletionHandler(deletions deletionProvider) *DeletionHandler {
	return &DeletionHandler{deletions: deletions}
}

// RequestDelete godoc
// @Summary Request deletion of a record
// @Description Issues a single-use confirmation token; nothing is deleted yet.
// @Tags Deletions
// @Accept json
// @Produce json
// @Param collection path string true "grades, warnings, suspensions or absences"
// @Param id path int true "Record ID"
// @Param payload body dto.DeleteRequest true "Student owning the record"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /{collection}/{id}/delete-request [post]
func (h *DeletionHandler) RequestDelete(collection models.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerOrAbort(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req dto.DeleteRequest
		if !bindJSON(c, &req) {
			return
		}
		resp, err := h.deletions.Request(c.Request.Context(), viewer, collection, id, req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, resp)
	}
}

// ConfirmDelete godoc
// @Summary Confirm a pending deletion
// @Tags Deletions
// @Produce json
// @Param token path string true "Confirmation token"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /deletions/{token}/confirm [post]
func (h *DeletionHandler) ConfirmDelete(c *gin.Context) {
	viewer, ok := viewerOrAbort(c)
	if !ok {
		return
	}
	refresh, err := h.deletions.Confirm(c.Request.Context(), viewer, c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, refresh)
}

// CancelDelete godoc
// @Summary Cancel a pending deletion
// @Tags Deletions
// @Param token path string true "Confirmation token"
// @Success 204
// @Failure 410 {object} response.Envelope
// @Router /deletions/{token} [delete]
func (h *DeletionHandler) CancelDelete(c *gin.Context) {
	if _, ok := viewerOrAbort(c); !ok {
		return
	}
	if err := h.deletions.Cancel(c.Request.Context(), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
