package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/service"
	"github.com/noah-isme/sma-report-portal/pkg/response"
)

type mutationProvider interface {
	SaveGrade(ctx context.Context, viewer service.Viewer, id int64, req dto.GradeRequest) (*service.CollectionRefresh, error)
	SaveWarning(ctx context.Context, viewer service.Viewer, id int64, req dto.WarningRequest) (*service.CollectionRefresh, error)
	SaveSuspension(ctx context.Context, viewer service.Viewer, id int64, req dto.SuspensionRequest) (*service.CollectionRefresh, error)
	SaveAbsence(ctx context.Context, viewer service.Viewer, id int64, req dto.AbsenceRequest) (*service.CollectionRefresh, error)
	BulkAbsences(ctx context.Context, viewer service.Viewer, req dto.BulkAbsenceRequest) (*service.BulkAbsenceResult, error)
}

// MutationHandler exposes record create/update endpoints. Every success
// answers with the refetched collection.
type MutationHandler struct {
	mutations mutationProvider
}

// NewMutationHandler constructs handler.
func NewMutationHandler(mutations mutationProvider) *MutationHandler {
	return &MutationHandler{mutations: mutations}
}

// save runs the shared bind/dispatch/respond sequence. With withID the
// record id comes from the path and the call is an update.
func save[T any](c *gin.Context, withID bool, call func(ctx context.Context, viewer service.Viewer, id int64, req T) (*service.CollectionRefresh, error)) {
	viewer, ok := viewerOrAbort(c)
	if !ok {
		return
	}
	var id int64
	if withID {
		if id, ok = idParam(c, "id"); !ok {
			return
		}
	}
	var req T
	if !bindJSON(c, &req) {
		return
	}
	refresh, err := call(c.Request.Context(), viewer, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if withID {
		response.JSON(c, http.StatusOK, refresh)
		return
	}
	response.Created(c, refresh)
}

// CreateGrade godoc
// @Summary Record a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.GradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades [post]
func (h *MutationHandler) CreateGrade(c *gin.Context) {
	save(c, false, h.mutations.SaveGrade)
}

// UpdateGrade godoc
// @Summary Replace a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path int true "Grade ID"
// @Param payload body dto.GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /grades/{id} [put]
func (h *MutationHandler) UpdateGrade(c *gin.Context) {
	save(c, true, h.mutations.SaveGrade)
}

// CreateWarning godoc
// @Summary Issue a warning
// @Tags Discipline
// @Accept json
// @Produce json
// @Param payload body dto.WarningRequest true "Warning payload"
// @Success 201 {object} response.Envelope
// @Router /warnings [post]
func (h *MutationHandler) CreateWarning(c *gin.Context) {
	save(c, false, h.mutations.SaveWarning)
}

// UpdateWarning godoc
// @Summary Replace a warning
// @Tags Discipline
// @Param id path int true "Warning ID"
// @Param payload body dto.WarningRequest true "Warning payload"
// @Success 200 {object} response.Envelope
// @Router /warnings/{id} [put]
func (h *MutationHandler) UpdateWarning(c *gin.Context) {
	save(c, true, h.mutations.SaveWarning)
}

// CreateSuspension godoc
// @Summary Register a suspension
// @Tags Discipline
// @Param payload body dto.SuspensionRequest true "Suspension payload"
// @Success 201 {object} response.Envelope
// @Router /suspensions [post]
func (h *MutationHandler) CreateSuspension(c *gin.Context) {
	save(c, false, h.mutations.SaveSuspension)
}

// UpdateSuspension godoc
// @Summary Replace a suspension
// @Tags Discipline
// @Param id path int true "Suspension ID"
// @Param payload body dto.SuspensionRequest true "Suspension payload"
// @Success 200 {object} response.Envelope
// @Router /suspensions/{id} [put]
func (h *MutationHandler) UpdateSuspension(c *gin.Context) {
	save(c, true, h.mutations.SaveSuspension)
}

// CreateAbsence godoc
// @Summary Record an absence
// @Tags Attendance
// @Param payload body dto.AbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /absences [post]
func (h *MutationHandler) CreateAbsence(c *gin.Context) {
	save(c, false, h.mutations.SaveAbsence)
}

// UpdateAbsence godoc
// @Summary Replace an absence
// @Tags Attendance
// @Param id path int true "Absence ID"
// @Param payload body dto.AbsenceRequest true "Absence payload"
// @Success 200 {object} response.Envelope
// @Router /absences/{id} [put]
func (h *MutationHandler) UpdateAbsence(c *gin.Context) {
	save(c, true, h.mutations.SaveAbsence)
}

// BulkAbsences godoc
// @Summary Record the same absence for several students
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.BulkAbsenceRequest true "Bulk absence payload"
// @Success 201 {object} response.Envelope
// @Router /absences/bulk [post]
func (h *MutationHandler) BulkAbsences(c *gin.Context) {
	viewer, ok := viewerOrAbort(c)
	if !ok {
		return
	}
	var req dto.BulkAbsenceRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.mutations.BulkAbsences(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
