package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-portal/internal/service"
	"github.com/noah-isme/sma-report-portal/pkg/response"
)

type reportBuilder interface {
	Build(ctx context.Context, req service.BuildRequest) (*service.ReportViewModel, error)
}

type reportExporter interface {
	ReportPDF(ctx context.Context, viewer service.Viewer, studentID int64) (*service.ExportFile, error)
	GradesCSV(ctx context.Context, viewer service.Viewer, studentID int64) (*service.ExportFile, error)
}

// ReportHandler exposes report card endpoints.
type ReportHandler struct {
	reports reportBuilder
	exports reportExporter
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportBuilder, exports reportExporter) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// StudentReport godoc
// @Summary Student report card view model
// @Tags Reports
// @Produce json
// @Param id path int true "Student ID"
// @Param variant query string false "full, guardian or grades"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /reports/students/{id} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	viewer, ok := viewerOrAbort(c)
	if !ok {
		return
	}
	studentID, ok := idParam(c, "id")
	if !ok {
		return
	}
	opts, err := service.ReportOptionsFor(c.Query("variant"))
	if err != nil {
		response.Error(c, err)
		return
	}
	model, err := h.reports.Build(c.Request.Context(), service.BuildRequest{StudentID: studentID, Viewer: viewer, Options: opts})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, model)
}

// ReportPDF godoc
// @Summary Download the report card PDF
// @Tags Reports
// @Produce application/pdf
// @Param id path int true "Student ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /reports/students/{id}/pdf [get]
func (h *ReportHandler) ReportPDF(c *gin.Context) {
	h.download(c, h.exports.ReportPDF)
}

// GradesCSV godoc
// @Summary Download the grade table as CSV
// @Tags Reports
// @Produce text/csv
// @Param id path int true "Student ID"
// @Success 200 {file} binary
// @Router /reports/students/{id}/grades.csv [get]
func (h *ReportHandler) GradesCSV(c *gin.Context) {
	h.download(c, h.exports.GradesCSV)
}

func (h *ReportHandler) download(c *gin.Context, produce func(context.Context, service.Viewer, int64) (*service.ExportFile, error)) {
	viewer, ok := viewerOrAbort(c)
	if !ok {
		return
	}
	studentID, ok := idParam(c, "id")
	if !ok {
		return
	}
	file, err := produce(c.Request.Context(), viewer, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("X-Report-Source", file.Source)
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
