package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/export"
)

// Export content types.
const (
	ContentTypePDF = "application/pdf"
	ContentTypeCSV = "text/csv; charset=utf-8"
)

// Sources of a report-card PDF.
const (
	SourceBackend = "backend"
	SourceLocal   = "local"
)

type pdfSource interface {
	ReportPDF(ctx context.Context, credential string, studentID int64) ([]byte, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Source      string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	// PDFFallback renders the report card locally when the backend cannot.
	PDFFallback bool
}

// ExportService produces report-card downloads.
type ExportService struct {
	builder reportBuilder
	source  pdfSource
	csv     csvRenderer
	pdf     pdfRenderer
	cfg     ExportConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(builder reportBuilder, source pdfSource, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{builder: builder, source: source, csv: csv, pdf: pdf, cfg: cfg, logger: logger, now: time.Now}
}

// ReportCardFilename is the download name of a student's report card.
func ReportCardFilename(studentID int64) string {
	return fmt.Sprintf("report_card_student_%d.pdf", studentID)
}

// ReportPDF returns the backend-rendered report card. When the backend
// fails for reasons other than authorization or a missing student, and the
// fallback is enabled, the card is rendered locally from the view model.
func (s *ExportService) ReportPDF(ctx context.Context, viewer Viewer, studentID int64) (*ExportFile, error) {
	body, err := s.source.ReportPDF(ctx, viewer.Credential, studentID)
	if err == nil {
		return &ExportFile{Filename: ReportCardFilename(studentID), ContentType: ContentTypePDF, Body: body, Source: SourceBackend}, nil
	}
	if !s.shouldFallBack(ctx, err) {
		if appErrors.IsCode(err, appErrors.ErrNotFound.Code) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, err
	}

	s.logger.Warn("backend report pdf unavailable, rendering locally", zap.Int64("student_id", studentID), zap.Error(err))

	model, err := s.builder.Build(ctx, BuildRequest{StudentID: studentID, Viewer: viewer, Options: GuardianReport})
	if err != nil {
		return nil, err
	}
	body, err = s.pdf.Render(s.reportDocument(model))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	return &ExportFile{Filename: ReportCardFilename(studentID), ContentType: ContentTypePDF, Body: body, Source: SourceLocal}, nil
}

// GradesCSV exports the grade table of a student.
func (s *ExportService) GradesCSV(ctx context.Context, viewer Viewer, studentID int64) (*ExportFile, error) {
	model, err := s.builder.Build(ctx, BuildRequest{StudentID: studentID, Viewer: viewer, Options: GradesOnly})
	if err != nil {
		return nil, err
	}
	if model.Grades != nil && !model.Grades.Available {
		return nil, appErrors.Clone(appErrors.ErrUpstreamUnavailable, "grades unavailable")
	}
	body, err := s.csv.Render(gradeTable(model.Grades))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grades")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("grades_student_%d.csv", studentID),
		ContentType: ContentTypeCSV,
		Body:        body,
		Source:      SourceLocal,
	}, nil
}

func (s *ExportService) shouldFallBack(ctx context.Context, err error) bool {
	if !s.cfg.PDFFallback || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrNotFound.Code, appErrors.ErrUnauthorized.Code, appErrors.ErrForbidden.Code:
		return false
	}
	return true
}

func (s *ExportService) reportDocument(model *ReportViewModel) export.Document {
	doc := export.Document{
		Title: "Report card",
		Fields: []export.Field{
			{Label: "Student", Value: model.Student.Name},
			{Label: "Enrollment", Value: model.Student.EnrollmentNumber},
			{Label: "Class", Value: model.Student.Class},
		},
		Footer: "Generated " + s.now().Format(models.DisplayDateTimeLayout),
	}
	if model.Attendance != nil {
		doc.Fields = append(doc.Fields, export.Field{
			Label: "Absences",
			Value: fmt.Sprintf("%d (%d justified)", model.Attendance.Total, model.Attendance.Justified),
		})
	}

	if model.Grades != nil {
		doc.Sections = append(doc.Sections, export.Section{Title: "Grades", Table: gradeTable(model.Grades), Empty: model.Grades.EmptyMessage})
	}
	if model.Absences != nil {
		table := export.Table{Headers: []string{"Date", "Subject", "Justified"}}
		for _, row := range model.Absences.Rows {
			table.Rows = append(table.Rows, []string{row.Date, row.Subject, yesNo(row.Justified)})
		}
		doc.Sections = append(doc.Sections, export.Section{Title: "Absences", Table: table, Empty: model.Absences.EmptyMessage})
	}
	if model.Warnings != nil {
		table := export.Table{Headers: []string{"Date", "Reason"}}
		for _, row := range model.Warnings.Rows {
			table.Rows = append(table.Rows, []string{row.Date, row.Reason})
		}
		doc.Sections = append(doc.Sections, export.Section{Title: "Warnings", Table: table, Empty: model.Warnings.EmptyMessage})
	}
	if model.Suspensions != nil {
		table := export.Table{Headers: []string{"Start", "End", "Days", "Reason"}}
		for _, row := range model.Suspensions.Rows {
			table.Rows = append(table.Rows, []string{row.StartDate, row.EndDate, strconv.Itoa(row.Days), row.Reason})
		}
		doc.Sections = append(doc.Sections, export.Section{Title: "Suspensions", Table: table, Empty: model.Suspensions.EmptyMessage})
	}
	return doc
}

func gradeTable(section *GradeSection) export.Table {
	table := export.Table{Headers: []string{"Subject", models.Bimester1, models.Bimester2, models.Bimester3, models.Bimester4, "Average"}}
	if section == nil {
		return table
	}
	for _, row := range section.Rows {
		slots := row.Slots()
		table.Rows = append(table.Rows, []string{
			row.Subject,
			formatGrade(slots[0]),
			formatGrade(slots[1]),
			formatGrade(slots[2]),
			formatGrade(slots[3]),
			formatGrade(row.Average),
		})
	}
	return table
}

// formatGrade prints two decimals, or "-" for an empty slot.
func formatGrade(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
