package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

// Viewer is the caller on whose behalf the backend is queried. Both values
// are injected by the transport layer.
type Viewer struct {
	Credential string
	Role       models.Role
}

// Report variants accepted by ReportOptionsFor.
const (
	VariantFull     = "full"
	VariantGuardian = "guardian"
	VariantGrades   = "grades"
)

// ReportOptions selects the sections and actions of a report.
type ReportOptions struct {
	Variant            string
	IncludeGrades      bool
	IncludeAbsences    bool
	IncludeWarnings    bool
	IncludeSuspensions bool
	// ShowActions exposes role-gated mutation actions.
	ShowActions bool
}

// Report presets.
var (
	FullReport = ReportOptions{
		Variant:            VariantFull,
		IncludeGrades:      true,
		IncludeAbsences:    true,
		IncludeWarnings:    true,
		IncludeSuspensions: true,
		ShowActions:        true,
	}
	GuardianReport = ReportOptions{
		Variant:            VariantGuardian,
		IncludeGrades:      true,
		IncludeAbsences:    true,
		IncludeWarnings:    true,
		IncludeSuspensions: true,
	}
	GradesOnly = ReportOptions{
		Variant:       VariantGrades,
		IncludeGrades: true,
		ShowActions:   true,
	}
)

// ReportOptionsFor resolves a variant name; empty means the full report.
func ReportOptionsFor(variant string) (ReportOptions, error) {
	switch variant {
	case "", VariantFull:
		return FullReport, nil
	case VariantGuardian:
		return GuardianReport, nil
	case VariantGrades:
		return GradesOnly, nil
	}
	return ReportOptions{}, appErrors.WithFields(appErrors.ErrValidation, map[string][]string{
		"variant": {"variant must be one of [full guardian grades]"},
	}, "")
}

// BuildRequest identifies the report to build.
type BuildRequest struct {
	StudentID int64
	Viewer    Viewer
	Options   ReportOptions
}

// StudentSummary is the report header.
type StudentSummary struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	EnrollmentNumber string `json:"enrollmentNumber"`
	Class            string `json:"class"`
	Status           string `json:"status"`
}

// ReportViewModel is the consolidated report card. Sections left out by the
// options are nil.
type ReportViewModel struct {
	Variant      string             `json:"variant"`
	Student      StudentSummary     `json:"student"`
	Grades       *GradeSection      `json:"grades,omitempty"`
	Absences     *AbsenceSection    `json:"absences,omitempty"`
	Attendance   *AttendanceSummary `json:"attendance,omitempty"`
	Warnings     *WarningSection    `json:"warnings,omitempty"`
	Suspensions  *SuspensionSection `json:"suspensions,omitempty"`
	Capabilities Capabilities       `json:"capabilities"`
	GeneratedAt  time.Time          `json:"generatedAt"`
}

type reportBackend interface {
	GetStudent(ctx context.Context, credential string, id int64) (*models.Student, error)
	ListGrades(ctx context.Context, credential string, studentID int64) ([]models.Grade, error)
	ListAbsences(ctx context.Context, credential string, studentID int64) ([]models.Absence, error)
	ListWarnings(ctx context.Context, credential string, studentID int64) ([]models.Warning, error)
	ListSuspensions(ctx context.Context, credential string, studentID int64) ([]models.Suspension, error)
}

type fallbackRecorder interface {
	RecordSectionFallback(section string)
}

// ReportService builds report view models from the school backend.
type ReportService struct {
	backend reportBackend
	metrics fallbackRecorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService constructs the report builder.
func NewReportService(backend reportBackend, metrics fallbackRecorder, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{backend: backend, metrics: metrics, logger: logger, now: time.Now}
}

// Build fetches the profile, then the secondary collections concurrently,
// and reconciles them once every fetch has settled. A failed profile fetch
// aborts the build before any other request is issued; a failed secondary
// fetch only degrades its section.
func (s *ReportService) Build(ctx context.Context, req BuildRequest) (*ReportViewModel, error) {
	if req.StudentID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id must be positive")
	}
	opts := req.Options
	if opts.Variant == "" {
		opts = FullReport
	}
	cred := req.Viewer.Credential

	student, err := s.backend.GetStudent(ctx, cred, req.StudentID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, profileError(err)
	}

	var (
		grades      []models.Grade
		absences    []models.Absence
		warnings    []models.Warning
		suspensions []models.Suspension

		gradesErr, absencesErr, warningsErr, suspensionsErr error
	)

	var g errgroup.Group
	if opts.IncludeGrades {
		g.Go(func() error {
			grades, gradesErr = s.backend.ListGrades(ctx, cred, req.StudentID)
			return nil
		})
	}
	if opts.IncludeAbsences {
		g.Go(func() error {
			absences, absencesErr = s.backend.ListAbsences(ctx, cred, req.StudentID)
			return nil
		})
	}
	if opts.IncludeWarnings {
		g.Go(func() error {
			warnings, warningsErr = s.backend.ListWarnings(ctx, cred, req.StudentID)
			return nil
		})
	}
	if opts.IncludeSuspensions {
		g.Go(func() error {
			suspensions, suspensionsErr = s.backend.ListSuspensions(ctx, cred, req.StudentID)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := &ReportViewModel{
		Variant:     opts.Variant,
		Student:     summarizeStudent(student),
		GeneratedAt: s.now().UTC(),
	}
	if opts.ShowActions {
		model.Capabilities = CapabilitiesFor(req.Viewer.Role)
	}

	if opts.IncludeGrades {
		s.recordFailure(req.StudentID, "grades", gradesErr)
		model.Grades = newGradeSection(grades, gradesErr)
		if model.Grades.UnassignedGrades > 0 {
			s.logger.Debug("grades with unrecognised bimester label dropped",
				zap.Int64("student_id", req.StudentID),
				zap.Int("count", model.Grades.UnassignedGrades),
			)
		}
	}
	if opts.IncludeAbsences {
		s.recordFailure(req.StudentID, "absences", absencesErr)
		model.Absences = newAbsenceSection(absences, absencesErr)
		if absencesErr == nil {
			model.Attendance = summarizeAttendance(absences)
		}
	}
	if opts.IncludeWarnings {
		s.recordFailure(req.StudentID, "warnings", warningsErr)
		model.Warnings = newWarningSection(warnings, warningsErr)
	}
	if opts.IncludeSuspensions {
		s.recordFailure(req.StudentID, "suspensions", suspensionsErr)
		model.Suspensions = newSuspensionSection(suspensions, suspensionsErr)
	}

	return model, nil
}

func (s *ReportService) recordFailure(studentID int64, section string, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("report section unavailable",
		zap.Int64("student_id", studentID),
		zap.String("section", section),
		zap.Error(err),
	)
	if s.metrics != nil {
		s.metrics.RecordSectionFallback(section)
	}
}

// profileError maps a failed profile fetch: not found and authorization
// problems keep their meaning, anything else is an upstream failure.
func profileError(err error) error {
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrNotFound.Code:
		return appErrors.Clone(appErrors.ErrStudentNotFound, "")
	case appErrors.ErrUnauthorized.Code, appErrors.ErrForbidden.Code:
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	case appErrors.ErrUpstreamUnavailable.Code:
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
}

func summarizeStudent(s *models.Student) StudentSummary {
	return StudentSummary{
		ID:               s.ID,
		Name:             s.Name,
		EnrollmentNumber: s.EnrollmentNumber,
		Class:            s.ClassName(),
		Status:           s.Status,
	}
}
