package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

type fallbackCounter struct {
	sections []string
}

func (f *fallbackCounter) RecordSectionFallback(section string) {
	f.sections = append(f.sections, section)
}

var teacherViewer = Viewer{Credential: "tok-teacher", Role: models.RoleTeacher}

func TestBuildReconcilesAllSections(t *testing.T) {
	backend := newBackendStub()
	backend.grades = []models.Grade{
		grade(1, "Math", models.Bimester1, 7.0),
		grade(2, "Math", models.Bimester3, 9.0),
		grade(3, "Math", models.Bimester2, -1),
	}
	backend.absences = []models.Absence{
		{ID: 1, SubjectName: "Math", Date: models.NewDate(2024, time.March, 4), Justified: true},
		{ID: 2, SubjectName: "Math", Date: models.NewDate(2024, time.March, 11)},
	}
	backend.warnings = []models.Warning{{ID: 1, Date: models.NewDate(2024, time.April, 2), Reason: "Disrupted class"}}
	backend.suspensions = []models.Suspension{{ID: 1, StartDate: models.NewDate(2024, time.May, 6), EndDate: models.NewDate(2024, time.May, 8), Reason: "Fight"}}

	svc := NewReportService(backend, nil, nil)
	model, err := svc.Build(context.Background(), BuildRequest{StudentID: 7, Viewer: teacherViewer, Options: FullReport})
	require.NoError(t, err)

	assert.Equal(t, "Ana Souza", model.Student.Name)
	assert.Equal(t, "9A", model.Student.Class)

	require.Len(t, model.Grades.Rows, 1)
	assert.InDelta(t, 8.0, *model.Grades.Rows[0].Average, 1e-9)
	assert.Empty(t, model.Grades.EmptyMessage)

	require.Len(t, model.Absences.Rows, 2)
	assert.Equal(t, "11/03/2024", model.Absences.Rows[0].Date)
	assert.Equal(t, &AttendanceSummary{Total: 2, Justified: 1, Unjustified: 1}, model.Attendance)

	assert.Equal(t, "02/04/2024", model.Warnings.Rows[0].Date)
	assert.Equal(t, 3, model.Suspensions.Rows[0].Days)
	assert.Equal(t, "06/05/2024", model.Suspensions.Rows[0].StartDate)

	assert.True(t, model.Capabilities.Grades.Create)
	assert.False(t, model.Capabilities.Warnings.Create)

	for _, name := range []string{"student", "grades", "absences", "warnings", "suspensions"} {
		assert.Equal(t, 1, backend.callCount(name), name)
	}
	for _, cred := range backend.credentials {
		assert.Equal(t, "tok-teacher", cred)
	}
}

func TestBuildStopsWhenProfileIsMissing(t *testing.T) {
	backend := newBackendStub()
	backend.studentErr = appErrors.Clone(appErrors.ErrNotFound, "")

	svc := NewReportService(backend, nil, nil)
	model, err := svc.Build(context.Background(), BuildRequest{StudentID: 404, Viewer: teacherViewer})
	require.Error(t, err)
	assert.Nil(t, model)
	assert.Equal(t, "student not found", appErrors.FromError(err).Message)

	for _, name := range []string{"grades", "absences", "warnings", "suspensions"} {
		assert.Zero(t, backend.callCount(name), name)
	}
}

func TestBuildMapsProfileFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{name: "forbidden", err: appErrors.Clone(appErrors.ErrForbidden, ""), code: "UNAUTHORIZED"},
		{name: "unauthorized", err: appErrors.Clone(appErrors.ErrUnauthorized, ""), code: "UNAUTHORIZED"},
		{name: "transport", err: errors.New("connection refused"), code: "UPSTREAM_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := newBackendStub()
			backend.studentErr = tc.err
			_, err := NewReportService(backend, nil, nil).Build(context.Background(), BuildRequest{StudentID: 7, Viewer: teacherViewer})
			assert.True(t, appErrors.IsCode(err, tc.code))
		})
	}
}

func TestBuildFallsBackWhenSecondaryFetchFails(t *testing.T) {
	backend := newBackendStub()
	backend.grades = []models.Grade{grade(1, "Math", models.Bimester1, 7)}
	backend.warningsErr = appErrors.Clone(appErrors.ErrUpstreamUnavailable, "")
	counter := &fallbackCounter{}

	model, err := NewReportService(backend, counter, nil).Build(context.Background(), BuildRequest{StudentID: 7, Viewer: teacherViewer})
	require.NoError(t, err)

	assert.False(t, model.Warnings.Available)
	assert.Equal(t, NoWarningsText, model.Warnings.EmptyMessage)
	assert.Empty(t, model.Warnings.Rows)
	assert.True(t, model.Grades.Available)
	assert.Len(t, model.Grades.Rows, 1)
	assert.True(t, model.Suspensions.Available)
	assert.Equal(t, NoSuspensionsText, model.Suspensions.EmptyMessage)
	assert.Equal(t, []string{"warnings"}, counter.sections)
}

func TestBuildHonoursOptions(t *testing.T) {
	backend := newBackendStub()
	svc := NewReportService(backend, nil, nil)

	model, err := svc.Build(context.Background(), BuildRequest{StudentID: 7, Viewer: Viewer{Role: models.RoleDirector}, Options: GradesOnly})
	require.NoError(t, err)
	assert.NotNil(t, model.Grades)
	assert.Nil(t, model.Warnings)
	assert.Nil(t, model.Absences)
	assert.Zero(t, backend.callCount("warnings"))
	assert.True(t, model.Capabilities.Grades.Delete)

	model, err = svc.Build(context.Background(), BuildRequest{StudentID: 7, Viewer: Viewer{Role: models.RoleDirector}, Options: GuardianReport})
	require.NoError(t, err)
	assert.Equal(t, Capabilities{}, model.Capabilities)
	assert.Equal(t, VariantGuardian, model.Variant)
}

func TestBuildReturnsContextErrorWhenCanceled(t *testing.T) {
	backend := newBackendStub()
	backend.block = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	model, err := NewReportService(backend, nil, nil).Build(ctx, BuildRequest{StudentID: 7, Viewer: teacherViewer})
	assert.Nil(t, model)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReportOptionsFor(t *testing.T) {
	opts, err := ReportOptionsFor("")
	require.NoError(t, err)
	assert.Equal(t, FullReport, opts)

	_, err = ReportOptionsFor("summary")
	assert.True(t, appErrors.IsCode(err, "VALIDATION_ERROR"))
}

func TestCapabilitiesForRoles(t *testing.T) {
	assert.True(t, CapabilitiesFor(models.RoleCoordinator).Allows(models.CollectionSuspensions, ActionDelete))
	assert.True(t, CapabilitiesFor(models.RoleITStaff).Allows(models.CollectionWarnings, ActionCreate))
	assert.True(t, CapabilitiesFor(models.RoleTeacher).Allows(models.CollectionAbsences, ActionEdit))
	assert.False(t, CapabilitiesFor(models.RoleTeacher).Allows(models.CollectionSuspensions, ActionCreate))
	assert.Equal(t, Capabilities{}, CapabilitiesFor(models.RoleGuardian))
	assert.Equal(t, Capabilities{}, CapabilitiesFor(models.ParseRole("aluno")))
}
