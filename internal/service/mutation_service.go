package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-report-portal/internal/backend"
	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/validation"
)

const bulkAbsenceConcurrency = 8

type collectionBackend interface {
	ListGrades(ctx context.Context, credential string, studentID int64) ([]models.Grade, error)
	ListAbsences(ctx context.Context, credential string, studentID int64) ([]models.Absence, error)
	ListAbsencesBySubject(ctx context.Context, credential string, subjectID int64) ([]models.Absence, error)
	ListWarnings(ctx context.Context, credential string, studentID int64) ([]models.Warning, error)
	ListSuspensions(ctx context.Context, credential string, studentID int64) ([]models.Suspension, error)
}

type mutationBackend interface {
	collectionBackend
	Create(ctx context.Context, credential string, collection models.Collection, payload, out interface{}) error
	Update(ctx context.Context, credential string, collection models.Collection, id int64, payload, out interface{}) error
	Delete(ctx context.Context, credential string, collection models.Collection, id int64) error
}

// CollectionRefresh carries a refetched collection. Exactly one section is
// set; callers replace their copy of that collection wholesale.
type CollectionRefresh struct {
	Collection  models.Collection  `json:"collection"`
	StudentID   int64              `json:"studentId,omitempty"`
	SubjectID   int64              `json:"subjectId,omitempty"`
	Grades      *GradeSection      `json:"grades,omitempty"`
	Absences    *AbsenceSection    `json:"absences,omitempty"`
	Attendance  *AttendanceSummary `json:"attendance,omitempty"`
	Warnings    *WarningSection    `json:"warnings,omitempty"`
	Suspensions *SuspensionSection `json:"suspensions,omitempty"`
}

// BulkAbsenceResult reports a bulk absence submission. Failed maps student
// ids to the backend message for the entries that were rejected.
type BulkAbsenceResult struct {
	Refresh *CollectionRefresh `json:"refresh"`
	Created int                `json:"created"`
	Failed  map[int64]string   `json:"failed,omitempty"`
}

// MutationService submits record changes and refetches the affected
// collection on success. Local state is never patched in place.
type MutationService struct {
	backend   mutationBackend
	validator *validation.Validator
	logger    *zap.Logger
}

// NewMutationService constructs the mutation service.
func NewMutationService(backend mutationBackend, validator *validation.Validator, logger *zap.Logger) *MutationService {
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MutationService{backend: backend, validator: validator, logger: logger}
}

func actionFor(id int64) Action {
	if id > 0 {
		return ActionEdit
	}
	return ActionCreate
}

// SaveGrade creates a grade when id is zero, otherwise replaces it.
func (s *MutationService) SaveGrade(ctx context.Context, viewer Viewer, id int64, req dto.GradeRequest) (*CollectionRefresh, error) {
	if err := s.prepare(viewer, models.CollectionGrades, actionFor(id), req); err != nil {
		return nil, err
	}
	payload := backend.GradePayload{
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		Bimester:  req.Bimester,
		Value:     *req.Value,
	}
	return s.submit(ctx, viewer, models.CollectionGrades, id, req.StudentID, payload)
}

// SaveWarning creates a warning when id is zero, otherwise replaces it.
func (s *MutationService) SaveWarning(ctx context.Context, viewer Viewer, id int64, req dto.WarningRequest) (*CollectionRefresh, error) {
	if err := s.prepare(viewer, models.CollectionWarnings, actionFor(id), req); err != nil {
		return nil, err
	}
	payload := backend.WarningPayload{StudentID: req.StudentID, Date: req.Date, Reason: req.Reason}
	return s.submit(ctx, viewer, models.CollectionWarnings, id, req.StudentID, payload)
}

// SaveSuspension creates a suspension when id is zero, otherwise replaces it.
func (s *MutationService) SaveSuspension(ctx context.Context, viewer Viewer, id int64, req dto.SuspensionRequest) (*CollectionRefresh, error) {
	if err := s.prepare(viewer, models.CollectionSuspensions, actionFor(id), req); err != nil {
		return nil, err
	}
	start, _ := models.ParseDate(req.StartDate)
	end, _ := models.ParseDate(req.EndDate)
	if end.Before(start.Time) {
		return nil, validation.FieldError("endDate", "endDate must not be before startDate")
	}
	payload := backend.SuspensionPayload{
		StudentID: req.StudentID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	}
	return s.submit(ctx, viewer, models.CollectionSuspensions, id, req.StudentID, payload)
}

// SaveAbsence creates an absence when id is zero, otherwise replaces it.
func (s *MutationService) SaveAbsence(ctx context.Context, viewer Viewer, id int64, req dto.AbsenceRequest) (*CollectionRefresh, error) {
	if err := s.prepare(viewer, models.CollectionAbsences, actionFor(id), req); err != nil {
		return nil, err
	}
	payload := backend.AbsencePayload{
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		Date:      req.Date,
		Justified: req.Justified,
	}
	return s.submit(ctx, viewer, models.CollectionAbsences, id, req.StudentID, payload)
}

// BulkAbsences records one absence per student for the same subject and
// date. Submissions run concurrently; the subject's absences are refetched
// once all of them settle. It fails only when every submission fails.
func (s *MutationService) BulkAbsences(ctx context.Context, viewer Viewer, req dto.BulkAbsenceRequest) (*BulkAbsenceResult, error) {
	if err := s.prepare(viewer, models.CollectionAbsences, ActionCreate, req); err != nil {
		return nil, err
	}

	studentIDs := uniqueIDs(req.StudentIDs)
	var (
		mu       sync.Mutex
		failed   = make(map[int64]string)
		firstErr error
	)

	var g errgroup.Group
	g.SetLimit(bulkAbsenceConcurrency)
	for _, studentID := range studentIDs {
		studentID := studentID
		g.Go(func() error {
			payload := backend.AbsencePayload{
				StudentID: studentID,
				SubjectID: req.SubjectID,
				Date:      req.Date,
				Justified: req.Justified,
			}
			if err := s.backend.Create(ctx, viewer.Credential, models.CollectionAbsences, payload, nil); err != nil {
				mu.Lock()
				failed[studentID] = appErrors.FromError(err).Message
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(failed) == len(studentIDs) {
		return nil, mutationError(firstErr)
	}
	if len(failed) > 0 {
		s.logger.Warn("bulk absences partially rejected",
			zap.Int64("subject_id", req.SubjectID),
			zap.Int("failed", len(failed)),
			zap.Int("submitted", len(studentIDs)),
		)
	}

	refresh, err := s.RefreshSubjectAbsences(ctx, viewer, req.SubjectID)
	if err != nil {
		return nil, refreshFailed(models.CollectionAbsences, err)
	}
	result := &BulkAbsenceResult{Refresh: refresh, Created: len(studentIDs) - len(failed)}
	if len(failed) > 0 {
		result.Failed = failed
	}
	return result, nil
}

// Delete removes a record and refetches its collection for the student.
func (s *MutationService) Delete(ctx context.Context, viewer Viewer, collection models.Collection, id, studentID int64) (*CollectionRefresh, error) {
	if err := ensureAllowed(viewer.Role, collection, ActionDelete); err != nil {
		return nil, err
	}
	if id <= 0 || studentID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record and student ids must be positive")
	}
	if err := s.backend.Delete(ctx, viewer.Credential, collection, id); err != nil {
		s.logger.Info("delete rejected",
			zap.String("collection", string(collection)),
			zap.Int64("id", id),
			zap.Error(err),
		)
		return nil, mutationError(err)
	}
	refresh, err := s.Refresh(ctx, viewer, collection, studentID)
	if err != nil {
		return nil, refreshFailed(collection, err)
	}
	return refresh, nil
}

// Refresh refetches one collection of a student.
func (s *MutationService) Refresh(ctx context.Context, viewer Viewer, collection models.Collection, studentID int64) (*CollectionRefresh, error) {
	return refreshCollection(ctx, s.backend, viewer, collection, studentID)
}

// RefreshSubjectAbsences refetches the absences recorded for a subject.
func (s *MutationService) RefreshSubjectAbsences(ctx context.Context, viewer Viewer, subjectID int64) (*CollectionRefresh, error) {
	absences, err := s.backend.ListAbsencesBySubject(ctx, viewer.Credential, subjectID)
	if err != nil {
		return nil, err
	}
	return &CollectionRefresh{
		Collection: models.CollectionAbsences,
		SubjectID:  subjectID,
		Absences:   newAbsenceSection(absences, nil),
		Attendance: summarizeAttendance(absences),
	}, nil
}

func (s *MutationService) prepare(viewer Viewer, collection models.Collection, action Action, payload interface{}) error {
	if err := ensureAllowed(viewer.Role, collection, action); err != nil {
		return err
	}
	return s.validator.Struct(payload)
}

func (s *MutationService) submit(ctx context.Context, viewer Viewer, collection models.Collection, id, studentID int64, payload interface{}) (*CollectionRefresh, error) {
	var err error
	if id > 0 {
		err = s.backend.Update(ctx, viewer.Credential, collection, id, payload, nil)
	} else {
		err = s.backend.Create(ctx, viewer.Credential, collection, payload, nil)
	}
	if err != nil {
		s.logger.Info("mutation rejected",
			zap.String("collection", string(collection)),
			zap.Int64("id", id),
			zap.Error(err),
		)
		return nil, mutationError(err)
	}

	refresh, err := s.Refresh(ctx, viewer, collection, studentID)
	if err != nil {
		return nil, refreshFailed(collection, err)
	}
	return refresh, nil
}

func refreshCollection(ctx context.Context, b collectionBackend, viewer Viewer, collection models.Collection, studentID int64) (*CollectionRefresh, error) {
	refresh := &CollectionRefresh{Collection: collection, StudentID: studentID}
	cred := viewer.Credential
	switch collection {
	case models.CollectionGrades:
		grades, err := b.ListGrades(ctx, cred, studentID)
		if err != nil {
			return nil, err
		}
		refresh.Grades = newGradeSection(grades, nil)
	case models.CollectionAbsences:
		absences, err := b.ListAbsences(ctx, cred, studentID)
		if err != nil {
			return nil, err
		}
		refresh.Absences = newAbsenceSection(absences, nil)
		refresh.Attendance = summarizeAttendance(absences)
	case models.CollectionWarnings:
		warnings, err := b.ListWarnings(ctx, cred, studentID)
		if err != nil {
			return nil, err
		}
		refresh.Warnings = newWarningSection(warnings, nil)
	case models.CollectionSuspensions:
		suspensions, err := b.ListSuspensions(ctx, cred, studentID)
		if err != nil {
			return nil, err
		}
		refresh.Suspensions = newSuspensionSection(suspensions, nil)
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown collection %q", collection))
	}
	return refresh, nil
}

// mutationError keeps taxonomy errors as they are; the backend's field
// messages are already joined into the message.
func mutationError(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
}

func refreshFailed(collection models.Collection, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status,
		fmt.Sprintf("saved, but refreshing %s failed", collection))
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
