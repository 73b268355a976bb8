package service

import (
	"context"
	"errors"
	"sync"

	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

var (
	// ErrViewClosed is returned once the view has been closed.
	ErrViewClosed = errors.New("report view closed")
	// ErrStaleResult is returned when a newer load superseded the result.
	ErrStaleResult = errors.New("report result superseded by a newer load")
	// ErrNoPendingDelete is returned by ConfirmDelete without a candidate.
	ErrNoPendingDelete = errors.New("no delete pending confirmation")
)

type reportBuilder interface {
	Build(ctx context.Context, req BuildRequest) (*ReportViewModel, error)
}

type recordDeleter interface {
	Delete(ctx context.Context, viewer Viewer, collection models.Collection, id, studentID int64) (*CollectionRefresh, error)
}

// DeleteCandidate is a record marked for deletion awaiting confirmation.
type DeleteCandidate struct {
	Collection models.Collection
	ID         int64
	Label      string
}

// ReportView owns the report of one student for the lifetime of a screen.
// Results that arrive after Close, or after a newer Load started, are
// discarded instead of applied.
type ReportView struct {
	builder   reportBuilder
	deleter   recordDeleter
	viewer    Viewer
	studentID int64
	options   ReportOptions

	mu         sync.Mutex
	model      *ReportViewModel
	generation uint64
	closed     bool
	pending    *DeleteCandidate
}

// NewReportView constructs a view for one student.
func NewReportView(builder reportBuilder, deleter recordDeleter, viewer Viewer, studentID int64, options ReportOptions) *ReportView {
	return &ReportView{
		builder:   builder,
		deleter:   deleter,
		viewer:    viewer,
		studentID: studentID,
		options:   options,
	}
}

// Load builds the report and installs it unless the view moved on meanwhile.
func (v *ReportView) Load(ctx context.Context) (*ReportViewModel, error) {
	gen, err := v.begin()
	if err != nil {
		return nil, err
	}

	model, err := v.builder.Build(ctx, BuildRequest{StudentID: v.studentID, Viewer: v.viewer, Options: v.options})

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, ErrViewClosed
	}
	if gen != v.generation {
		return nil, ErrStaleResult
	}
	if err != nil {
		return nil, err
	}
	v.model = model
	v.pending = nil
	return model, nil
}

// Model returns the installed report, nil before the first successful load.
func (v *ReportView) Model() *ReportViewModel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.model
}

// Submit runs a mutation and applies its refreshed collection.
func (v *ReportView) Submit(ctx context.Context, mutate func(ctx context.Context, viewer Viewer) (*CollectionRefresh, error)) error {
	gen, err := v.current()
	if err != nil {
		return err
	}
	refresh, err := mutate(ctx, v.viewer)
	if err != nil {
		return err
	}
	return v.apply(gen, refresh)
}

// RequestDelete marks a record of the installed report as the delete
// candidate. Nothing is sent to the backend.
func (v *ReportView) RequestDelete(collection models.Collection, id int64) (DeleteCandidate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return DeleteCandidate{}, ErrViewClosed
	}
	if v.model == nil {
		return DeleteCandidate{}, appErrors.Clone(appErrors.ErrNotFound, "report not loaded")
	}
	if !CapabilitiesFor(v.viewer.Role).Allows(collection, ActionDelete) || !v.options.ShowActions {
		return DeleteCandidate{}, appErrors.Clone(appErrors.ErrForbidden, "delete not available for this role")
	}
	label, ok := findRecord(v.model, collection, id)
	if !ok {
		return DeleteCandidate{}, appErrors.Clone(appErrors.ErrNotFound, "record not found in report")
	}
	candidate := DeleteCandidate{Collection: collection, ID: id, Label: label}
	v.pending = &candidate
	return candidate, nil
}

// Pending returns the current delete candidate.
func (v *ReportView) Pending() (DeleteCandidate, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending == nil {
		return DeleteCandidate{}, false
	}
	return *v.pending, true
}

// CancelDelete drops the candidate without touching the report.
func (v *ReportView) CancelDelete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = nil
}

// ConfirmDelete issues the delete for the candidate. The collection is only
// replaced after the backend accepted the delete; on failure the report is
// left unchanged and the error returned.
func (v *ReportView) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.pending == nil {
		v.mu.Unlock()
		return ErrNoPendingDelete
	}
	candidate := *v.pending
	v.pending = nil
	gen := v.generation
	v.mu.Unlock()

	refresh, err := v.deleter.Delete(ctx, v.viewer, candidate.Collection, candidate.ID, v.studentID)
	if err != nil {
		return err
	}
	return v.apply(gen, refresh)
}

// Close tears the view down; in-flight results are dropped.
func (v *ReportView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.pending = nil
	v.generation++
}

func (v *ReportView) begin() (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, ErrViewClosed
	}
	v.generation++
	return v.generation, nil
}

func (v *ReportView) current() (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, ErrViewClosed
	}
	return v.generation, nil
}

// apply swaps the refreshed collection into a copy of the model.
func (v *ReportView) apply(gen uint64, refresh *CollectionRefresh) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	if gen != v.generation {
		return ErrStaleResult
	}
	if v.model == nil || refresh == nil {
		return nil
	}
	if refresh.StudentID != 0 && refresh.StudentID != v.studentID {
		return nil
	}

	next := *v.model
	switch refresh.Collection {
	case models.CollectionGrades:
		if next.Grades != nil && refresh.Grades != nil {
			next.Grades = refresh.Grades
		}
	case models.CollectionAbsences:
		// Subject-wide refreshes cover other students too.
		if next.Absences != nil && refresh.Absences != nil && refresh.SubjectID == 0 {
			next.Absences = refresh.Absences
			next.Attendance = refresh.Attendance
		}
	case models.CollectionWarnings:
		if next.Warnings != nil && refresh.Warnings != nil {
			next.Warnings = refresh.Warnings
		}
	case models.CollectionSuspensions:
		if next.Suspensions != nil && refresh.Suspensions != nil {
			next.Suspensions = refresh.Suspensions
		}
	}
	v.model = &next
	return nil
}

func findRecord(model *ReportViewModel, collection models.Collection, id int64) (string, bool) {
	switch collection {
	case models.CollectionWarnings:
		if model.Warnings != nil {
			for _, row := range model.Warnings.Rows {
				if row.ID == id {
					return row.Date + " " + row.Reason, true
				}
			}
		}
	case models.CollectionSuspensions:
		if model.Suspensions != nil {
			for _, row := range model.Suspensions.Rows {
				if row.ID == id {
					return row.StartDate + " - " + row.EndDate + " " + row.Reason, true
				}
			}
		}
	case models.CollectionAbsences:
		if model.Absences != nil {
			for _, row := range model.Absences.Rows {
				if row.ID == id {
					return row.Date + " " + row.Subject, true
				}
			}
		}
	case models.CollectionGrades:
		if model.Grades != nil {
			for _, row := range model.Grades.Rows {
				for i, recordID := range row.RecordIDs {
					if recordID == id {
						return row.Subject + " " + models.Bimesters[i], true
					}
				}
			}
		}
	}
	return "", false
}
