package service

import (
	"context"
	"sync"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

// backendStub is an in-memory school backend shared by the service tests.
type backendStub struct {
	mu sync.Mutex

	student     *models.Student
	grades      []models.Grade
	absences    []models.Absence
	warnings    []models.Warning
	suspensions []models.Suspension
	rooms       []models.Room
	reserved    []models.Reservation

	studentErr     error
	gradesErr      error
	absencesErr    error
	warningsErr    error
	suspensionsErr error
	mutationErr    error
	roomsErr       error

	// block, when set, parks every list call until the context ends.
	block bool

	calls       map[string]int
	credentials []string
	created     []interface{}
	updated     map[int64]interface{}
	deleted     []int64
	nextID      int64
}

func newBackendStub() *backendStub {
	return &backendStub{
		student: &models.Student{ID: 7, Name: "Ana Souza", EnrollmentNumber: "2024-007", Class: &models.ClassRef{ID: 1, Name: "9A"}, Status: "active"},
		calls:   map[string]int{},
		updated: map[int64]interface{}{},
		nextID:  100,
	}
}

func (b *backendStub) record(name, credential string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name]++
	b.credentials = append(b.credentials, credential)
}

func (b *backendStub) callCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *backendStub) wait(ctx context.Context) error {
	if !b.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (b *backendStub) GetStudent(ctx context.Context, credential string, id int64) (*models.Student, error) {
	b.record("student", credential)
	if b.studentErr != nil {
		return nil, b.studentErr
	}
	student := *b.student
	student.ID = id
	return &student, nil
}

func (b *backendStub) ListGrades(ctx context.Context, credential string, studentID int64) ([]models.Grade, error) {
	b.record("grades", credential)
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Grade(nil), b.grades...), b.gradesErr
}

func (b *backendStub) ListAbsences(ctx context.Context, credential string, studentID int64) ([]models.Absence, error) {
	b.record("absences", credential)
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Absence(nil), b.absences...), b.absencesErr
}

func (b *backendStub) ListAbsencesBySubject(ctx context.Context, credential string, subjectID int64) ([]models.Absence, error) {
	b.record("absences_by_subject", credential)
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Absence
	for _, a := range b.absences {
		if a.SubjectID == subjectID {
			out = append(out, a)
		}
	}
	return out, b.absencesErr
}

func (b *backendStub) ListWarnings(ctx context.Context, credential string, studentID int64) ([]models.Warning, error) {
	b.record("warnings", credential)
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Warning(nil), b.warnings...), b.warningsErr
}

func (b *backendStub) ListSuspensions(ctx context.Context, credential string, studentID int64) ([]models.Suspension, error) {
	b.record("suspensions", credential)
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Suspension(nil), b.suspensions...), b.suspensionsErr
}

func (b *backendStub) Create(ctx context.Context, credential string, collection models.Collection, payload, out interface{}) error {
	b.record("create_"+string(collection), credential)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mutationErr != nil {
		return b.mutationErr
	}
	b.created = append(b.created, payload)
	b.nextID++
	return nil
}

func (b *backendStub) Update(ctx context.Context, credential string, collection models.Collection, id int64, payload, out interface{}) error {
	b.record("update_"+string(collection), credential)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mutationErr != nil {
		return b.mutationErr
	}
	b.updated[id] = payload
	return nil
}

func (b *backendStub) Delete(ctx context.Context, credential string, collection models.Collection, id int64) error {
	b.record("delete_"+string(collection), credential)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mutationErr != nil {
		return b.mutationErr
	}
	b.deleted = append(b.deleted, id)
	switch collection {
	case models.CollectionWarnings:
		kept := b.warnings[:0]
		for _, w := range b.warnings {
			if w.ID != id {
				kept = append(kept, w)
			}
		}
		b.warnings = kept
	case models.CollectionGrades:
		kept := b.grades[:0]
		for _, g := range b.grades {
			if g.ID != id {
				kept = append(kept, g)
			}
		}
		b.grades = kept
	}
	return nil
}

func (b *backendStub) ListRooms(ctx context.Context, credential string) ([]models.Room, error) {
	b.record("rooms", credential)
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Room(nil), b.rooms...), b.roomsErr
}

func (b *backendStub) ListReservations(ctx context.Context, credential string) ([]models.Reservation, error) {
	b.record("reservations", credential)
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Reservation(nil), b.reserved...), nil
}

func (b *backendStub) CreateReservation(ctx context.Context, credential string, payload interface{}) (*models.Reservation, error) {
	b.record("create_reservation", credential)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mutationErr != nil {
		return nil, b.mutationErr
	}
	b.nextID++
	b.created = append(b.created, payload)
	reservation := models.Reservation{ID: b.nextID}
	b.reserved = append(b.reserved, reservation)
	return &reservation, nil
}

func grade(id int64, subject, bimester string, value float64) models.Grade {
	return models.Grade{ID: id, StudentID: 7, SubjectName: subject, Bimester: bimester, Value: models.NewGradeValue(value)}
}

func floatPtr(v float64) *float64 {
	return &v
}
