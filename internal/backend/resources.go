package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

func idQuery(key string, id int64) url.Values {
	return url.Values{key: []string{strconv.FormatInt(id, 10)}}
}

func (c *Client) list(ctx context.Context, credential string, req call, out interface{}) error {
	req.method = http.MethodGet
	raw, err := c.send(ctx, credential, req)
	if err != nil {
		return err
	}
	if err := decodeList(raw, out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "unexpected response from school backend")
	}
	return nil
}

// GetStudent fetches a student profile.
func (c *Client) GetStudent(ctx context.Context, credential string, id int64) (*models.Student, error) {
	var student models.Student
	err := c.do(ctx, credential, call{resource: "students", method: http.MethodGet, path: fmt.Sprintf("/students/%d", id)}, &student)
	if err != nil {
		if appErrors.IsCode(err, appErrors.ErrNotFound.Code) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, err
	}
	return &student, nil
}

// ListGrades fetches every grade recorded for a student.
func (c *Client) ListGrades(ctx context.Context, credential string, studentID int64) ([]models.Grade, error) {
	var grades []models.Grade
	err := c.list(ctx, credential, call{resource: "grades", path: "/grades", query: idQuery("student_id", studentID)}, &grades)
	return grades, err
}

// ListAbsences fetches the absences of a student.
func (c *Client) ListAbsences(ctx context.Context, credential string, studentID int64) ([]models.Absence, error) {
	var absences []models.Absence
	err := c.list(ctx, credential, call{resource: "absences", path: "/absences", query: idQuery("student_id", studentID)}, &absences)
	return absences, err
}

// ListAbsencesBySubject fetches the absences recorded for a subject.
func (c *Client) ListAbsencesBySubject(ctx context.Context, credential string, subjectID int64) ([]models.Absence, error) {
	var absences []models.Absence
	err := c.list(ctx, credential, call{resource: "absences", path: "/absences", query: idQuery("subject_id", subjectID)}, &absences)
	return absences, err
}

// ListWarnings fetches the warnings of a student.
func (c *Client) ListWarnings(ctx context.Context, credential string, studentID int64) ([]models.Warning, error) {
	var warnings []models.Warning
	err := c.list(ctx, credential, call{resource: "warnings", path: "/warnings", query: idQuery("student_id", studentID)}, &warnings)
	return warnings, err
}

// ListSuspensions fetches the suspensions of a student.
func (c *Client) ListSuspensions(ctx context.Context, credential string, studentID int64) ([]models.Suspension, error) {
	var suspensions []models.Suspension
	err := c.list(ctx, credential, call{resource: "suspensions", path: "/suspensions", query: idQuery("student_id", studentID)}, &suspensions)
	return suspensions, err
}

// Create posts a new record to a collection. out may be nil.
func (c *Client) Create(ctx context.Context, credential string, collection models.Collection, payload, out interface{}) error {
	return c.do(ctx, credential, call{
		resource: string(collection),
		method:   http.MethodPost,
		path:     fmt.Sprintf("/%s/", collection),
		body:     payload,
	}, out)
}

// Update replaces a record in a collection. out may be nil.
func (c *Client) Update(ctx context.Context, credential string, collection models.Collection, id int64, payload, out interface{}) error {
	return c.do(ctx, credential, call{
		resource: string(collection),
		method:   http.MethodPut,
		path:     fmt.Sprintf("/%s/%d/", collection, id),
		body:     payload,
	}, out)
}

// Delete removes a record from a collection.
func (c *Client) Delete(ctx context.Context, credential string, collection models.Collection, id int64) error {
	return c.do(ctx, credential, call{
		resource: string(collection),
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/%s/%d/", collection, id),
	}, nil)
}

// ReportPDF downloads the backend-rendered report card.
func (c *Client) ReportPDF(ctx context.Context, credential string, studentID int64) ([]byte, error) {
	return c.send(ctx, credential, call{
		resource: "report_pdf",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/students/%d/report/pdf", studentID),
	})
}

// ListRooms fetches the bookable rooms.
func (c *Client) ListRooms(ctx context.Context, credential string) ([]models.Room, error) {
	var rooms []models.Room
	err := c.list(ctx, credential, call{resource: "rooms", path: "/rooms/"}, &rooms)
	return rooms, err
}

// ListReservations fetches every reservation visible to the credential.
func (c *Client) ListReservations(ctx context.Context, credential string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := c.list(ctx, credential, call{resource: "reservations", path: "/reservations/"}, &reservations)
	return reservations, err
}

// CreateReservation books a room.
func (c *Client) CreateReservation(ctx context.Context, credential string, payload interface{}) (*models.Reservation, error) {
	var reservation models.Reservation
	err := c.do(ctx, credential, call{
		resource: "reservations",
		method:   http.MethodPost,
		path:     "/reservations/",
		body:     payload,
	}, &reservation)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}
