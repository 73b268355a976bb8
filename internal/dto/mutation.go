package dto

import "time"

// GradeRequest creates or replaces a grade.
type GradeRequest struct {
	StudentID int64    `json:"studentId" validate:"required,gt=0"`
	SubjectID int64    `json:"subjectId" validate:"required,gt=0"`
	Bimester  string   `json:"bimester" validate:"required,oneof='1st bimester' '2nd bimester' '3rd bimester' '4th bimester'"`
	Value     *float64 `json:"value" validate:"required,gte=0,lte=10"`
}

// WarningRequest creates or replaces a warning.
type WarningRequest struct {
	StudentID int64  `json:"studentId" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"required,max=2000"`
}

// SuspensionRequest creates or replaces a suspension.
type SuspensionRequest struct {
	StudentID int64  `json:"studentId" validate:"required,gt=0"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"required,max=2000"`
}

// AbsenceRequest creates or replaces an absence.
type AbsenceRequest struct {
	StudentID int64  `json:"studentId" validate:"required,gt=0"`
	SubjectID int64  `json:"subjectId" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Justified bool   `json:"justified"`
}

// BulkAbsenceRequest records the same absence for many students of a subject.
type BulkAbsenceRequest struct {
	SubjectID  int64   `json:"subjectId" validate:"required,gt=0"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	StudentIDs []int64 `json:"studentIds" validate:"required,min=1,max=200,dive,gt=0"`
	Justified  bool    `json:"justified"`
}

// DeleteRequest opens a two-phase delete. The student id selects the
// collection to refetch once the delete is confirmed.
type DeleteRequest struct {
	StudentID int64 `json:"studentId" validate:"required,gt=0"`
}

// DeleteConfirmationResponse is returned by the first phase of a delete.
type DeleteConfirmationResponse struct {
	Token      string    `json:"token"`
	Collection string    `json:"collection"`
	RecordID   int64     `json:"recordId"`
	StudentID  int64     `json:"studentId"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
