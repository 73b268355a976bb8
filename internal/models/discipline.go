package models

// RecordKind tags the disciplinary record variants.
type RecordKind string

const (
	RecordWarning    RecordKind = "warning"
	RecordSuspension RecordKind = "suspension"
	RecordAbsence    RecordKind = "absence"
)

// Collection names a backend collection that the portal can mutate.
type Collection string

const (
	CollectionGrades      Collection = "grades"
	CollectionWarnings    Collection = "warnings"
	CollectionSuspensions Collection = "suspensions"
	CollectionAbsences    Collection = "absences"
)

// Collections lists every mutable collection.
var Collections = []Collection{CollectionGrades, CollectionWarnings, CollectionSuspensions, CollectionAbsences}

// ParseCollection validates a collection name from a route.
func ParseCollection(raw string) (Collection, bool) {
	for _, c := range Collections {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// Warning is a formal disciplinary notice (advertência).
type Warning struct {
	ID          int64  `json:"id"`
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	Date        Date   `json:"date"`
	Reason      string `json:"reason"`
	Issuer      string `json:"issuer,omitempty"`
}

// Suspension removes a student from classes between two dates.
type Suspension struct {
	ID          int64  `json:"id"`
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	StartDate   Date   `json:"start_date"`
	EndDate     Date   `json:"end_date"`
	Reason      string `json:"reason"`
}

// Absence records a missed class in a subject.
type Absence struct {
	ID          int64  `json:"id"`
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	SubjectID   int64  `json:"subject_id"`
	SubjectName string `json:"subject_name,omitempty"`
	Date        Date   `json:"date"`
	Justified   bool   `json:"justified"`
}
