package service

import (
	"sort"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

// Fallback texts shown when a section has nothing to display.
const (
	NoGradesText      = "no grades recorded"
	NoAbsencesText    = "no absences recorded"
	NoWarningsText    = "no warnings recorded"
	NoSuspensionsText = "no suspensions recorded"
)

// SectionState tells the UI whether the section was fetched and what to show
// when it is empty.
type SectionState struct {
	Available    bool   `json:"available"`
	EmptyMessage string `json:"emptyMessage,omitempty"`
}

func sectionState(fetchErr error, empty bool, fallback string) SectionState {
	state := SectionState{Available: fetchErr == nil}
	if fetchErr != nil || empty {
		state.EmptyMessage = fallback
	}
	return state
}

// GradeSection is the grade table of the report card.
type GradeSection struct {
	SectionState
	Rows             []SubjectGradeRow `json:"rows"`
	UnassignedGrades int               `json:"unassignedGrades"`
}

// WarningRow is a display-ready warning.
type WarningRow struct {
	ID     int64  `json:"id"`
	Kind   string `json:"kind"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
	Issuer string `json:"issuer,omitempty"`
}

// WarningSection lists warnings, newest first.
type WarningSection struct {
	SectionState
	Rows []WarningRow `json:"rows"`
}

// SuspensionRow is a display-ready suspension.
type SuspensionRow struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Days      int    `json:"days"`
	Reason    string `json:"reason"`
}

// SuspensionSection lists suspensions, newest first.
type SuspensionSection struct {
	SectionState
	Rows []SuspensionRow `json:"rows"`
}

// AbsenceRow is a display-ready absence.
type AbsenceRow struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	Date      string `json:"date"`
	Subject   string `json:"subject"`
	Student   string `json:"student,omitempty"`
	Justified bool   `json:"justified"`
}

// AbsenceSection lists absences, newest first.
type AbsenceSection struct {
	SectionState
	Rows []AbsenceRow `json:"rows"`
}

// AttendanceSummary totals the absences of the student.
type AttendanceSummary struct {
	Total       int `json:"total"`
	Justified   int `json:"justified"`
	Unjustified int `json:"unjustified"`
}

func newGradeSection(grades []models.Grade, fetchErr error) *GradeSection {
	if fetchErr != nil {
		grades = nil
	}
	table := GroupGrades(grades)
	return &GradeSection{
		SectionState:     sectionState(fetchErr, len(table.Rows) == 0, NoGradesText),
		Rows:             table.Rows,
		UnassignedGrades: table.Unassigned,
	}
}

func newWarningSection(warnings []models.Warning, fetchErr error) *WarningSection {
	if fetchErr != nil {
		warnings = nil
	}
	sorted := append([]models.Warning(nil), warnings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return laterFirst(sorted[i].Date, sorted[j].Date, sorted[i].ID, sorted[j].ID)
	})
	rows := make([]WarningRow, 0, len(sorted))
	for _, w := range sorted {
		rows = append(rows, WarningRow{
			ID:     w.ID,
			Kind:   string(models.RecordWarning),
			Date:   w.Date.Display(),
			Reason: w.Reason,
			Issuer: w.Issuer,
		})
	}
	return &WarningSection{SectionState: sectionState(fetchErr, len(rows) == 0, NoWarningsText), Rows: rows}
}

func newSuspensionSection(suspensions []models.Suspension, fetchErr error) *SuspensionSection {
	if fetchErr != nil {
		suspensions = nil
	}
	sorted := append([]models.Suspension(nil), suspensions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return laterFirst(sorted[i].StartDate, sorted[j].StartDate, sorted[i].ID, sorted[j].ID)
	})
	rows := make([]SuspensionRow, 0, len(sorted))
	for _, s := range sorted {
		rows = append(rows, SuspensionRow{
			ID:        s.ID,
			Kind:      string(models.RecordSuspension),
			StartDate: s.StartDate.Display(),
			EndDate:   s.EndDate.Display(),
			Days:      suspensionDays(s),
			Reason:    s.Reason,
		})
	}
	return &SuspensionSection{SectionState: sectionState(fetchErr, len(rows) == 0, NoSuspensionsText), Rows: rows}
}

func newAbsenceSection(absences []models.Absence, fetchErr error) *AbsenceSection {
	if fetchErr != nil {
		absences = nil
	}
	sorted := append([]models.Absence(nil), absences...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return laterFirst(sorted[i].Date, sorted[j].Date, sorted[i].ID, sorted[j].ID)
	})
	rows := make([]AbsenceRow, 0, len(sorted))
	for _, a := range sorted {
		subject := a.SubjectName
		if subject == "" {
			subject = UnknownSubject
		}
		rows = append(rows, AbsenceRow{
			ID:        a.ID,
			Kind:      string(models.RecordAbsence),
			Date:      a.Date.Display(),
			Subject:   subject,
			Student:   a.StudentName,
			Justified: a.Justified,
		})
	}
	return &AbsenceSection{SectionState: sectionState(fetchErr, len(rows) == 0, NoAbsencesText), Rows: rows}
}

func summarizeAttendance(absences []models.Absence) *AttendanceSummary {
	summary := &AttendanceSummary{Total: len(absences)}
	for _, a := range absences {
		if a.Justified {
			summary.Justified++
		}
	}
	summary.Unjustified = summary.Total - summary.Justified
	return summary
}

// suspensionDays counts calendar days inclusively; zero when either date is invalid.
func suspensionDays(s models.Suspension) int {
	if !s.StartDate.Valid() || !s.EndDate.Valid() || s.EndDate.Before(s.StartDate.Time) {
		return 0
	}
	return int(s.EndDate.Sub(s.StartDate.Time).Hours()/24) + 1
}

func laterFirst(a, b models.Date, idA, idB int64) bool {
	if !a.Equal(b.Time) {
		return a.After(b.Time)
	}
	return idA > idB
}
