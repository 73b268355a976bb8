package service

import (
	"sort"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

// UnknownSubject labels grades that arrive without a subject name.
const UnknownSubject = "unknown subject"

// SubjectGradeRow is one subject line of the report card. Slots and the
// average are nil when nothing valid was recorded; RecordIDs holds the grade
// occupying each slot, zero when empty.
type SubjectGradeRow struct {
	Subject   string   `json:"subject"`
	N1        *float64 `json:"n1"`
	N2        *float64 `json:"n2"`
	N3        *float64 `json:"n3"`
	N4        *float64 `json:"n4"`
	Average   *float64 `json:"average"`
	RecordIDs [4]int64 `json:"recordIds"`
}

// Slots returns the four bimester values in order.
func (r SubjectGradeRow) Slots() [4]*float64 {
	return [4]*float64{r.N1, r.N2, r.N3, r.N4}
}

// GradeTable is the grouped grade section.
type GradeTable struct {
	Rows []SubjectGradeRow
	// Unassigned counts records whose bimester label matched no slot.
	Unassigned int
}

type slot struct {
	value    float64
	recordID int64
	set      bool
}

type subjectAccumulator struct {
	slots   [4]slot
	average *float64
}

func (a *subjectAccumulator) insert(idx int, value float64, recordID int64) {
	current := a.slots[idx]
	if current.set {
		if current.recordID > recordID {
			return
		}
		if current.recordID == recordID && current.value >= value {
			return
		}
	}
	a.slots[idx] = slot{value: value, recordID: recordID, set: true}
	a.recompute()
}

func (a *subjectAccumulator) recompute() {
	var sum float64
	var n int
	for _, s := range a.slots {
		if s.set {
			sum += s.value
			n++
		}
	}
	if n == 0 {
		a.average = nil
		return
	}
	avg := sum / float64(n)
	a.average = &avg
}

// GroupGrades folds a flat grade list into per-subject rows in a single pass.
// Invalid values (negative, non-numeric, null) never occupy a slot but still
// register the subject. When two valid records share a subject and bimester
// the one with the larger id wins, so the result does not depend on input
// order. Rows are sorted by subject name.
func GroupGrades(grades []models.Grade) GradeTable {
	subjects := make(map[string]*subjectAccumulator)
	table := GradeTable{}

	for _, g := range grades {
		name := g.SubjectName
		if name == "" {
			name = UnknownSubject
		}
		acc, ok := subjects[name]
		if !ok {
			acc = &subjectAccumulator{}
			subjects[name] = acc
		}

		idx, ok := models.BimesterSlot(g.Bimester)
		if !ok {
			table.Unassigned++
			continue
		}
		if !g.Value.Valid() {
			continue
		}
		value, _ := g.Value.Float()
		acc.insert(idx, value, g.ID)
	}

	names := make([]string, 0, len(subjects))
	for name := range subjects {
		names = append(names, name)
	}
	sort.Strings(names)

	table.Rows = make([]SubjectGradeRow, 0, len(names))
	for _, name := range names {
		acc := subjects[name]
		row := SubjectGradeRow{Subject: name, Average: acc.average}
		ptrs := [4]**float64{&row.N1, &row.N2, &row.N3, &row.N4}
		for i, s := range acc.slots {
			if s.set {
				v := s.value
				*ptrs[i] = &v
				row.RecordIDs[i] = s.recordID
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
