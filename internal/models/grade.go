package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Recognised bimester labels. Matching is exact.
const (
	Bimester1 = "1st bimester"
	Bimester2 = "2nd bimester"
	Bimester3 = "3rd bimester"
	Bimester4 = "4th bimester"
)

// Bimesters lists the labels in slot order.
var Bimesters = [4]string{Bimester1, Bimester2, Bimester3, Bimester4}

// BimesterSlot returns the zero-based slot for a label.
func BimesterSlot(label string) (int, bool) {
	for i, b := range Bimesters {
		if b == label {
			return i, true
		}
	}
	return 0, false
}

// GradeValue is a grade as sent by the backend: a JSON number, a decimal
// string such as "7.50", or null.
type GradeValue struct {
	value   float64
	present bool
	numeric bool
}

// NewGradeValue wraps a numeric grade.
func NewGradeValue(v float64) GradeValue {
	return GradeValue{value: v, present: true, numeric: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

// Float returns the numeric value when there is one.
func (g GradeValue) Float() (float64, bool) {
	return g.value, g.present && g.numeric
}

// Valid reports whether the value is present, numeric, finite and not negative.
func (g GradeValue) Valid() bool {
	v, ok := g.Float()
	return ok && v >= 0
}

// MarshalJSON implements json.Marshaler.
func (g GradeValue) MarshalJSON() ([]byte, error) {
	v, ok := g.Float()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON never fails on odd values; they decode as non-numeric.
func (g *GradeValue) UnmarshalJSON(data []byte) error {
	*g = GradeValue{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			g.present = true
			return nil
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		g.present = true
		return nil
	}
	*g = NewGradeValue(v)
	return nil
}

// Grade is one grade record for a student in a subject and bimester.
type Grade struct {
	ID          int64      `json:"id"`
	StudentID   int64      `json:"student_id"`
	SubjectID   int64      `json:"subject_id,omitempty"`
	SubjectName string     `json:"subject_name"`
	Bimester    string     `json:"bimester"`
	Value       GradeValue `json:"value"`
}
