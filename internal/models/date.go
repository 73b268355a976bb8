package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// DisplayDateLayout renders dates for the portal (day first).
	DisplayDateLayout = "02/01/2006"
	// DisplayDateTimeLayout renders reservation instants.
	DisplayDateTimeLayout = "02/01/2006 15:04"

	invalidDateText = "invalid date"
)

// Date is a calendar date without time zone. Unparseable wire values decode
// to an invalid Date instead of failing the whole payload.
type Date struct {
	time.Time
	raw string
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Valid reports whether the date holds a real calendar value.
func (d Date) Valid() bool {
	return !d.Time.IsZero()
}

// String returns the wire representation.
func (d Date) String() string {
	if !d.Valid() {
		return d.raw
	}
	return d.Format(DateLayout)
}

// Display renders the date as DD/MM/YYYY.
func (d Date) Display() string {
	if !d.Valid() {
		return invalidDateText
	}
	return d.Format(DisplayDateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON accepts YYYY-MM-DD, RFC 3339 timestamps and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	*d = Date{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		d.raw = string(data)
		return nil
	}
	if s == "" {
		return nil
	}
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		*d = NewDate(ts.Year(), ts.Month(), ts.Day())
		return nil
	}
	d.raw = s
	return nil
}
