package backend

// Payloads use the backend's snake_case field names.

// GradePayload is the body of POST/PUT /grades/.
type GradePayload struct {
	StudentID int64   `json:"student_id"`
	SubjectID int64   `json:"subject_id"`
	Bimester  string  `json:"bimester"`
	Value     float64 `json:"value"`
}

// WarningPayload is the body of POST/PUT /warnings/.
type WarningPayload struct {
	StudentID int64  `json:"student_id"`
	Date      string `json:"date"`
	Reason    string `json:"reason"`
}

// SuspensionPayload is the body of POST/PUT /suspensions/.
type SuspensionPayload struct {
	StudentID int64  `json:"student_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

// AbsencePayload is the body of POST/PUT /absences/.
type AbsencePayload struct {
	StudentID int64  `json:"student_id"`
	SubjectID int64  `json:"subject_id"`
	Date      string `json:"date"`
	Justified bool   `json:"justified"`
}

// ReservationPayload is the body of POST /reservations/.
type ReservationPayload struct {
	RoomID int64  `json:"room_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}
