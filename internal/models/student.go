package models

// ClassRef identifies the class/group a student belongs to.
type ClassRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Student represents the profile returned by GET /students/{id}.
type Student struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	EnrollmentNumber string    `json:"enrollment_number"`
	Class            *ClassRef `json:"class,omitempty"`
	Status           string    `json:"status"`
}

// ClassName returns the class label or "N/A" when the student is unassigned.
func (s Student) ClassName() string {
	if s.Class == nil || s.Class.Name == "" {
		return "N/A"
	}
	return s.Class.Name
}
