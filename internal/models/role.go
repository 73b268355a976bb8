package models

import "strings"

// Role is the viewer's position in the school, used only to decide which
// actions the portal offers. The backend remains the authority.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleCoordinator   Role = "coordinator"
	RoleDirector      Role = "director"
	RoleITStaff       Role = "it_staff"
	RoleTeacher       Role = "teacher"
	RoleGuardian      Role = "guardian"
	RoleNone          Role = "none"
)

var roleAliases = map[string]Role{
	"administrator": RoleAdministrator,
	"administrador": RoleAdministrator,
	"coordinator":   RoleCoordinator,
	"coordenador":   RoleCoordinator,
	"director":      RoleDirector,
	"diretor":       RoleDirector,
	"it_staff":      RoleITStaff,
	"ti":            RoleITStaff,
	"teacher":       RoleTeacher,
	"professor":     RoleTeacher,
	"guardian":      RoleGuardian,
	"responsavel":   RoleGuardian,
}

// ParseRole maps a backend role string onto the fixed enumeration. Unknown
// values, including students, resolve to RoleNone.
func ParseRole(raw string) Role {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return r
	}
	return RoleNone
}

// IsStaff reports whether the role belongs to the coordination group.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdministrator, RoleCoordinator, RoleDirector, RoleITStaff:
		return true
	}
	return false
}

// UserProfile is the cached profile blob the UI keeps after login.
type UserProfile struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	Cargo string `json:"cargo,omitempty"`
}

// ResolvedRole prefers the explicit role field over the legacy cargo field.
func (p UserProfile) ResolvedRole() Role {
	if p.Role != "" {
		return ParseRole(p.Role)
	}
	return ParseRole(p.Cargo)
}
