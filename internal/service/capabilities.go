package service

import (
	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

// Action is a mutation the portal can offer on a collection.
type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// CollectionCapabilities lists the actions offered for one collection.
type CollectionCapabilities struct {
	Create bool `json:"create"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

// Capabilities is the role-gated action set shown next to each section.
type Capabilities struct {
	Grades      CollectionCapabilities `json:"grades"`
	Absences    CollectionCapabilities `json:"absences"`
	Warnings    CollectionCapabilities `json:"warnings"`
	Suspensions CollectionCapabilities `json:"suspensions"`
}

func full(allowed bool) CollectionCapabilities {
	return CollectionCapabilities{Create: allowed, Edit: allowed, Delete: allowed}
}

// CapabilitiesFor resolves the action set for a role. Coordination staff
// manage everything; teachers manage grades and absences; guardians and
// unknown roles only read.
func CapabilitiesFor(role models.Role) Capabilities {
	staff := role.IsStaff()
	classroom := staff || role == models.RoleTeacher
	return Capabilities{
		Grades:      full(classroom),
		Absences:    full(classroom),
		Warnings:    full(staff),
		Suspensions: full(staff),
	}
}

// For returns the capabilities of a single collection.
func (c Capabilities) For(collection models.Collection) CollectionCapabilities {
	switch collection {
	case models.CollectionGrades:
		return c.Grades
	case models.CollectionAbsences:
		return c.Absences
	case models.CollectionWarnings:
		return c.Warnings
	case models.CollectionSuspensions:
		return c.Suspensions
	}
	return CollectionCapabilities{}
}

// Allows reports whether action is offered on collection.
func (c Capabilities) Allows(collection models.Collection, action Action) bool {
	caps := c.For(collection)
	switch action {
	case ActionCreate:
		return caps.Create
	case ActionEdit:
		return caps.Edit
	case ActionDelete:
		return caps.Delete
	}
	return false
}

func ensureAllowed(role models.Role, collection models.Collection, action Action) error {
	if CapabilitiesFor(role).Allows(collection, action) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "role "+string(role)+" cannot "+string(action)+" "+string(collection))
}
