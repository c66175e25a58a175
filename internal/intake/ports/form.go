// Package ports defines the collaborators the intake workflow drives: the host
// form (fields, controls, the embedded summary panel and notification banners)
// and the remote record service.
//
// Every host lookup is a capability check returning (handle, ok). Callers treat
// a missing handle as "not on this layout" and skip the operation.
package ports

import "caseintake/pkg/domain"

// Severity of a host notification banner.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// RequirementLevel of a form attribute.
type RequirementLevel string

const (
	RequirementNone     RequirementLevel = "none"
	RequirementRequired RequirementLevel = "required"
)

// Lookup is the value of a single-valued reference field. A nil *Lookup is an
// empty field.
type Lookup struct {
	ID   domain.RecordID   `json:"id"`
	Name string            `json:"name,omitempty"`
	Kind domain.RecordKind `json:"kind"`
}

// Clone returns a copy so callers never share a host's stored value.
func (l *Lookup) Clone() *Lookup {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// LookupAttribute is the data side of a reference field.
type LookupAttribute interface {
	Value() *Lookup
	SetValue(value *Lookup)
	SetRequiredLevel(level RequirementLevel)
}

// Control is the rendered side of a field.
type Control interface {
	SetVisible(visible bool)
}

// Panel is an embedded read-only summary view. Its content loads on its own
// schedule; IsLoaded is the only readiness signal it exposes.
type Panel interface {
	IsLoaded() bool
	SetVisible(visible bool)
	// Text returns the raw value of a child text field. It fails when the
	// field is not part of the panel or cannot be read.
	Text(field string) (string, error)
	Control(field string) (Control, bool)
}

// Form is the host form session the workflow runs against.
type Form interface {
	Attribute(name string) (LookupAttribute, bool)
	Control(name string) (Control, bool)
	Panel(name string) (Panel, bool)
	// SetNotification shows or replaces the banner keyed by id.
	SetNotification(message string, severity Severity, id string)
	// ClearNotification removes the banner keyed by id; absent ids are ignored.
	ClearNotification(id string)
}
