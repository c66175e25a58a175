package handler

import (
	"strings"

	"caseintake/internal/intake/ports"
	"caseintake/pkg/domain"
	dErrors "caseintake/pkg/domain-errors"
)

// ResolveRequest is the HTTP request body for POST /v1/case-forms/resolve.
type ResolveRequest struct {
	Customer       *LookupRequest `json:"customer"`
	PrimaryContact *LookupRequest `json:"primary_contact"`
	Layout         *LayoutRequest `json:"layout"`

	// Parsed values (populated by Validate)
	customer       *ports.Lookup
	primaryContact *ports.Lookup
}

// LookupRequest is a reference field value.
type LookupRequest struct {
	ID   string `json:"id" validate:"max=64"`
	Kind string `json:"kind" validate:"required,oneof=account contact"`
	Name string `json:"name" validate:"max=160"`
}

// LayoutRequest describes which optional parts the form layout carries.
// Omitted flags default to present.
type LayoutRequest struct {
	PrimaryContactControl *bool `json:"primary_contact_control"`
	SummaryPanel          *bool `json:"summary_panel"`
}

// Validate validates and parses the request.
func (r *ResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	customer, err := parseLookup(r.Customer)
	if err != nil {
		return err
	}
	contact, err := parseLookup(r.PrimaryContact)
	if err != nil {
		return err
	}
	if contact != nil && contact.Kind != domain.KindPerson {
		return dErrors.New(dErrors.CodeValidation, "primary_contact must be a contact")
	}
	r.customer = customer
	r.primaryContact = contact
	return nil
}

func parseLookup(l *LookupRequest) (*ports.Lookup, error) {
	if l == nil {
		return nil, nil
	}
	kind, err := domain.ParseCustomerKind(strings.TrimSpace(l.Kind))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "kind must be account or contact")
	}
	id := domain.NormalizeRecordID(l.ID)
	if id.IsEmpty() {
		// An id-less lookup is an empty field.
		return nil, nil
	}
	return &ports.Lookup{ID: id, Name: strings.TrimSpace(l.Name), Kind: kind}, nil
}

// HasPrimaryContactControl reports whether the layout shows the primary contact.
func (r *ResolveRequest) HasPrimaryContactControl() bool {
	return r.Layout == nil || r.Layout.PrimaryContactControl == nil || *r.Layout.PrimaryContactControl
}

// HasSummaryPanel reports whether the layout embeds the summary panel.
func (r *ResolveRequest) HasSummaryPanel() bool {
	return r.Layout == nil || r.Layout.SummaryPanel == nil || *r.Layout.SummaryPanel
}

// ParsedCustomer returns the validated customer, nil when empty.
func (r *ResolveRequest) ParsedCustomer() *ports.Lookup {
	return r.customer
}

// ParsedPrimaryContact returns the validated primary contact, nil when empty.
func (r *ResolveRequest) ParsedPrimaryContact() *ports.Lookup {
	return r.primaryContact
}
