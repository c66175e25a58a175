package handler

import (
	"caseintake/internal/intake/form"
	"caseintake/internal/intake/ports"
)

// ResolveResponse is the HTTP response for POST /v1/case-forms/resolve.
type ResolveResponse struct {
	Outcome        string                 `json:"outcome"`
	Customer       *LookupResponse        `json:"customer"`
	PrimaryContact PrimaryContactResponse `json:"primary_contact"`
	SummaryPanel   *PanelResponse         `json:"summary_panel,omitempty"`
	Notifications  []form.Banner          `json:"notifications"`
}

// LookupResponse is a reference field value.
type LookupResponse struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Kind string `json:"kind"`
}

// PrimaryContactResponse is the final state of the primary contact field.
type PrimaryContactResponse struct {
	Value         *LookupResponse `json:"value"`
	Visible       *bool           `json:"visible,omitempty"`
	RequiredLevel string          `json:"required_level"`
}

// PanelResponse is the final state of the summary panel.
type PanelResponse struct {
	Visible bool                     `json:"visible"`
	Fields  map[string]FieldResponse `json:"fields"`
}

// FieldResponse is one summary panel child field.
type FieldResponse struct {
	Value   string `json:"value"`
	Visible bool   `json:"visible"`
}

func toLookup(l *ports.Lookup) *LookupResponse {
	if l == nil {
		return nil
	}
	return &LookupResponse{ID: l.ID.String(), Name: l.Name, Kind: l.Kind.String()}
}

func toPanel(state form.PanelState) *PanelResponse {
	out := &PanelResponse{Visible: state.Visible, Fields: make(map[string]FieldResponse, len(state.Controls))}
	for name, visible := range state.Controls {
		out.Fields[name] = FieldResponse{Value: state.Values[name], Visible: visible}
	}
	return out
}
