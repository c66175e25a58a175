package handler

import (
	"strings"

	"caseintake/internal/admission/service"
)

// CreateCaseRequest is the HTTP request body for POST /v1/cases.
// The customer reference is checked by the admission rule, not by tags, so
// a missing reference gets the rule's own message.
type CreateCaseRequest struct {
	CustomerID   string `json:"customer_id" validate:"max=64"`
	CustomerKind string `json:"customer_kind" validate:"max=32"`
	Title        string `json:"title" validate:"max=200"`
}

func (r *CreateCaseRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	return nil
}

func (r *CreateCaseRequest) toAdmit() service.AdmitRequest {
	return service.AdmitRequest{
		CustomerID:   r.CustomerID,
		CustomerKind: r.CustomerKind,
		Title:        r.Title,
	}
}
