package handler

import (
	"time"

	"caseintake/internal/admission/models"
)

// CaseResponse is the HTTP representation of a case.
type CaseResponse struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	CustomerKind string    `json:"customer_kind"`
	Title        string    `json:"title,omitempty"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toCaseResponse(c *models.Case) *CaseResponse {
	return &CaseResponse{
		ID:           c.ID.String(),
		CustomerID:   c.CustomerID.String(),
		CustomerKind: c.CustomerKind.String(),
		Title:        c.Title,
		State:        string(c.State),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
