package models

import (
	"time"

	"caseintake/pkg/domain"
	dErrors "caseintake/pkg/domain-errors"
)

// State is the lifecycle state of a case.
type State string

const (
	StateActive    State = "active"
	StateResolved  State = "resolved"
	StateCancelled State = "cancelled"
)

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	switch s {
	case StateActive, StateResolved, StateCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a case may move from s to next.
// Only active cases change state; resolved and cancelled are terminal.
func (s State) CanTransitionTo(next State) bool {
	return s == StateActive && (next == StateResolved || next == StateCancelled)
}

// Case is an admitted case record.
//
// Invariants:
//   - CustomerID is a normalized, non-empty record id
//   - CustomerKind is a customer kind (account or contact)
//   - at most one case per customer is active at any time
//   - CreatedAt is immutable after construction
type Case struct {
	ID           domain.CaseID     `json:"id"`
	CustomerID   domain.RecordID   `json:"customer_id"`
	CustomerKind domain.RecordKind `json:"customer_kind"`
	Title        string            `json:"title"`
	State        State             `json:"state"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewCase constructs an active case.
func NewCase(id domain.CaseID, customer domain.RecordID, kind domain.RecordKind, title string, now time.Time) (*Case, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "case id is required")
	}
	if customer.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer id is required")
	}
	if !kind.IsCustomer() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer kind must be account or contact")
	}
	return &Case{
		ID:           id,
		CustomerID:   customer,
		CustomerKind: kind,
		Title:        title,
		State:        StateActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *Case) IsActive() bool {
	return c.State == StateActive
}

// Transition moves the case to next.
func (c *Case) Transition(next State, now time.Time) error {
	if !c.State.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvariantViolation, "case is not active")
	}
	c.State = next
	c.UpdatedAt = now
	return nil
}
