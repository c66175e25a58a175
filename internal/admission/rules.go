// Package admission decides whether a new case may be created for a customer.
//
// A customer may have at most one active case. The rule runs server-side on
// case creation, independently of the form workflow.
package admission

import (
	"strings"

	"caseintake/pkg/domain"
	dErrors "caseintake/pkg/domain-errors"
)

// Reason explains a rejection.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonCustomerMissing   Reason = "customer_missing"
	ReasonCustomerMalformed Reason = "customer_malformed"
	ReasonActiveCaseExists  Reason = "active_case_exists"
)

// Error messages surfaced to callers.
const (
	MessageCustomerMissing   = "customer reference is required"
	MessageCustomerMalformed = "customer reference is malformed"
	MessageActiveCaseExists  = "A case for this customer is already active"
)

// Input is the customer reference of the case being created, as received.
type Input struct {
	CustomerID   string
	CustomerKind string
}

// Customer is a parsed customer reference.
type Customer struct {
	ID   domain.RecordID
	Kind domain.RecordKind
}

// Decision is the outcome of the rule.
type Decision struct {
	Admit    bool
	Reason   Reason
	Customer Customer
}

// ParseCustomer validates the reference's shape. It returns ReasonNone when the
// reference is usable.
func ParseCustomer(in Input) (Customer, Reason) {
	rawID := strings.TrimSpace(in.CustomerID)
	rawKind := strings.TrimSpace(in.CustomerKind)
	if domain.NormalizeRecordID(rawID).IsEmpty() {
		return Customer{}, ReasonCustomerMissing
	}
	id, err := domain.ParseRecordID(rawID)
	if err != nil {
		return Customer{}, ReasonCustomerMalformed
	}
	kind, err := domain.ParseCustomerKind(rawKind)
	if err != nil {
		return Customer{}, ReasonCustomerMalformed
	}
	return Customer{ID: id, Kind: kind}, ReasonNone
}

// Evaluate applies the rule. This is pure domain logic: the caller supplies
// the number of active cases already recorded for the customer.
//
// Rule priority (fail-fast):
//  1. customer reference present
//  2. customer reference well-formed
//  3. no active case for the customer
func Evaluate(in Input, activeCount int) Decision {
	customer, reason := ParseCustomer(in)
	if reason != ReasonNone {
		return Decision{Reason: reason}
	}
	if activeCount > 0 {
		return Decision{Reason: ReasonActiveCaseExists, Customer: customer}
	}
	return Decision{Admit: true, Customer: customer}
}

// Err converts a rejection into the domain error returned to callers.
func (d Decision) Err() error {
	switch d.Reason {
	case ReasonNone:
		return nil
	case ReasonCustomerMissing:
		return dErrors.New(dErrors.CodeValidation, MessageCustomerMissing)
	case ReasonCustomerMalformed:
		return dErrors.New(dErrors.CodeValidation, MessageCustomerMalformed)
	case ReasonActiveCaseExists:
		return dErrors.New(dErrors.CodeConflict, MessageActiveCaseExists)
	default:
		return dErrors.New(dErrors.CodeInternal, "unknown admission reason")
	}
}
