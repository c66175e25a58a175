// Package domain holds the identifier primitives shared by the intake workflow
// and the case admission rule.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "caseintake/pkg/domain-errors"
)

// RecordID is an opaque record identifier as handed out by the record service.
// Hosts frequently render ids bracketed ("{...}"); NormalizeRecordID removes the
// brackets before the id is used in a lookup or compared.
type RecordID string

// NormalizeRecordID strips bracket characters and surrounding whitespace.
func NormalizeRecordID(raw string) RecordID {
	cleaned := strings.NewReplacer("{", "", "}", "").Replace(raw)
	return RecordID(strings.TrimSpace(cleaned))
}

// IsEmpty reports whether the id carries no value after normalization.
func (id RecordID) IsEmpty() bool {
	return NormalizeRecordID(string(id)) == ""
}

func (id RecordID) String() string {
	return string(id)
}

// Equal compares two ids after normalization, ignoring case.
func (id RecordID) Equal(other RecordID) bool {
	return strings.EqualFold(string(NormalizeRecordID(string(id))), string(NormalizeRecordID(string(other))))
}

// ParseRecordID normalizes raw and validates it as a non-nil UUID.
//
// Usage: call at trust boundaries that persist the id (case admission). The
// intake workflow treats ids as opaque and only normalizes them.
//
// Errors: CodeInvalidInput when raw is empty, malformed, or the nil UUID.
func ParseRecordID(raw string) (RecordID, error) {
	normalized := NormalizeRecordID(raw)
	if normalized == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record id cannot be empty")
	}
	parsed, err := uuid.Parse(string(normalized))
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record id must be a UUID")
	}
	if parsed == uuid.Nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record id cannot be the nil UUID")
	}
	return RecordID(parsed.String()), nil
}

// CaseID identifies an admitted case.
type CaseID uuid.UUID

// NewCaseID returns a random case id.
func NewCaseID() CaseID {
	return CaseID(uuid.New())
}

// ParseCaseID parses a case id from external input.
func ParseCaseID(raw string) (CaseID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || parsed == uuid.Nil {
		return CaseID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid case id")
	}
	return CaseID(parsed), nil
}

func (id CaseID) String() string {
	return uuid.UUID(id).String()
}

func (id CaseID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
