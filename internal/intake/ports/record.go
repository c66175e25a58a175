package ports

//go:generate mockgen -source=record.go -destination=mocks/mocks.go -package=mocks RecordService

import (
	"context"
	"errors"
	"fmt"

	"caseintake/pkg/domain"
)

// RecordService performs point lookups of records, returning only the
// requested fields.
type RecordService interface {
	Fetch(ctx context.Context, kind domain.RecordKind, id domain.RecordID, fields ...string) (*Record, error)
}

// Record is a projected record. Reference fields carry the referenced id as
// their value.
type Record struct {
	Kind   domain.RecordKind `json:"kind"`
	ID     domain.RecordID   `json:"id"`
	Fields map[string]string `json:"fields"`
}

// Get returns the field value, or "" when the field is absent or null.
func (r *Record) Get(field string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[field]
}

// FetchCategory is the normalized failure taxonomy of a record lookup.
type FetchCategory string

const (
	CategoryNotFound     FetchCategory = "not_found"
	CategoryTransient    FetchCategory = "transient"
	CategoryAccessDenied FetchCategory = "access_denied"
)

// FetchError wraps a failed lookup with its category.
type FetchError struct {
	Category FetchCategory
	Kind     domain.RecordKind
	ID       domain.RecordID
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s(%s) [%s]: %v", e.Kind, e.ID, e.Category, e.Err)
	}
	return fmt.Sprintf("fetch %s(%s) [%s]", e.Kind, e.ID, e.Category)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a categorized lookup failure.
func NewFetchError(category FetchCategory, kind domain.RecordKind, id domain.RecordID, err error) *FetchError {
	return &FetchError{Category: category, Kind: kind, ID: id, Err: err}
}

// CategoryOf extracts the category of a lookup failure. Uncategorized errors
// are treated as transient.
func CategoryOf(err error) FetchCategory {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return CategoryTransient
}
