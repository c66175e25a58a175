// Package store persists admitted cases.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"caseintake/internal/admission/models"
	"caseintake/pkg/domain"
	"caseintake/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded case store for tests and single-node use.
type InMemory struct {
	mu    sync.RWMutex
	cases map[domain.CaseID]*models.Case
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[domain.CaseID]*models.Case)}
}

// CreateIfNoActive stores c unless its customer already has an active case.
func (s *InMemory) CreateIfNoActive(_ context.Context, c *models.Case) error {
	if c == nil {
		return fmt.Errorf("case is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; exists {
		return fmt.Errorf("case %s: %w", c.ID, sentinel.ErrConflict)
	}
	for _, existing := range s.cases {
		if existing.IsActive() && existing.CustomerID.Equal(c.CustomerID) {
			return fmt.Errorf("customer %s has an active case: %w", c.CustomerID, sentinel.ErrConflict)
		}
	}
	stored := *c
	s.cases[c.ID] = &stored
	return nil
}

func (s *InMemory) CountActive(_ context.Context, customer domain.RecordID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.cases {
		if c.IsActive() && c.CustomerID.Equal(customer) {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

// TransitionState moves a case from one state to another atomically.
func (s *InMemory) TransitionState(_ context.Context, id domain.CaseID, from, to models.State, now time.Time) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.State != from {
		return nil, fmt.Errorf("case %s is %s: %w", id, c.State, sentinel.ErrInvalidState)
	}
	c.State = to
	c.UpdatedAt = now
	out := *c
	return &out, nil
}
