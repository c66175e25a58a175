package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"caseintake/internal/admission/models"
	"caseintake/pkg/domain"
	"caseintake/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) newCase(customer domain.RecordID) *models.Case {
	c, err := models.NewCase(domain.NewCaseID(), customer, domain.KindOrganization, "title", time.Now())
	s.Require().NoError(err)
	return c
}

func (s *InMemoryStoreSuite) TestOneActiveCasePerCustomer() {
	first := s.newCase("5b8a0e1c-8f2d-4e0a-9d1c-2f3b4a5c6d7e")
	s.Require().NoError(s.store.CreateIfNoActive(s.ctx, first))

	s.Run("second active case is a conflict", func() {
		err := s.store.CreateIfNoActive(s.ctx, s.newCase("5B8A0E1C-8F2D-4E0A-9D1C-2F3B4A5C6D7E"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("other customers are unaffected", func() {
		s.NoError(s.store.CreateIfNoActive(s.ctx, s.newCase("0f9e8d7c-6b5a-4c3d-8e2f-1a0b9c8d7e6f")))
	})

	s.Run("resolving frees the customer", func() {
		_, err := s.store.TransitionState(s.ctx, first.ID, models.StateActive, models.StateResolved, time.Now())
		s.Require().NoError(err)
		count, err := s.store.CountActive(s.ctx, first.CustomerID)
		s.Require().NoError(err)
		s.Zero(count)
		s.NoError(s.store.CreateIfNoActive(s.ctx, s.newCase(first.CustomerID)))
	})
}

func (s *InMemoryStoreSuite) TestConcurrentAdmissionsAdmitOne() {
	const goroutines = 32
	var wg sync.WaitGroup
	var admitted atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.CreateIfNoActive(s.ctx, s.newCase("5b8a0e1c-8f2d-4e0a-9d1c-2f3b4a5c6d7e")); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), admitted.Load())
}

func (s *InMemoryStoreSuite) TestTransitionState() {
	c := s.newCase("5b8a0e1c-8f2d-4e0a-9d1c-2f3b4a5c6d7e")
	s.Require().NoError(s.store.CreateIfNoActive(s.ctx, c))

	updated, err := s.store.TransitionState(s.ctx, c.ID, models.StateActive, models.StateCancelled, time.Now())
	s.Require().NoError(err)
	s.Equal(models.StateCancelled, updated.State)

	_, err = s.store.TransitionState(s.ctx, c.ID, models.StateActive, models.StateResolved, time.Now())
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.TransitionState(s.ctx, domain.NewCaseID(), models.StateActive, models.StateResolved, time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByID(s.ctx, domain.NewCaseID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
