package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseintake/pkg/domain"
	dErrors "caseintake/pkg/domain-errors"
)

func TestNewCase(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	c, err := NewCase(domain.NewCaseID(), "A1", domain.KindOrganization, "Broken invoice", now)
	require.NoError(t, err)
	assert.Equal(t, StateActive, c.State)
	assert.Equal(t, now, c.CreatedAt)
	assert.True(t, c.IsActive())

	_, err = NewCase(domain.CaseID{}, "A1", domain.KindOrganization, "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = NewCase(domain.NewCaseID(), "", domain.KindOrganization, "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = NewCase(domain.NewCaseID(), "A1", domain.KindCase, "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestTransitions(t *testing.T) {
	now := time.Now()
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateActive, StateResolved, true},
		{StateActive, StateCancelled, true},
		{StateActive, StateActive, false},
		{StateResolved, StateActive, false},
		{StateResolved, StateCancelled, false},
		{StateCancelled, StateResolved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			c := &Case{State: tt.from}
			err := c.Transition(tt.to, now)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, c.State)
				assert.Equal(t, now, c.UpdatedAt)
			} else {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
				assert.Equal(t, tt.from, c.State)
			}
		})
	}
}
