// Package events carries case lifecycle events to downstream consumers.
package events

import (
	"context"
	"sync"
	"time"

	"caseintake/pkg/domain"
)

// Type names a case lifecycle event.
type Type string

const (
	TypeAdmitted  Type = "case.admitted"
	TypeRejected  Type = "case.rejected"
	TypeResolved  Type = "case.resolved"
	TypeCancelled Type = "case.cancelled"
)

// Event is one case lifecycle fact. CaseID is empty for rejections.
type Event struct {
	Type       Type            `json:"type"`
	CaseID     string          `json:"case_id,omitempty"`
	CustomerID domain.RecordID `json:"customer_id,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder keeps published events in memory. It is the default sink when no
// broker is configured.
type Recorder struct {
	mu     sync.RWMutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event{}, r.events...)
}

// ByCustomer returns the events recorded for one customer, oldest first.
func (r *Recorder) ByCustomer(customer domain.RecordID) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, e := range r.events {
		if e.CustomerID.Equal(customer) {
			out = append(out, e)
		}
	}
	return out
}
