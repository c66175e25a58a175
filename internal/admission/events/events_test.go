package events

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, Event{Type: TypeAdmitted, CustomerID: "A1"}))
	require.NoError(t, r.Publish(ctx, Event{Type: TypeRejected, CustomerID: "B2"}))
	require.NoError(t, r.Publish(ctx, Event{Type: TypeResolved, CustomerID: "a1"}))

	assert.Len(t, r.Events(), 3)

	got := r.ByCustomer("A1")
	require.Len(t, got, 2)
	assert.Equal(t, TypeAdmitted, got[0].Type)
	assert.Equal(t, TypeResolved, got[1].Type)
}

func TestRecorderConcurrentPublish(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Publish(context.Background(), Event{Type: TypeAdmitted})
		}()
	}
	wg.Wait()
	assert.Len(t, r.Events(), 50)
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher([]string{" ", ""})
	assert.Error(t, err)
}
