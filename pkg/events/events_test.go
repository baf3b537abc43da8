package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(&Event{Type: EventStageStarted, Message: "inference"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventStageStarted, ev.Type)
		assert.Equal(t, "inference", ev.Message)
		assert.False(t, ev.Timestamp.IsZero(), "timestamp should be set on publish")
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBrokerOrdering(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()

	order := []EventType{
		EventReadinessReady,
		EventConfigResolved,
		EventStageStarted,
		EventStageCompleted,
		EventRunCompleted,
	}
	for _, typ := range order {
		b.Publish(&Event{Type: typ})
	}

	for _, want := range order {
		select {
		case ev := <-sub:
			require.Equal(t, want, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("missing event %s", want)
		}
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	// Channel is closed after unsubscribe.
	_, open := <-sub
	assert.False(t, open)
}

func TestBrokerStopTwice(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()
	assert.NotPanics(t, func() { b.Stop() })
}
