package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(TopicPaymentRecorded, func(e Event) error {
		got = append(got, e)
		return nil
	})
	bus.Subscribe(TopicEventCreated, func(e Event) error {
		t.Fatal("handler for a different topic must not fire")
		return nil
	})

	bus.Publish(TopicPaymentRecorded, map[string]int64{"payment_id": 7})

	assert.Len(t, got, 1)
	assert.Equal(t, TopicPaymentRecorded, got[0].Type)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestBus_MultipleHandlers(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe(TopicAssignmentCreated, func(Event) error { calls++; return nil })
	bus.Subscribe(TopicAssignmentCreated, func(Event) error { calls++; return errors.New("ignored") })
	bus.Subscribe(TopicAssignmentCreated, func(Event) error { calls++; return nil })

	bus.Publish(TopicAssignmentCreated, nil)

	assert.Equal(t, 3, calls, "a failing handler must not stop the others")
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() { bus.Publish(TopicSubscriptionChange, nil) })
}
