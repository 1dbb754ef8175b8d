package sse

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishIsScopedByTopic(t *testing.T) {
	hub := NewHub()

	c1, cleanup1 := hub.Subscribe("c1")
	defer cleanup1()
	c2, cleanup2 := hub.Subscribe("c2")
	defer cleanup2()

	require.NoError(t, hub.PublishRunCompleted(context.Background(), payroll.RunSummary{CompanyID: "c1", PeriodKey: "2024-09"}))

	select {
	case ev := <-c1:
		assert.Equal(t, EventRunCompleted, ev.Event)
		assert.Equal(t, "c1", ev.Topic)
		summary, ok := ev.Data.(payroll.RunSummary)
		require.True(t, ok)
		assert.Equal(t, "2024-09", summary.PeriodKey)
	default:
		t.Fatal("expected an event for c1")
	}

	select {
	case ev := <-c2:
		t.Fatalf("unexpected event for c2: %+v", ev)
	default:
	}
}

func TestHub_CleanupClosesChannel(t *testing.T) {
	hub := NewHub()

	ch, cleanup := hub.Subscribe("c1")
	assert.Equal(t, 1, hub.SubscriberCount("c1"))

	cleanup()
	cleanup()
	assert.Equal(t, 0, hub.SubscriberCount("c1"))

	_, open := <-ch
	assert.False(t, open)

	hub.Publish("c1", Event{Event: "noop"})
}

func TestHub_DropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("c1")
	defer cleanup()

	for i := 0; i < hub.bufferSize+5; i++ {
		hub.Publish("c1", Event{Event: "tick", Data: i})
	}
	assert.Len(t, ch, hub.bufferSize)
}
