package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesEmittedEvents(t *testing.T) {
	bus := NewEventBus(context.Background(), 8)
	defer bus.Close()

	got := make(chan Event, 1)
	bus.Subscribe(CycleActivate, func(ctx context.Context, ev Event) {
		got <- ev
	})

	bus.Emit(CycleActivate, map[string]interface{}{"entry": "day"})

	select {
	case ev := <-got:
		assert.Equal(t, CycleActivate, ev.Type)
		assert.Equal(t, "day", ev.Data["entry"])
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus(context.Background(), 8)
	defer bus.Close()

	got := make(chan Event, 8)
	unsubscribe := bus.Subscribe(CycleRescheduled, func(ctx context.Context, ev Event) {
		got <- ev
	})

	bus.Emit(CycleRescheduled, nil)
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first event")
	}

	unsubscribe()
	bus.Emit(CycleRescheduled, nil)

	select {
	case <-got:
		t.Fatal("received event after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitErrorCarriesError(t *testing.T) {
	bus := NewEventBus(context.Background(), 8)
	defer bus.Close()

	got := make(chan Event, 1)
	bus.Subscribe(CycleCallbackError, func(ctx context.Context, ev Event) {
		got <- ev
	})

	wantErr := errors.New("callback panicked: boom")
	bus.EmitError(CycleCallbackError, wantErr, map[string]interface{}{"entry": "night"})

	select {
	case ev := <-got:
		require.Error(t, ev.Error)
		assert.Equal(t, wantErr.Error(), ev.Error.Error())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error event")
	}
}

func TestPanickingHandlerDoesNotStopDispatch(t *testing.T) {
	bus := NewEventBus(context.Background(), 8)
	defer bus.Close()

	got := make(chan struct{}, 1)
	bus.Subscribe(SchedulerStarted, func(ctx context.Context, ev Event) {
		panic("handler bug")
	})
	bus.Subscribe(SchedulerStarted, func(ctx context.Context, ev Event) {
		got <- struct{}{}
	})

	bus.Emit(SchedulerStarted, nil)

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("second handler never ran")
	}
}

func TestCloseDrainsPendingEvents(t *testing.T) {
	bus := NewEventBus(context.Background(), 8)

	got := make(chan Event, 8)
	bus.Subscribe(SchedulerStopped, func(ctx context.Context, ev Event) {
		got <- ev
	})

	bus.Emit(SchedulerStopped, nil)
	bus.Close()

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("event dropped on close")
	}
}
