// Package events provides a channel-based event system for twilight
// so hosts can observe scheduler cycles without coupling to the core.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/vherrmann/twilight/pkg/logger"
)

// EventType represents the type of event
type EventType string

const (
	// Scheduler lifecycle events
	SchedulerStarting EventType = "scheduler:starting"
	SchedulerStarted  EventType = "scheduler:started"
	SchedulerStopped  EventType = "scheduler:stopped"

	// Cycle events
	CycleActivate      EventType = "cycle:activate"
	CycleCallbackError EventType = "cycle:callbackError"
	CycleRescheduled   EventType = "cycle:rescheduled"
	CycleEmptySchedule EventType = "cycle:emptySchedule"
	CycleUnresolvable  EventType = "cycle:unresolvable"
)

// Event represents a single event with metadata
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     error                  `json:"error,omitempty"`
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event)

type subscription struct {
	id      int
	handler EventHandler
}

// EventBus provides an event system using a buffered channel so
// emitters never block on slow observers.
type EventBus struct {
	mu        sync.RWMutex
	nextID    int
	handlers  map[EventType][]subscription
	eventChan chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *logger.Logger
}

// NewEventBus creates a new event bus with buffered channel
func NewEventBus(ctx context.Context, bufferSize int) *EventBus {
	busCtx, cancel := context.WithCancel(ctx)

	bus := &EventBus{
		handlers:  make(map[EventType][]subscription),
		eventChan: make(chan Event, bufferSize),
		ctx:       busCtx,
		cancel:    cancel,
		logger:    logger.DefaultLogger.Scope(logger.LogScope{Label: "events"}),
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe adds an event handler for the specified event type.
// Returns an unsubscribe function.
func (bus *EventBus) Subscribe(eventType EventType, handler EventHandler) func() {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.nextID++
	id := bus.nextID
	bus.handlers[eventType] = append(bus.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		bus.mu.Lock()
		defer bus.mu.Unlock()

		subs := bus.handlers[eventType]
		for i, sub := range subs {
			if sub.id == id {
				bus.handlers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Emit sends an event asynchronously.
// Non-blocking to prevent deadlocks.
func (bus *EventBus) Emit(eventType EventType, data map[string]interface{}) {
	bus.send(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// EmitError sends an event with an error
func (bus *EventBus) EmitError(eventType EventType, err error, data map[string]interface{}) {
	bus.send(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Error:     err,
	})
}

func (bus *EventBus) send(event Event) {
	select {
	case bus.eventChan <- event:
	case <-bus.ctx.Done():
		// Bus is shutting down
	default:
		// Channel is full, log warning but don't block
		bus.logger.Warn("Event channel full, dropping event", logger.LogMeta{
			"eventType": string(event.Type),
			"data":      event.Data,
		})
	}
}

// Close shuts down the bus and waits for pending events to be handled
func (bus *EventBus) Close() {
	bus.cancel()
	bus.wg.Wait()
}

// processEvents processes events from the channel
func (bus *EventBus) processEvents() {
	defer bus.wg.Done()

	for {
		select {
		case event := <-bus.eventChan:
			bus.handleEvent(event)
		case <-bus.ctx.Done():
			// Process remaining events before shutdown
			for {
				select {
				case event := <-bus.eventChan:
					bus.handleEvent(event)
				default:
					return
				}
			}
		}
	}
}

// handleEvent dispatches event to registered handlers
func (bus *EventBus) handleEvent(event Event) {
	bus.mu.RLock()
	subs := make([]subscription, len(bus.handlers[event.Type]))
	copy(subs, bus.handlers[event.Type])
	bus.mu.RUnlock()

	for _, sub := range subs {
		func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					bus.logger.Error("Event handler panicked", logger.LogMeta{
						"eventType": string(event.Type),
						"panic":     r,
					})
				}
			}()
			h(bus.ctx, event)
		}(sub.handler)
	}
}
