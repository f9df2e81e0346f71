// Package scheduler runs the perpetual day-phase cycle: read the current
// time, build today's schedule, activate the currently-due callback, and arm
// exactly one timer for the next transition.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vherrmann/twilight/pkg/events"
	"github.com/vherrmann/twilight/pkg/logger"
	"github.com/vherrmann/twilight/pkg/schedule"
	"github.com/vherrmann/twilight/pkg/solar"
)

// DefaultFallbackDelay is how long the scheduler waits before retrying when
// a cycle yields no usable entries.
const DefaultFallbackDelay = time.Minute

// Config contains configuration for the day-phase scheduler.
type Config struct {
	// Table yields the configured schedule entries. It is re-invoked every
	// cycle, so the host may swap the table between cycles; the returned
	// slice is treated as an immutable snapshot for the cycle.
	Table func() []schedule.Entry

	// Place is the geographic location used for solar markers.
	Place solar.Place

	// Location defines local midnight. Defaults to time.Local.
	Location *time.Location

	// Solar is the solar collaborator. Defaults to solar.Compute.
	Solar solar.Provider

	// Time is the time source. Defaults to the system clock.
	Time TimeProvider

	// Timer is the host timer primitive. Defaults to time.AfterFunc timers.
	Timer Timer

	// FallbackDelay is the retry interval for empty-schedule cycles.
	FallbackDelay time.Duration

	Logger *logger.Logger
	Events *events.EventBus
}

// Scheduler owns the single armed timer and drives the Idle/Armed state
// machine. Exactly one timer is pending at any time after Start returns;
// cycles never overlap because every transition runs under the mutex.
type Scheduler struct {
	cfg Config

	mu         sync.Mutex
	running    bool
	handle     Handle
	cycle      uint64
	generation uint64
}

// New creates a scheduler, filling config defaults.
func New(cfg Config) *Scheduler {
	if cfg.Table == nil {
		cfg.Table = func() []schedule.Entry { return nil }
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Solar == nil {
		cfg.Solar = solar.Compute{}
	}
	if cfg.Time == nil {
		cfg.Time = &RealTimeProvider{}
	}
	if cfg.Timer == nil {
		cfg.Timer = RealTimer{}
	}
	if cfg.FallbackDelay <= 0 {
		cfg.FallbackDelay = DefaultFallbackDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.DefaultLogger.Scope(logger.LogScope{Label: "scheduler"})
	}
	return &Scheduler{cfg: cfg}
}

// Start begins the perpetual cycle and runs the first activation
// synchronously. It is idempotent in effect: calling it again cancels the
// pending timer and starts a fresh cycle, never leaving two timers armed.
// The scheduler stops when ctx is cancelled or Stop is called; each Start
// rebinds the scheduler to its own ctx, so cancelling a context passed to a
// superseded Start has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.emit(events.SchedulerStarting, nil)
	s.running = true
	s.generation++
	gen := s.generation
	s.runCycleLocked()
	s.emit(events.SchedulerStarted, nil)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.stopGeneration(gen)
	}()
}

// Stop cancels any pending timer and returns the scheduler to Idle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// stopGeneration is the ctx watcher's stop path: it acts only while the run
// it was spawned for is still the current one.
func (s *Scheduler) stopGeneration(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	s.cancelLocked()
	s.emit(events.SchedulerStopped, nil)
}

// tick is the timer firing: one full cycle, Armed to Armed.
func (s *Scheduler) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.runCycleLocked()
}

// runCycleLocked performs one cycle: build schedule, select and invoke the
// active callback, then cancel-old/arm-new for the next transition. The
// reschedule step is unconditional; a failing callback or an empty schedule
// never stops the loop.
func (s *Scheduler) runCycleLocked() {
	s.cycle++
	log := s.cfg.Logger

	now := s.cfg.Time.Now().In(s.cfg.Location)
	nowSec := now.Hour()*3600 + now.Minute()*60 + now.Second()

	// One shared solar computation per cycle so all solar entries agree.
	var day *solar.Day
	if d, err := s.cfg.Solar.EventsFor(now, s.cfg.Place); err != nil {
		log.Warn("Solar events unavailable for today", logger.LogMeta{
			"date":  now.Format("2006-01-02"),
			"error": err.Error(),
		})
	} else {
		day = &d
	}

	offsets, errs := schedule.Build(s.cfg.Table(), nowSec, day)
	for _, ee := range errs {
		log.Warn("Dropping unresolvable entry for this cycle", logger.LogMeta{
			"entry": ee.Entry.Label,
			"spec":  ee.Entry.Spec.String(),
			"error": ee.Err.Error(),
		})
		s.emitError(events.CycleUnresolvable, ee.Err, map[string]interface{}{
			"entry": ee.Entry.Label,
			"spec":  ee.Entry.Spec.String(),
		})
	}

	entry, ok := schedule.SelectActive(offsets)
	if !ok {
		log.Warn("No usable schedule entries this cycle", logger.LogMeta{
			"fallbackDelay": s.cfg.FallbackDelay.String(),
		})
		s.emit(events.CycleEmptySchedule, map[string]interface{}{
			"fallbackDelay": s.cfg.FallbackDelay.String(),
		})
		s.armLocked(s.cfg.FallbackDelay)
		return
	}

	log.Info("Activating entry", logger.LogMeta{
		"entry": entry.Label,
		"spec":  entry.Spec.String(),
		"cycle": s.cycle,
	})
	s.emit(events.CycleActivate, map[string]interface{}{
		"entry": entry.Label,
		"spec":  entry.Spec.String(),
	})
	s.invoke(entry)

	delay, _ := schedule.NextDelay(offsets)
	s.armLocked(delay)
	s.emit(events.CycleRescheduled, map[string]interface{}{
		"delay": delay.String(),
	})
}

// invoke runs the callback, isolating panics at the loop boundary so the
// reschedule step always happens.
func (s *Scheduler) invoke(entry schedule.Entry) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("callback panicked: %v", r)
			s.cfg.Logger.Error("Callback failed", logger.LogMeta{
				"entry": entry.Label,
				"error": err.Error(),
			})
			s.emitError(events.CycleCallbackError, err, map[string]interface{}{
				"entry": entry.Label,
			})
		}
	}()
	if entry.Run != nil {
		entry.Run()
	}
}

// armLocked replaces the pending timer: cancel-old, arm-new, always in
// pairs so no timer dangles and none overlap.
func (s *Scheduler) armLocked(d time.Duration) {
	s.cancelLocked()
	s.handle = s.cfg.Timer.Arm(d, s.tick)
	s.cfg.Logger.Debug("Armed next cycle", logger.LogMeta{
		"delay": d.String(),
	})
}

func (s *Scheduler) cancelLocked() {
	if s.handle != nil {
		s.handle.Stop()
		s.handle = nil
	}
}

func (s *Scheduler) emit(t events.EventType, data map[string]interface{}) {
	if s.cfg.Events != nil {
		s.cfg.Events.Emit(t, data)
	}
}

func (s *Scheduler) emitError(t events.EventType, err error, data map[string]interface{}) {
	if s.cfg.Events != nil {
		s.cfg.Events.EmitError(t, err, data)
	}
}
