package scheduler

import "time"

// Timer is the host timer primitive: arm a one-shot callback after a delay.
// Injected so tests can fire cycles manually.
type Timer interface {
	Arm(d time.Duration, fn func()) Handle
}

// Handle cancels a pending arm. Stopping an already-fired handle is a no-op.
type Handle interface {
	Stop()
}

// RealTimer arms real time.AfterFunc timers.
type RealTimer struct{}

func (RealTimer) Arm(d time.Duration, fn func()) Handle {
	return realHandle{t: time.AfterFunc(d, fn)}
}

type realHandle struct {
	t *time.Timer
}

func (h realHandle) Stop() {
	h.t.Stop()
}
