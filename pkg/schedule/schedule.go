// Package schedule implements the activation-selection core: it converts a
// table of time specifications into signed offsets from "now", picks the
// entry that is currently active (most recent point at or before now,
// wrapping across midnight), and computes the delay until the next
// transition (wrapping to tomorrow when today is exhausted).
package schedule

import (
	"sort"
	"time"

	"github.com/vherrmann/twilight/pkg/solar"
	"github.com/vherrmann/twilight/pkg/timespec"
)

// Callback is an opaque side-effecting action. At most one is invoked per
// activation cycle.
type Callback func()

// Entry pairs a time specification with the callback to activate at it.
type Entry struct {
	Label string
	Spec  timespec.TimeSpec
	Run   Callback
}

// OffsetEntry is a resolved schedule point shifted by -now. Offset is the
// raw signed difference in seconds, in (-SecondsPerDay, SecondsPerDay);
// negative means the point already passed today. Offsets are never wrapped:
// the negative/positive split is what SelectActive and NextDelay key on.
type OffsetEntry struct {
	Offset int
	Entry  Entry
}

// EntryError reports an entry that could not be resolved this cycle.
type EntryError struct {
	Entry Entry
	Err   error
}

func (e EntryError) Error() string {
	return e.Entry.Spec.String() + ": " + e.Err.Error()
}

func (e EntryError) Unwrap() error { return e.Err }

// Build resolves every table entry against one shared solar Day, subtracts
// now (a second-of-day) from each resolved second, and returns the offsets
// sorted ascending. Entries that fail to resolve are dropped and reported;
// they never abort the cycle. Equal offsets keep table order.
func Build(table []Entry, now int, day *solar.Day) ([]OffsetEntry, []EntryError) {
	offsets := make([]OffsetEntry, 0, len(table))
	var errs []EntryError
	for _, entry := range table {
		sec, err := entry.Spec.Resolve(day)
		if err != nil {
			errs = append(errs, EntryError{Entry: entry, Err: err})
			continue
		}
		offsets = append(offsets, OffsetEntry{Offset: sec - now, Entry: entry})
	}
	sort.SliceStable(offsets, func(i, j int) bool {
		return offsets[i].Offset < offsets[j].Offset
	})
	return offsets, errs
}

// SelectActive picks the entry whose offset is the closest-to-zero
// non-positive value: the most recently passed point. When every point is
// still ahead today, the latest point wins instead, understood as having
// last fired yesterday. Reports false only for an empty list. On equal
// offsets the earliest table entry wins.
func SelectActive(offsets []OffsetEntry) (Entry, bool) {
	i, ok := SelectActiveIndex(offsets)
	if !ok {
		return Entry{}, false
	}
	return offsets[i].Entry, true
}

// SelectActiveIndex is SelectActive returning the position in offsets
// instead of the entry, for callers that must tell apart entries sharing a
// label. Reports -1, false for an empty list.
func SelectActiveIndex(offsets []OffsetEntry) (int, bool) {
	if len(offsets) == 0 {
		return -1, false
	}

	best := -1
	for i, oe := range offsets {
		if oe.Offset > 0 {
			break
		}
		if best == -1 || oe.Offset > offsets[best].Offset {
			best = i
		}
	}
	if best == -1 {
		// Everything is ahead of us: yesterday's latest point still holds.
		max := offsets[len(offsets)-1].Offset
		for i, oe := range offsets {
			if oe.Offset == max {
				best = i
				break
			}
		}
	}
	return best, true
}

// NextDelay computes the time until the next transition: the smallest
// strictly-positive offset, or, when every point already passed today, the
// smallest offset rolled over to tomorrow. A one second safety margin is
// always added so the fired timer's "now" has strictly passed the target
// second. Reports false for an empty list; otherwise the result is > 0.
func NextDelay(offsets []OffsetEntry) (time.Duration, bool) {
	if len(offsets) == 0 {
		return 0, false
	}

	next := -1
	for _, oe := range offsets {
		if oe.Offset > 0 {
			next = oe.Offset
			break
		}
	}
	if next == -1 {
		next = offsets[0].Offset + timespec.SecondsPerDay
	}
	return time.Duration(next+1) * time.Second, true
}
