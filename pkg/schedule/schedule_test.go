package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vherrmann/twilight/pkg/solar"
	"github.com/vherrmann/twilight/pkg/timespec"
)

func fixedEntry(label, at string) Entry {
	return Entry{Label: label, Spec: timespec.MustParse(at)}
}

func secondOfDay(h, m, s int) int {
	return h*3600 + m*60 + s
}

func TestBuildSortsAscending(t *testing.T) {
	table := []Entry{
		fixedEntry("B", "20:00"),
		fixedEntry("A", "08:00"),
		fixedEntry("C", "12:00"),
	}

	offsets, errs := Build(table, secondOfDay(10, 0, 0), nil)
	require.Empty(t, errs)
	require.Len(t, offsets, 3)

	assert.Equal(t, "A", offsets[0].Entry.Label)
	assert.Equal(t, -2*3600, offsets[0].Offset)
	assert.Equal(t, "C", offsets[1].Entry.Label)
	assert.Equal(t, 2*3600, offsets[1].Offset)
	assert.Equal(t, "B", offsets[2].Entry.Label)
	assert.Equal(t, 10*3600, offsets[2].Offset)
}

func TestBuildKeepsTableOrderOnEqualOffsets(t *testing.T) {
	table := []Entry{
		fixedEntry("first", "09:00"),
		fixedEntry("second", "09:00"),
	}

	offsets, errs := Build(table, secondOfDay(9, 0, 0), nil)
	require.Empty(t, errs)
	require.Len(t, offsets, 2)
	assert.Equal(t, "first", offsets[0].Entry.Label)
	assert.Equal(t, "second", offsets[1].Entry.Label)
}

func TestBuildDropsUnresolvableEntries(t *testing.T) {
	table := []Entry{
		fixedEntry("fixed", "08:00"),
		{Label: "rise", Spec: timespec.Sunrise()},
	}

	// No solar data: the sunrise entry is dropped, the fixed one survives.
	offsets, errs := Build(table, secondOfDay(10, 0, 0), nil)
	require.Len(t, offsets, 1)
	assert.Equal(t, "fixed", offsets[0].Entry.Label)

	require.Len(t, errs, 1)
	assert.Equal(t, "rise", errs[0].Entry.Label)
	assert.ErrorIs(t, errs[0], timespec.ErrUnresolvable)
}

func TestBuildSharesOneSolarDay(t *testing.T) {
	day := &solar.Day{SunriseFraction: 6.5, SunsetFraction: 18.25}
	table := []Entry{
		{Label: "rise", Spec: timespec.Sunrise()},
		{Label: "set", Spec: timespec.Sunset()},
	}

	offsets, errs := Build(table, 0, day)
	require.Empty(t, errs)
	require.Len(t, offsets, 2)
	assert.Equal(t, 23400, offsets[0].Offset)
	assert.Equal(t, 65700, offsets[1].Offset)
}

// Midnight wraparound: schedule {08:00->A, 20:00->B}, now 07:00. Yesterday's
// 20:00 still holds, next transition is 08:00.
func TestMidnightWraparound(t *testing.T) {
	table := []Entry{
		fixedEntry("A", "08:00"),
		fixedEntry("B", "20:00"),
	}

	offsets, _ := Build(table, secondOfDay(7, 0, 0), nil)

	active, ok := SelectActive(offsets)
	require.True(t, ok)
	assert.Equal(t, "B", active.Label)

	delay, ok := NextDelay(offsets)
	require.True(t, ok)
	assert.Equal(t, 3600*time.Second+time.Second, delay)
}

// Mid-cycle: same schedule, now 10:00. 08:00 is the most recent point, next
// transition is 20:00.
func TestMidCycle(t *testing.T) {
	table := []Entry{
		fixedEntry("A", "08:00"),
		fixedEntry("B", "20:00"),
	}

	offsets, _ := Build(table, secondOfDay(10, 0, 0), nil)

	active, ok := SelectActive(offsets)
	require.True(t, ok)
	assert.Equal(t, "A", active.Label)

	delay, ok := NextDelay(offsets)
	require.True(t, ok)
	assert.Equal(t, 36000*time.Second+time.Second, delay)
}

// All points passed today: the latest one is active and the earliest rolls
// to tomorrow.
func TestAllPointsPassed(t *testing.T) {
	table := []Entry{
		fixedEntry("A", "08:00"),
		fixedEntry("B", "20:00"),
	}

	offsets, _ := Build(table, secondOfDay(21, 0, 0), nil)

	active, ok := SelectActive(offsets)
	require.True(t, ok)
	assert.Equal(t, "B", active.Label)

	delay, ok := NextDelay(offsets)
	require.True(t, ok)
	// 11h until tomorrow's 08:00, plus the safety margin.
	assert.Equal(t, 11*3600*time.Second+time.Second, delay)
}

// Single-entry wraparound: sunrise at 06:30, now 05:00. Yesterday's sunrise
// is still active, next transition is today's.
func TestSingleEntryWraparound(t *testing.T) {
	day := &solar.Day{SunriseFraction: 6.5, SunsetFraction: 18}
	table := []Entry{{Label: "A", Spec: timespec.Sunrise()}}

	offsets, _ := Build(table, secondOfDay(5, 0, 0), day)

	active, ok := SelectActive(offsets)
	require.True(t, ok)
	assert.Equal(t, "A", active.Label)

	delay, ok := NextDelay(offsets)
	require.True(t, ok)
	assert.Equal(t, 5400*time.Second+time.Second, delay)
}

// Single entry, already passed: both branches degenerate to "wait until
// tomorrow's same point".
func TestSingleEntryPassed(t *testing.T) {
	table := []Entry{fixedEntry("A", "06:00")}

	offsets, _ := Build(table, secondOfDay(9, 0, 0), nil)

	active, ok := SelectActive(offsets)
	require.True(t, ok)
	assert.Equal(t, "A", active.Label)

	delay, ok := NextDelay(offsets)
	require.True(t, ok)
	assert.Equal(t, 21*3600*time.Second+time.Second, delay)
}

// A point exactly at now (offset zero) is the active one and does not count
// as the next transition.
func TestExactNowIsActive(t *testing.T) {
	table := []Entry{
		fixedEntry("A", "08:00"),
		fixedEntry("B", "20:00"),
	}

	offsets, _ := Build(table, secondOfDay(8, 0, 0), nil)

	active, ok := SelectActive(offsets)
	require.True(t, ok)
	assert.Equal(t, "A", active.Label)

	delay, ok := NextDelay(offsets)
	require.True(t, ok)
	assert.Equal(t, 12*3600*time.Second+time.Second, delay)
}

// Exact-second collision: the selector is deterministic and stable across
// repeated runs with identical input.
func TestCollisionDeterministic(t *testing.T) {
	table := []Entry{
		fixedEntry("first", "09:00"),
		fixedEntry("second", "09:00"),
	}

	for i := 0; i < 50; i++ {
		offsets, _ := Build(table, secondOfDay(10, 0, 0), nil)
		active, ok := SelectActive(offsets)
		require.True(t, ok)
		assert.Equal(t, "first", active.Label)
	}

	// Same for the everything-ahead fallback branch.
	for i := 0; i < 50; i++ {
		offsets, _ := Build(table, secondOfDay(8, 0, 0), nil)
		active, ok := SelectActive(offsets)
		require.True(t, ok)
		assert.Equal(t, "first", active.Label)
	}
}

// Entries may share a label; the index identifies exactly one of them.
func TestSelectActiveIndexDistinguishesDuplicateLabels(t *testing.T) {
	table := []Entry{
		fixedEntry("theme", "08:00"),
		fixedEntry("theme", "20:00"),
	}

	offsets, errs := Build(table, secondOfDay(10, 0, 0), nil)
	require.Empty(t, errs)

	idx, ok := SelectActiveIndex(offsets)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, timespec.MustParse("08:00"), offsets[idx].Entry.Spec)

	active, ok := SelectActive(offsets)
	require.True(t, ok)
	assert.Equal(t, offsets[idx].Entry, active)
}

func TestSelectActiveIndexEmpty(t *testing.T) {
	idx, ok := SelectActiveIndex(nil)
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
}

func TestEmptySchedule(t *testing.T) {
	offsets, errs := Build(nil, secondOfDay(10, 0, 0), nil)
	assert.Empty(t, offsets)
	assert.Empty(t, errs)

	_, ok := SelectActive(offsets)
	assert.False(t, ok)

	_, ok = NextDelay(offsets)
	assert.False(t, ok)
}

// For every non-empty schedule and any now, SelectActive returns an entry
// from the table and NextDelay is strictly positive.
func TestSelectionAndDelayProperties(t *testing.T) {
	table := []Entry{
		fixedEntry("A", "00:00"),
		fixedEntry("B", "06:30:15"),
		fixedEntry("C", "13:45"),
		fixedEntry("D", "23:59:59"),
	}
	labels := map[string]bool{"A": true, "B": true, "C": true, "D": true}

	for now := 0; now < timespec.SecondsPerDay; now += 977 {
		offsets, errs := Build(table, now, nil)
		require.Empty(t, errs)

		active, ok := SelectActive(offsets)
		require.True(t, ok, "now=%d", now)
		assert.True(t, labels[active.Label], "now=%d: %q not in table", now, active.Label)

		delay, ok := NextDelay(offsets)
		require.True(t, ok, "now=%d", now)
		assert.Greater(t, delay, time.Duration(0), "now=%d", now)
		assert.LessOrEqual(t, delay, (timespec.SecondsPerDay+1)*time.Second, "now=%d", now)
	}
}
