// Package timespec models a single schedule time: either a fixed clock time
// ("HH:MM" or "HH:MM:SS") or a symbolic solar marker ("sunrise"/"sunset")
// that resolves daily against the location's solar data.
package timespec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vherrmann/twilight/pkg/solar"
)

// SecondsPerDay is the length of the scheduling day.
const SecondsPerDay = 86400

var (
	// ErrMalformed indicates a time string that does not parse into a
	// TimeSpec. Surfaced at configuration-load time; the core never
	// re-validates parsed specs.
	ErrMalformed = errors.New("malformed time spec")

	// ErrUnresolvable indicates a solar marker that cannot be resolved for
	// today (e.g. polar day/night yields no sunrise).
	ErrUnresolvable = errors.New("unresolvable time spec")
)

// Kind discriminates the TimeSpec union.
type Kind int

const (
	KindFixed Kind = iota
	KindSunrise
	KindSunset
)

// TimeSpec is an immutable time specification. Hour/Minute/Second are only
// meaningful for KindFixed.
type TimeSpec struct {
	Kind   Kind
	Hour   int
	Minute int
	Second int
}

// Fixed constructs a fixed-clock-time spec. Components are not validated;
// use Parse for untrusted input.
func Fixed(hour, minute, second int) TimeSpec {
	return TimeSpec{Kind: KindFixed, Hour: hour, Minute: minute, Second: second}
}

// Sunrise is the symbolic sunrise marker.
func Sunrise() TimeSpec { return TimeSpec{Kind: KindSunrise} }

// Sunset is the symbolic sunset marker.
func Sunset() TimeSpec { return TimeSpec{Kind: KindSunset} }

// Parse converts a configuration string into a TimeSpec. Accepted forms:
// "sunrise", "sunset" (case-insensitive), "HH:MM" and "HH:MM:SS" (integer
// fields, seconds default to 0).
func Parse(s string) (TimeSpec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunrise":
		return Sunrise(), nil
	case "sunset":
		return Sunset(), nil
	}

	fields := strings.Split(strings.TrimSpace(s), ":")
	if len(fields) != 2 && len(fields) != 3 {
		return TimeSpec{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	parts := make([]int, 3)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return TimeSpec{}, fmt.Errorf("%w: %q: field %d is not an integer", ErrMalformed, s, i+1)
		}
		parts[i] = n
	}

	hour, minute, second := parts[0], parts[1], parts[2]
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return TimeSpec{}, fmt.Errorf("%w: %q: component out of range", ErrMalformed, s)
	}
	return Fixed(hour, minute, second), nil
}

// MustParse is Parse for trusted literals; it panics on error.
func MustParse(s string) TimeSpec {
	ts, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ts
}

// Resolve converts the spec into a second-of-day in [0, SecondsPerDay) for
// the day described by day. day may be nil when no solar data is available
// for the cycle; fixed specs still resolve, solar markers return
// ErrUnresolvable.
func (ts TimeSpec) Resolve(day *solar.Day) (int, error) {
	switch ts.Kind {
	case KindFixed:
		return ts.Hour*3600 + ts.Minute*60 + ts.Second, nil
	case KindSunrise, KindSunset:
		if day == nil {
			return 0, fmt.Errorf("%w: %s: no solar data for today", ErrUnresolvable, ts)
		}
		f := day.SunriseFraction
		if ts.Kind == KindSunset {
			f = day.SunsetFraction
		}
		if f < 0 || f >= 24 || math.IsNaN(f) {
			return 0, fmt.Errorf("%w: %s: fraction %v outside [0,24)", ErrUnresolvable, ts, f)
		}
		// Floor, not round: today's solar event must not spill into the
		// next second early.
		return int(math.Floor(f / 24 * SecondsPerDay)), nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %d", ErrUnresolvable, ts.Kind)
	}
}

// String renders the spec in its configuration form.
func (ts TimeSpec) String() string {
	switch ts.Kind {
	case KindSunrise:
		return "sunrise"
	case KindSunset:
		return "sunset"
	default:
		return fmt.Sprintf("%02d:%02d:%02d", ts.Hour, ts.Minute, ts.Second)
	}
}
