// Package solar computes the day's sunrise and sunset for a geographic
// location, expressed as fractional hours since local midnight.
package solar

import (
	"errors"
	"fmt"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// ErrNoSolarEvents indicates the sun does not rise or set on the requested
// day at the requested location (polar day or polar night).
var ErrNoSolarEvents = errors.New("no sunrise/sunset on this day at this location")

// Place is a geographic coordinate.
type Place struct {
	Latitude  float64
	Longitude float64
}

// Day holds one day's solar events as hours since local midnight, each in
// [0, 24). All entries of a scheduling cycle must resolve against the same
// Day so solar-based entries agree with each other.
type Day struct {
	SunriseFraction float64
	SunsetFraction  float64
}

// Provider yields the solar events for a given date and place. The date's
// location determines what "local midnight" means.
type Provider interface {
	EventsFor(date time.Time, place Place) (Day, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(date time.Time, place Place) (Day, error)

func (f ProviderFunc) EventsFor(date time.Time, place Place) (Day, error) {
	return f(date, place)
}

// Compute is the default Provider, backed by go-sunrise.
type Compute struct{}

// EventsFor returns the sunrise and sunset fractions for the calendar day
// of date, in date's location.
func (Compute) EventsFor(date time.Time, place Place) (Day, error) {
	rise, set := sunrise.SunriseSunset(
		place.Latitude, place.Longitude,
		date.Year(), date.Month(), date.Day())
	if rise.IsZero() || set.IsZero() {
		return Day{}, fmt.Errorf("%w: lat=%v long=%v date=%s",
			ErrNoSolarEvents, place.Latitude, place.Longitude,
			date.Format("2006-01-02"))
	}

	loc := date.Location()
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	day := Day{
		SunriseFraction: rise.In(loc).Sub(midnight).Hours(),
		SunsetFraction:  set.In(loc).Sub(midnight).Hours(),
	}
	if day.SunriseFraction < 0 || day.SunriseFraction >= 24 ||
		day.SunsetFraction < 0 || day.SunsetFraction >= 24 {
		// Extreme longitude/timezone mismatches can push an event outside
		// the local calendar day.
		return Day{}, fmt.Errorf("%w: event outside local day (rise=%.3fh set=%.3fh)",
			ErrNoSolarEvents, day.SunriseFraction, day.SunsetFraction)
	}
	return day, nil
}
