// Package suncalc computes sunrise and sunset for the station so the hourly
// chart can shade daylight hours.
package suncalc

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

const dateKeyLayout = "2006-01-02"

// SunEventTimes holds the sun events of one calendar day in local time.
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// SunCalc calculates and caches sun event times per local calendar day.
type SunCalc struct {
	cache    map[string]SunEventTimes
	lock     sync.RWMutex
	observer astral.Observer
	loc      *time.Location
}

// NewSunCalc creates a calculator for the given position. Results are
// expressed in loc, UTC when nil.
func NewSunCalc(latitude, longitude float64, loc *time.Location) *SunCalc {
	if loc == nil {
		loc = time.UTC
	}
	return &SunCalc{
		cache:    make(map[string]SunEventTimes),
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
		loc:      loc,
	}
}

// GetSunEventTimes returns the sun events for the local calendar day of date.
func (sc *SunCalc) GetSunEventTimes(date time.Time) (SunEventTimes, error) {
	local := date.In(sc.loc)
	key := local.Format(dateKeyLayout)

	sc.lock.RLock()
	times, ok := sc.cache[key]
	sc.lock.RUnlock()
	if ok {
		return times, nil
	}

	// astral works on the calendar date, so anchor at local noon
	noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, sc.loc)
	times, err := sc.calculate(noon)
	if err != nil {
		return SunEventTimes{}, err
	}

	sc.lock.Lock()
	sc.cache[key] = times
	sc.lock.Unlock()

	return times, nil
}

func (sc *SunCalc) calculate(date time.Time) (SunEventTimes, error) {
	civilDawn, err := astral.Dawn(sc.observer, date, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dawn: %w", err)
	}
	sunrise, err := astral.Sunrise(sc.observer, date)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunrise: %w", err)
	}
	sunset, err := astral.Sunset(sc.observer, date)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunset: %w", err)
	}
	civilDusk, err := astral.Dusk(sc.observer, date, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dusk: %w", err)
	}

	return SunEventTimes{
		CivilDawn: onDay(civilDawn.In(sc.loc), date),
		Sunrise:   onDay(sunrise.In(sc.loc), date),
		Sunset:    onDay(sunset.In(sc.loc), date),
		CivilDusk: onDay(civilDusk.In(sc.loc), date),
	}, nil
}

// onDay moves t by whole days onto day's calendar date. Events west of
// Greenwich can come back stamped with the neighbouring UTC date.
func onDay(t, day time.Time) time.Time {
	want := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	got := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return t.AddDate(0, 0, int(want.Sub(got).Hours()/24))
}

// DaylightHours returns sunrise and sunset as fractional local hours,
// e.g. 5.95 and 20.97.
func (sc *SunCalc) DaylightHours(date time.Time) (sunrise, sunset float64, err error) {
	times, err := sc.GetSunEventTimes(date)
	if err != nil {
		return 0, 0, err
	}
	return fractionalHour(times.Sunrise), fractionalHour(times.Sunset), nil
}

func fractionalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}
