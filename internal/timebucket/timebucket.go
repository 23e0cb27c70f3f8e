// Package timebucket converts detection instants and calendar dates into the
// operator's local hour and weekday. Every aggregate in the system buckets
// through a single Zone so hour and weekday views agree.
package timebucket

import (
	"errors"
	"fmt"
	"strings"
	"time"

	// the operator zone must resolve on hosts without zoneinfo
	_ "time/tzdata"
)

// DefaultZoneName is the operator zone of the Wasatch station.
const DefaultZoneName = "America/Denver"

const dateLayout = "2006-01-02"

// ErrMalformed is wrapped by every parse failure in this package.
var ErrMalformed = errors.New("malformed time value")

// instantLayouts are tried in order. Values without an offset are UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Bucket is a local hour (0-23) and weekday.
type Bucket struct {
	Hour    int
	Weekday time.Weekday
}

// Zone is the fixed civil-time rule used for all bucketing.
type Zone struct {
	loc *time.Location
}

// NewZone loads the named IANA zone.
func NewZone(name string) (Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("load zone %q: %w", name, err)
	}
	return Zone{loc: loc}, nil
}

// FromLocation wraps an already loaded location. A nil location means UTC.
func FromLocation(loc *time.Location) Zone {
	return Zone{loc: loc}
}

// Location returns the underlying location, UTC for the zero Zone.
func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

func (z Zone) String() string {
	return z.Location().String()
}

// Bucket returns the local hour and weekday of t.
func (z Zone) Bucket(t time.Time) Bucket {
	local := t.In(z.Location())
	return Bucket{Hour: local.Hour(), Weekday: local.Weekday()}
}

// BucketString parses a detection timestamp and buckets it.
func (z Zone) BucketString(s string) (Bucket, error) {
	t, err := ParseInstant(s)
	if err != nil {
		return Bucket{}, err
	}
	return z.Bucket(t), nil
}

// ParseInstant parses an RFC 3339 timestamp. Timestamps without an offset
// are taken as UTC, which is how the CMS stores them.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrMalformed)
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrMalformed, s)
}

// ParseDate reads a YYYY-MM-DD calendar day as local midnight in the zone.
func (z Zone) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), z.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformed, s)
	}
	return t, nil
}

// Weekday returns the weekday of a YYYY-MM-DD calendar day.
func (z Zone) Weekday(date string) (time.Weekday, error) {
	t, err := z.ParseDate(date)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// Today returns the current calendar day in the zone.
func (z Zone) Today(now time.Time) string {
	return now.In(z.Location()).Format(dateLayout)
}
