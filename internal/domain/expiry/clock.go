package expiry

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of a civil date.
const DateLayout = "2006-01-02"

// Clock provides the current instant. Domain and application code never call
// time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time. Only cmd/ wiring should construct it.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// FuncClock adapts a function to Clock.
type FuncClock func() time.Time

// Now calls f.
func (f FuncClock) Now() time.Time { return f() }

var (
	_ Clock = SystemClock{}
	_ Clock = FixedClock{}
	_ Clock = FuncClock(nil)
)

// Calendar turns instants into civil days of one fixed timezone, so "today"
// does not depend on the caller's local clock or the server's TZ.
//
// A civil date is represented as a time.Time at 00:00 UTC carrying the
// calendar Y-M-D. Differences between two civil dates are therefore whole
// multiples of 24h even across DST changes in the configured zone.
type Calendar struct {
	clock Clock
	loc   *time.Location
}

// NewCalendar returns a Calendar for loc. A nil loc means UTC.
func NewCalendar(clock Clock, loc *time.Location) *Calendar {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{clock: clock, loc: loc}
}

// LoadCalendar resolves an IANA zone name such as "Europe/Berlin".
func LoadCalendar(clock Clock, zone string) (*Calendar, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("expiry: unknown timezone %q: %w", zone, err)
	}
	return NewCalendar(clock, loc), nil
}

// Location returns the configured zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current instant in the configured zone.
func (c *Calendar) Now() time.Time { return c.clock.Now().In(c.loc) }

// Today returns the current civil date.
func (c *Calendar) Today() time.Time { return c.DayOf(c.clock.Now()) }

// DayOf returns the civil date on which instant t falls in the configured zone.
func (c *Calendar) DayOf(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return Date(y, m, d)
}

// IsToday reports whether instant t falls on today's civil date.
func (c *Calendar) IsToday(t time.Time) bool {
	return c.DayOf(t).Equal(c.Today())
}

// DayBounds returns the half-open instant range [start, end) covering civil
// date day in the configured zone.
func (c *Calendar) DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, c.loc)
	end := time.Date(y, m, d+1, 0, 0, 0, 0, c.loc)
	return start, end
}

// Date builds a civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly drops the clock part of t, keeping the Y-M-D as seen in t's own
// location. Stored expiry dates are normalised through it.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// DaysBetween returns to - from in whole civil days. It counts in Unix
// seconds so distances past the time.Duration range stay exact.
func DaysBetween(from, to time.Time) int {
	return int((DateOnly(to).Unix() - DateOnly(from).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60
