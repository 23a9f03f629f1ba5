// Package clock supplies wall-clock readings normalized to the platform's
// home timezone and derives the calendar bucket keys used to partition
// hourly snapshots.
package clock

import "time"

// HomeTimezone is the civil timezone all bucket keys are derived in,
// independent of the host machine's timezone.
const HomeTimezone = "Asia/Ho_Chi_Minh"

// Clock returns the current instant. Implementations must return times
// already normalized to HomeTimezone so bucket assignment is reproducible.
type Clock interface {
	Now() time.Time
}

type zoneClock struct {
	loc *time.Location
}

// New returns a Clock bound to HomeTimezone.
func New() (Clock, error) {
	loc, err := time.LoadLocation(HomeTimezone)
	if err != nil {
		return nil, err
	}
	return &zoneClock{loc: loc}, nil
}

func (c *zoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// DateKey returns the calendar-date bucket key (YYYY-MM-DD) for t.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// HourKey returns the zero-padded hour-of-day bucket key (00-23) for t.
func HourKey(t time.Time) string {
	return t.Format("15")
}

// Fixed returns a Clock that always reports t. Test helper.
func Fixed(t time.Time) Clock {
	return fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time {
	return c.t
}
