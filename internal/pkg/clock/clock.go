// internal/pkg/clock/clock.go
package clock

import "time"

// Clock is the single source of wall-clock time. Services never call time.Now.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in a fixed business timezone.
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	return time.Now().In(s.Location)
}

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Day returns the calendar date of t, as read in t's own location, normalized to
// midnight UTC. Calendar dates are compared and stored in this form.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayIn is Day of t as seen from loc.
func DayIn(t time.Time, loc *time.Location) time.Time {
	return Day(t.In(loc))
}

// DaysBetween counts calendar days from one date to another.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// Bounds returns the half-open instant range [start, end) covering calendar days
// firstDay..lastDay in loc.
func Bounds(firstDay, lastDay time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := firstDay.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	y, m, d = lastDay.Date()
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return start, end
}
