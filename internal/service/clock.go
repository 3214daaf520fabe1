package service

import "time"

// Clock reports the current instant. Services read "today" as the calendar day
// of the returned time in its own location.
type Clock func() time.Time

// SchoolClock returns wall time in the school's time zone. A nil loc means UTC.
func SchoolClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time {
		return time.Now().In(loc)
	}
}

// calendarDay maps t's local calendar day to midnight UTC, the shape DATE
// columns scan into.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
