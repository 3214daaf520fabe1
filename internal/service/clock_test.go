package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchoolClockLocation(t *testing.T) {
	zone := time.FixedZone("UTC+8", 8*60*60)
	assert.Equal(t, zone, SchoolClock(zone)().Location())
	assert.Equal(t, time.UTC, SchoolClock(nil)().Location())
}

func TestCalendarDayUsesLocalDate(t *testing.T) {
	instant := time.Date(2026, time.March, 31, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC), calendarDay(instant))

	local := instant.In(time.FixedZone("UTC+8", 8*60*60))
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), calendarDay(local))
}
