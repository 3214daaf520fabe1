package nutrition

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeBMI(t *testing.T) {
	assert.Equal(t, 13.33, ComputeBMI(30, 150))
	assert.Equal(t, 15.51, ComputeBMI(14, 95))
	assert.Equal(t, 20.0, ComputeBMI(20, 100))
}

func TestComputeBMIDegenerateInput(t *testing.T) {
	assert.Equal(t, 0.0, ComputeBMI(30, 0))
	assert.Equal(t, 0.0, ComputeBMI(math.NaN(), 120))
	assert.Equal(t, 0.0, ComputeBMI(30, math.Inf(1)))
	assert.NotPanics(t, func() { ComputeBMI(0, 0) })
}

func TestComputeAge(t *testing.T) {
	tests := []struct {
		name   string
		birth  time.Time
		ref    time.Time
		years  int
		months int
	}{
		{name: "after birthday", birth: date(2018, 1, 10), ref: date(2024, 6, 1), years: 6, months: 76},
		{name: "day before birthday", birth: date(2018, 6, 10), ref: date(2024, 6, 9), years: 5, months: 71},
		{name: "on birthday", birth: date(2018, 6, 10), ref: date(2024, 6, 10), years: 6, months: 72},
		{name: "earlier month", birth: date(2018, 9, 1), ref: date(2024, 3, 15), years: 5, months: 66},
		{name: "reference before birth", birth: date(2024, 1, 1), ref: date(2023, 1, 1), years: -1, months: -12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeAge(tt.birth, tt.ref)
			assert.Equal(t, tt.years, got.Years)
			assert.Equal(t, tt.months, got.TotalMonths)
		})
	}
}

func TestAgeAtPrefersBirthDate(t *testing.T) {
	birth := date(2015, 5, 20)
	stored := 3
	got := AgeAt(&birth, &stored, date(2024, 5, 20))
	assert.Equal(t, 9, got.Years)

	got = AgeAt(nil, &stored, date(2024, 5, 20))
	assert.Equal(t, Age{Years: 3, TotalMonths: 36}, got)

	assert.Equal(t, Age{}, AgeAt(nil, nil, date(2024, 5, 20)))
}
