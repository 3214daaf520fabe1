package nutrition

import (
	"time"

	"github.com/noah-isme/school-health-api/internal/models"
)

// LatestPerStudent keeps the most recent measurement of every student. Input
// order does not matter except between records sharing a timestamp, where the
// first one seen is kept.
func LatestPerStudent(measurements []models.Measurement) map[string]models.Measurement {
	latest := make(map[string]models.Measurement)
	for _, m := range measurements {
		best, ok := latest[m.StudentID]
		if !ok || m.MeasuredAt.After(best.MeasuredAt) {
			latest[m.StudentID] = m
		}
	}
	return latest
}

// LatestAtOrBefore returns the most recent measurement of studentID taken no
// later than cutoff. It never falls back to a later record.
func LatestAtOrBefore(measurements []models.Measurement, studentID string, cutoff time.Time) (models.Measurement, bool) {
	var (
		best  models.Measurement
		found bool
	)
	for _, m := range measurements {
		if m.StudentID != studentID || m.MeasuredAt.After(cutoff) {
			continue
		}
		if !found || m.MeasuredAt.After(best.MeasuredAt) {
			best = m
			found = true
		}
	}
	return best, found
}

// EndOfDay returns the last instant of t's calendar day, used to turn an
// enrollment date into an inclusive baseline cutoff.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
