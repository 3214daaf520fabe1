package nutrition

import (
	"math"
	"time"
)

// Age is a chronological age derived from a birth date at a reference date.
type Age struct {
	Years       int `json:"years"`
	TotalMonths int `json:"totalMonths"`
}

// ComputeBMI returns weight / height(m)^2 rounded to two decimals.
// A zero or non-finite input yields 0.
func ComputeBMI(weightKG, heightCM float64) float64 {
	if heightCM == 0 || !isFinite(weightKG) || !isFinite(heightCM) {
		return 0
	}
	meters := heightCM / 100
	bmi := weightKG / (meters * meters)
	if !isFinite(bmi) {
		return 0
	}
	return round2(bmi)
}

// ComputeAge counts whole years and months between birthDate and ref. A partial
// month (ref day-of-month before the birth day-of-month) is not counted.
func ComputeAge(birthDate, ref time.Time) Age {
	by, bm, bd := birthDate.Date()
	ry, rm, rd := ref.Date()

	years := ry - by
	if rm < bm || (rm == bm && rd < bd) {
		years--
	}

	months := (ry-by)*12 + int(rm) - int(bm)
	if rd < bd {
		months--
	}

	return Age{Years: years, TotalMonths: months}
}

// AgeAt derives the age of a student at ref. The birth date wins when present;
// otherwise the stored age is used as-is. Students with neither have a zero age.
func AgeAt(birthDate *time.Time, storedAge *int, ref time.Time) Age {
	if birthDate != nil && !birthDate.IsZero() {
		return ComputeAge(*birthDate, ref)
	}
	if storedAge != nil {
		return Age{Years: *storedAge, TotalMonths: *storedAge * 12}
	}
	return Age{}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
