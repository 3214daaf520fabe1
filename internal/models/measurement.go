package models

import "time"

// MeasurementSource identifies how a weigh-in was captured.
type MeasurementSource string

const (
	MeasurementSourceManual MeasurementSource = "manual"
	MeasurementSourceSensor MeasurementSource = "sensor"
)

// Measurement is an immutable weigh-in record. Newer rows supersede older ones.
type Measurement struct {
	ID         string            `db:"id" json:"id"`
	StudentID  string            `db:"student_id" json:"student_id"`
	WeightKG   float64           `db:"weight_kg" json:"weight_kg"`
	HeightCM   float64           `db:"height_cm" json:"height_cm"`
	Source     MeasurementSource `db:"source" json:"source"`
	MeasuredAt time.Time         `db:"measured_at" json:"measured_at"`
	RecordedBy *string           `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

// MeasurementFilter narrows measurement snapshots loaded for aggregation.
// Without StudentIDs only active students are included.
type MeasurementFilter struct {
	StudentIDs []string
	GradeLevel string
	Before     *time.Time
}

// StudentMeasurement joins a measurement with the student it belongs to.
type StudentMeasurement struct {
	Measurement
	FullName   string     `db:"full_name" json:"full_name"`
	GradeLevel string     `db:"grade_level" json:"grade_level"`
	BirthDate  *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Age        *int       `db:"age" json:"age,omitempty"`
}
