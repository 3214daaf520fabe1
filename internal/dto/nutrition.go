package dto

import (
	"time"

	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
)

// RecordMeasurementRequest is the payload for a manual weigh-in.
type RecordMeasurementRequest struct {
	WeightKG   float64    `json:"weightKg" validate:"required,gt=0"`
	HeightCM   float64    `json:"heightCm" validate:"required,gt=0"`
	MeasuredAt *time.Time `json:"measuredAt,omitempty"`
}

// MeasurementResponse is a stored measurement with its derived classification.
type MeasurementResponse struct {
	models.Measurement
	Age    nutrition.Age              `json:"age"`
	Status nutrition.ClassifiedStatus `json:"status"`
}

// SensorReadingRequest is pushed by a scale bridge.
type SensorReadingRequest struct {
	DeviceID string  `json:"deviceId" validate:"required,max=64"`
	WeightKG float64 `json:"weightKg" validate:"required,gt=0"`
	HeightCM float64 `json:"heightCm" validate:"required,gt=0"`
}

// CommitReadingRequest assigns the latest device reading to a student.
type CommitReadingRequest struct {
	StudentID string `json:"studentId" validate:"required,uuid"`
}

// StudentStatusResponse is a student together with its current classification.
type StudentStatusResponse struct {
	models.Student
	Current *MeasurementResponse `json:"current,omitempty"`
}
