package models

import "time"

// SensorReading is the most recent weight/height pair pushed by a scale device.
type SensorReading struct {
	DeviceID   string    `json:"device_id"`
	WeightKG   float64   `json:"weight_kg"`
	HeightCM   float64   `json:"height_cm"`
	ReceivedAt time.Time `json:"received_at"`
}
