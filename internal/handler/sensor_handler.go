package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/pkg/response"
)

type sensorService interface {
	Ingest(ctx context.Context, req dto.SensorReadingRequest) (*models.SensorReading, error)
	Latest(ctx context.Context, deviceID string) (*models.SensorReading, error)
	Commit(ctx context.Context, deviceID string, req dto.CommitReadingRequest, recordedBy string) (*dto.MeasurementResponse, error)
}

// SensorHandler bridges scale devices to measurements.
type SensorHandler struct {
	service sensorService
}

// NewSensorHandler constructs SensorHandler.
func NewSensorHandler(service sensorService) *SensorHandler {
	return &SensorHandler{service: service}
}

// Ingest godoc
// @Summary Push a scale reading
// @Tags Sensor
// @Accept json
// @Produce json
// @Param payload body dto.SensorReadingRequest true "Reading"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sensor/readings [post]
func (h *SensorHandler) Ingest(c *gin.Context) {
	var req dto.SensorReadingRequest
	if !bindJSON(c, &req, "invalid reading payload") {
		return
	}
	reading, err := h.service.Ingest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, reading)
}

// Latest godoc
// @Summary Latest pending reading for a device
// @Tags Sensor
// @Produce json
// @Param deviceId path string true "Device ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sensor/readings/{deviceId} [get]
func (h *SensorHandler) Latest(c *gin.Context) {
	reading, err := h.service.Latest(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reading, nil)
}

// Commit godoc
// @Summary Assign the pending reading to a student
// @Tags Sensor
// @Accept json
// @Produce json
// @Param deviceId path string true "Device ID"
// @Param payload body dto.CommitReadingRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sensor/readings/{deviceId}/commit [post]
func (h *SensorHandler) Commit(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		return
	}
	var req dto.CommitReadingRequest
	if !bindJSON(c, &req, "invalid commit payload") {
		return
	}
	res, err := h.service.Commit(c.Request.Context(), c.Param("deviceId"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
