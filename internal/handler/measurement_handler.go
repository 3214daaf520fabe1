package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/pkg/response"
)

type measurementService interface {
	Record(ctx context.Context, studentID string, req dto.RecordMeasurementRequest, source models.MeasurementSource, recordedBy string) (*dto.MeasurementResponse, error)
	History(ctx context.Context, studentID string) ([]dto.MeasurementResponse, error)
	Current(ctx context.Context, studentID string) (*dto.StudentStatusResponse, error)
}

// MeasurementHandler exposes weigh-in endpoints nested under a student.
type MeasurementHandler struct {
	service measurementService
}

// NewMeasurementHandler constructs MeasurementHandler.
func NewMeasurementHandler(service measurementService) *MeasurementHandler {
	return &MeasurementHandler{service: service}
}

// Record godoc
// @Summary Record a manual measurement
// @Tags Measurements
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.RecordMeasurementRequest true "Weight and height"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/measurements [post]
func (h *MeasurementHandler) Record(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordMeasurementRequest
	if !bindJSON(c, &req, "invalid measurement payload") {
		return
	}
	res, err := h.service.Record(c.Request.Context(), c.Param("id"), req, models.MeasurementSourceManual, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// History godoc
// @Summary Measurement history
// @Tags Measurements
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/measurements [get]
func (h *MeasurementHandler) History(c *gin.Context) {
	rows, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Current godoc
// @Summary Current nutritional status
// @Tags Measurements
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/status [get]
func (h *MeasurementHandler) Current(c *gin.Context) {
	status, err := h.service.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
