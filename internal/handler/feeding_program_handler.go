package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
	"github.com/noah-isme/school-health-api/pkg/response"
)

type feedingProgramService interface {
	List(ctx context.Context, filter models.FeedingProgramFilter) ([]dto.FeedingProgramResponse, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.FeedingProgramResponse, error)
	Create(ctx context.Context, req dto.FeedingProgramRequest) (*dto.FeedingProgramResponse, error)
	Update(ctx context.Context, id string, req dto.FeedingProgramRequest) (*dto.FeedingProgramResponse, error)
	End(ctx context.Context, id string) (*dto.FeedingProgramResponse, error)
	AddBeneficiaries(ctx context.Context, programID string, req dto.AddBeneficiariesRequest) ([]models.Beneficiary, error)
	RemoveBeneficiary(ctx context.Context, programID, studentID string) error
	RecordAttendance(ctx context.Context, programID string, req dto.FeedingAttendanceRequest) (*models.FeedingAttendance, error)
	Eligible(ctx context.Context, programID string, scope nutrition.ExclusionScope, gradeLevel string) ([]dto.EligibleStudentResponse, error)
	Detail(ctx context.Context, programID string) (*dto.FeedingProgramDetail, error)
}

// FeedingProgramHandler exposes feeding program management.
type FeedingProgramHandler struct {
	service feedingProgramService
}

// NewFeedingProgramHandler constructs FeedingProgramHandler.
func NewFeedingProgramHandler(service feedingProgramService) *FeedingProgramHandler {
	return &FeedingProgramHandler{service: service}
}

// List godoc
// @Summary List feeding programs
// @Tags FeedingPrograms
// @Produce json
// @Param status query string false "Stored status (active, ended)"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /feeding-programs [get]
func (h *FeedingProgramHandler) List(c *gin.Context) {
	filter := models.FeedingProgramFilter{
		Status: models.ProgramStatus(strings.TrimSpace(c.Query("status"))),
		Search: strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	programs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, pagination)
}

// Get godoc
// @Summary Get feeding program
// @Tags FeedingPrograms
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /feeding-programs/{id} [get]
func (h *FeedingProgramHandler) Get(c *gin.Context) {
	program, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// Create godoc
// @Summary Create feeding program
// @Tags FeedingPrograms
// @Accept json
// @Produce json
// @Param payload body dto.FeedingProgramRequest true "Program payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /feeding-programs [post]
func (h *FeedingProgramHandler) Create(c *gin.Context) {
	var req dto.FeedingProgramRequest
	if !bindJSON(c, &req, "invalid program payload") {
		return
	}
	program, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, program)
}

// Update godoc
// @Summary Update feeding program
// @Tags FeedingPrograms
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body dto.FeedingProgramRequest true "Program payload"
// @Success 200 {object} response.Envelope
// @Router /feeding-programs/{id} [put]
func (h *FeedingProgramHandler) Update(c *gin.Context) {
	var req dto.FeedingProgramRequest
	if !bindJSON(c, &req, "invalid program payload") {
		return
	}
	program, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// End godoc
// @Summary End feeding program
// @Tags FeedingPrograms
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /feeding-programs/{id}/end [post]
func (h *FeedingProgramHandler) End(c *gin.Context) {
	program, err := h.service.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// Detail godoc
// @Summary Program roster with growth outcomes
// @Tags FeedingPrograms
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /feeding-programs/{id}/detail [get]
func (h *FeedingProgramHandler) Detail(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// AddBeneficiaries godoc
// @Summary Enroll students into a program
// @Tags FeedingPrograms
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body dto.AddBeneficiariesRequest true "Students"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /feeding-programs/{id}/beneficiaries [post]
func (h *FeedingProgramHandler) AddBeneficiaries(c *gin.Context) {
	var req dto.AddBeneficiariesRequest
	if !bindJSON(c, &req, "invalid beneficiaries payload") {
		return
	}
	rows, err := h.service.AddBeneficiaries(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rows)
}

// RemoveBeneficiary godoc
// @Summary Remove a beneficiary
// @Tags FeedingPrograms
// @Param id path string true "Program ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /feeding-programs/{id}/beneficiaries/{studentId} [delete]
func (h *FeedingProgramHandler) RemoveBeneficiary(c *gin.Context) {
	if err := h.service.RemoveBeneficiary(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordAttendance godoc
// @Summary Mark a feeding day
// @Tags FeedingPrograms
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body dto.FeedingAttendanceRequest true "Attendance"
// @Success 200 {object} response.Envelope
// @Router /feeding-programs/{id}/attendance [post]
func (h *FeedingProgramHandler) RecordAttendance(c *gin.Context) {
	var req dto.FeedingAttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	row, err := h.service.RecordAttendance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Eligible godoc
// @Summary Students eligible for feeding
// @Tags FeedingPrograms
// @Produce json
// @Param scope query string false "global (default) or program"
// @Param programId query string false "Program ID, required for program scope"
// @Param gradeLevel query string false "Grade level"
// @Success 200 {object} response.Envelope
// @Router /eligible-students [get]
func (h *FeedingProgramHandler) Eligible(c *gin.Context) {
	scope := nutrition.ExclusionScope(strings.ToLower(strings.TrimSpace(c.Query("scope"))))
	rows, err := h.service.Eligible(c.Request.Context(), strings.TrimSpace(c.Query("programId")), scope, strings.TrimSpace(c.Query("gradeLevel")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
