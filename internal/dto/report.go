package dto

import (
	"time"

	"github.com/noah-isme/school-health-api/internal/models"
)

// ReportRequest captures POST /reports payload.
type ReportRequest struct {
	Type       models.ReportType   `json:"type" validate:"required,oneof=nutritional_status feeding_program"`
	Format     models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	GradeLevel *string             `json:"gradeLevel,omitempty"`
	ProgramID  *string             `json:"programId,omitempty" validate:"omitempty,uuid"`
	AsOf       *time.Time          `json:"asOf,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Type       models.ReportType   `json:"type"`
	Status     models.ReportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
}
