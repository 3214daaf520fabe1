package dto

import (
	"time"

	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
)

// FeedingProgramRequest creates or updates a program.
type FeedingProgramRequest struct {
	Name        string     `json:"name" validate:"required,max=150"`
	Description string     `json:"description" validate:"max=1000"`
	StartDate   time.Time  `json:"startDate" validate:"required"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// FeedingProgramResponse decorates a program with its derived state.
type FeedingProgramResponse struct {
	models.FeedingProgram
	EffectiveStatus  models.ProgramStatus `json:"effective_status"`
	BeneficiaryCount *int                 `json:"beneficiary_count,omitempty"`
}

// AddBeneficiariesRequest enrolls students into a program.
type AddBeneficiariesRequest struct {
	StudentIDs     []string   `json:"studentIds" validate:"required,min=1,dive,uuid"`
	EnrollmentDate *time.Time `json:"enrollmentDate,omitempty"`
}

// FeedingAttendanceRequest marks one feeding day for a beneficiary.
type FeedingAttendanceRequest struct {
	StudentID string    `json:"studentId" validate:"required,uuid"`
	Date      time.Time `json:"date" validate:"required"`
	Present   bool      `json:"present"`
}

// EligibleStudentResponse is one row of an eligibility listing.
type EligibleStudentResponse struct {
	StudentID  string                     `json:"studentId"`
	FullName   string                     `json:"fullName"`
	GradeLevel string                     `json:"gradeLevel"`
	Section    string                     `json:"section"`
	Tier       nutrition.Tier             `json:"tier"`
	Status     nutrition.ClassifiedStatus `json:"status"`
	MeasuredAt time.Time                  `json:"measuredAt"`
}

// BeneficiaryProgress compares a beneficiary's baseline with the current state.
type BeneficiaryProgress struct {
	StudentID      string                      `json:"studentId"`
	FullName       string                      `json:"fullName"`
	GradeLevel     string                      `json:"gradeLevel"`
	EnrollmentDate time.Time                   `json:"enrollmentDate"`
	Baseline       *nutrition.ClassifiedStatus `json:"baseline,omitempty"`
	Current        *nutrition.ClassifiedStatus `json:"current,omitempty"`
	Trend          nutrition.Trend             `json:"trend"`
	DaysPresent    int                         `json:"daysPresent"`
	DaysRecorded   int                         `json:"daysRecorded"`
}

// FeedingProgramDetail is the program roster with growth outcomes.
type FeedingProgramDetail struct {
	Program       FeedingProgramResponse `json:"program"`
	Beneficiaries []BeneficiaryProgress  `json:"beneficiaries"`
	Trends        nutrition.TrendSummary `json:"trends"`
}
