package dto

import (
	"time"

	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
)

// KPISummary aggregates current nutritional state across active students.
type KPISummary struct {
	TotalStudents       int            `json:"totalStudents"`
	MeasuredStudents    int            `json:"measuredStudents"`
	BMIStatusCounts     map[string]int `json:"bmiStatusCounts"`
	HFAStatusCounts     map[string]int `json:"hfaStatusCounts"`
	PrimaryCount        int            `json:"primaryCount"`
	SecondaryCount      int            `json:"secondaryCount"`
	AwaitingEnrollment  int            `json:"awaitingEnrollment"`
	ActiveBeneficiaries int            `json:"activeBeneficiaries"`
	ActivePrograms      int            `json:"activePrograms"`
	GeneratedAt         time.Time      `json:"generatedAt"`
}

// GradeDistribution counts BMI statuses inside one grade level.
type GradeDistribution struct {
	GradeLevel string         `json:"gradeLevel"`
	Measured   int            `json:"measured"`
	Counts     map[string]int `json:"counts"`
}

// RecentMeasurement is a dashboard feed entry.
type RecentMeasurement struct {
	StudentID  string                     `json:"studentId"`
	FullName   string                     `json:"fullName"`
	GradeLevel string                     `json:"gradeLevel"`
	Source     models.MeasurementSource   `json:"source"`
	MeasuredAt time.Time                  `json:"measuredAt"`
	Status     nutrition.ClassifiedStatus `json:"status"`
}

// ProgramTrend summarises outcomes for one truly active program.
type ProgramTrend struct {
	ProgramID     string                 `json:"programId"`
	Name          string                 `json:"name"`
	Beneficiaries int                    `json:"beneficiaries"`
	Trends        nutrition.TrendSummary `json:"trends"`
}

// DashboardOverview is the landing page payload.
type DashboardOverview struct {
	Distribution       []GradeDistribution    `json:"distribution"`
	RecentMeasurements []RecentMeasurement    `json:"recentMeasurements"`
	Programs           []ProgramTrend         `json:"programs"`
	Trends             nutrition.TrendSummary `json:"trends"`
	GeneratedAt        time.Time              `json:"generatedAt"`
}
