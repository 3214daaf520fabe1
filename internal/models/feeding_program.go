package models

import "time"

// ProgramStatus is the stored lifecycle flag of a feeding program.
type ProgramStatus string

const (
	ProgramStatusActive ProgramStatus = "active"
	ProgramStatusEnded  ProgramStatus = "ended"
)

// FeedingProgram is a supplementary feeding cycle students can be enrolled into.
// Status may lag behind EndDate; consumers must derive the effective state.
type FeedingProgram struct {
	ID          string        `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description"`
	StartDate   time.Time     `db:"start_date" json:"start_date"`
	EndDate     *time.Time    `db:"end_date" json:"end_date,omitempty"`
	Status      ProgramStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// FeedingProgramFilter narrows program listings.
type FeedingProgramFilter struct {
	Status   ProgramStatus
	Search   string
	Page     int
	PageSize int
}

// Beneficiary links a student to a feeding program.
type Beneficiary struct {
	ID             string    `db:"id" json:"id"`
	ProgramID      string    `db:"program_id" json:"program_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	EnrollmentDate time.Time `db:"enrollment_date" json:"enrollment_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// BeneficiaryDetail joins a beneficiary with program state for enrollment checks.
type BeneficiaryDetail struct {
	Beneficiary
	ProgramName    string        `db:"program_name" json:"program_name"`
	ProgramStatus  ProgramStatus `db:"program_status" json:"program_status"`
	ProgramEndDate *time.Time    `db:"program_end_date" json:"program_end_date,omitempty"`
}

// Program rebuilds the program fields needed for effective status checks.
func (d BeneficiaryDetail) Program() FeedingProgram {
	return FeedingProgram{ID: d.ProgramID, Name: d.ProgramName, Status: d.ProgramStatus, EndDate: d.ProgramEndDate}
}

// FeedingAttendance records whether a beneficiary was fed on a given day.
type FeedingAttendance struct {
	ID            string    `db:"id" json:"id"`
	BeneficiaryID string    `db:"beneficiary_id" json:"beneficiary_id"`
	Date          time.Time `db:"date" json:"date"`
	Present       bool      `db:"present" json:"present"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AttendanceTally counts feeding days per beneficiary.
type AttendanceTally struct {
	BeneficiaryID string `db:"beneficiary_id" json:"beneficiary_id"`
	DaysPresent   int    `db:"days_present" json:"days_present"`
	DaysRecorded  int    `db:"days_recorded" json:"days_recorded"`
}
