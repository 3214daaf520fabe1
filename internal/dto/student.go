package dto

import "time"

// StudentRequest creates or updates a student.
type StudentRequest struct {
	SchoolNumber string     `json:"schoolNumber" validate:"required,max=32"`
	FullName     string     `json:"fullName" validate:"required,max=150"`
	Gender       string     `json:"gender" validate:"required,oneof=M F"`
	BirthDate    *time.Time `json:"birthDate,omitempty" validate:"required_without=Age"`
	Age          *int       `json:"age,omitempty" validate:"omitempty,min=0,max=25"`
	GradeLevel   string     `json:"gradeLevel" validate:"required,max=20"`
	Section      string     `json:"section" validate:"max=50"`
	Active       *bool      `json:"active,omitempty"`
}
