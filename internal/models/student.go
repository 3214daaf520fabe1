package models

import "time"

// Student represents a learner whose growth is monitored.
type Student struct {
	ID           string     `db:"id" json:"id"`
	SchoolNumber string     `db:"school_number" json:"school_number"`
	FullName     string     `db:"full_name" json:"full_name"`
	Gender       string     `db:"gender" json:"gender"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Age          *int       `db:"age" json:"age,omitempty"`
	GradeLevel   string     `db:"grade_level" json:"grade_level"`
	Section      string     `db:"section" json:"section"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	GradeLevel string
	Section    string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
