package nutrition

import (
	"sort"
	"time"

	"github.com/noah-isme/school-health-api/internal/models"
)

// Tier is the feeding program priority of a student.
type Tier string

const (
	TierPrimary   Tier = "Primary"
	TierSecondary Tier = "Secondary"
	TierNone      Tier = "None"
)

// ExclusionScope selects which enrollments remove a student from an eligible list.
type ExclusionScope string

const (
	// ScopeGlobal excludes students enrolled in any truly active program.
	ScopeGlobal  ExclusionScope = "global"
	// ScopeProgram excludes only students already on one program's roster.
	ScopeProgram ExclusionScope = "program"
)

// ClassifyEligibility assigns the feeding tier. Wasting dominates stunting.
func ClassifyEligibility(current ClassifiedStatus) Tier {
	switch current.BMIStatus {
	case BMISeverelyWasted, BMIWasted:
		return TierPrimary
	}
	switch current.HFAStatus {
	case HFASeverelyStunted, HFAStunted:
		return TierSecondary
	}
	return TierNone
}

// IsTrulyActive reports whether a program is flagged active and its end date,
// compared by calendar day, has not passed.
func IsTrulyActive(program models.FeedingProgram, today time.Time) bool {
	if program.Status != models.ProgramStatusActive {
		return false
	}
	if program.EndDate == nil {
		return true
	}
	return !dateOf(*program.EndDate).Before(dateOf(today))
}

// EffectiveStatus is the program status after applying the end date.
func EffectiveStatus(program models.FeedingProgram, today time.Time) models.ProgramStatus {
	if IsTrulyActive(program, today) {
		return models.ProgramStatusActive
	}
	return models.ProgramStatusEnded
}

// IsCurrentlyEnrolledActive reports whether the beneficiary belongs to program
// and that program is truly active.
func IsCurrentlyEnrolledActive(beneficiary models.Beneficiary, program models.FeedingProgram, today time.Time) bool {
	return beneficiary.ProgramID == program.ID && IsTrulyActive(program, today)
}

// ActivelyEnrolled returns the set of students enrolled in at least one truly
// active program. Beneficiaries of unknown programs are ignored.
func ActivelyEnrolled(beneficiaries []models.Beneficiary, programs []models.FeedingProgram, today time.Time) map[string]struct{} {
	byID := make(map[string]models.FeedingProgram, len(programs))
	for _, p := range programs {
		byID[p.ID] = p
	}
	enrolled := make(map[string]struct{})
	for _, b := range beneficiaries {
		program, ok := byID[b.ProgramID]
		if !ok {
			continue
		}
		if IsCurrentlyEnrolledActive(b, program, today) {
			enrolled[b.StudentID] = struct{}{}
		}
	}
	return enrolled
}

// StudentStatus pairs a student with its current classification.
type StudentStatus struct {
	StudentID string
	Status    ClassifiedStatus
}

// EligibilityQuery configures EligibleStudents.
type EligibilityQuery struct {
	Scope     ExclusionScope
	ProgramID string
	Today     time.Time
}

// EligibleStudent is a student qualifying for feeding with its tier.
type EligibleStudent struct {
	StudentID string
	Status    ClassifiedStatus
	Tier      Tier
}

// EligibleStudents filters statuses down to Primary and Secondary students not
// already enrolled under the query's scope. Severely wasted students come first;
// everyone else keeps input order.
func EligibleStudents(statuses []StudentStatus, beneficiaries []models.Beneficiary, programs []models.FeedingProgram, q EligibilityQuery) []EligibleStudent {
	var excluded map[string]struct{}
	switch q.Scope {
	case ScopeProgram:
		excluded = make(map[string]struct{})
		for _, b := range beneficiaries {
			if b.ProgramID == q.ProgramID {
				excluded[b.StudentID] = struct{}{}
			}
		}
	default:
		excluded = ActivelyEnrolled(beneficiaries, programs, q.Today)
	}

	result := make([]EligibleStudent, 0)
	for _, s := range statuses {
		tier := ClassifyEligibility(s.Status)
		if tier == TierNone {
			continue
		}
		if _, skip := excluded[s.StudentID]; skip {
			continue
		}
		result = append(result, EligibleStudent{StudentID: s.StudentID, Status: s.Status, Tier: tier})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Status.BMIStatus == BMISeverelyWasted && result[j].Status.BMIStatus != BMISeverelyWasted
	})
	return result
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
