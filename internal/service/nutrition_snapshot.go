package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

type snapshotStudentRepository interface {
	ListActive(ctx context.Context, gradeLevel string) ([]models.Student, error)
	rosterStudentReader
}

type snapshotMeasurementRepository interface {
	ListSnapshot(ctx context.Context, filter models.MeasurementFilter) ([]models.Measurement, error)
}

type snapshotProgramRepository interface {
	ListAll(ctx context.Context) ([]models.FeedingProgram, error)
}

type snapshotBeneficiaryRepository interface {
	ListAll(ctx context.Context) ([]models.Beneficiary, error)
}

// SnapshotSources bundles the read models every aggregate is computed from.
type SnapshotSources struct {
	Students      snapshotStudentRepository
	Measurements  snapshotMeasurementRepository
	Programs      snapshotProgramRepository
	Beneficiaries snapshotBeneficiaryRepository
}

// nutritionSnapshot is a consistent in-memory view handed to the nutrition engine.
type nutritionSnapshot struct {
	students      []models.Student
	studentsByID  map[string]models.Student
	measurements  []models.Measurement
	latest        map[string]models.Measurement
	programs      []models.FeedingProgram
	beneficiaries []models.Beneficiary
	today         time.Time
}

// loadSnapshot fetches active students, their measurements, programs and
// beneficiaries concurrently. filter.GradeLevel narrows students and measurements
// but never programs; filter.Before drops measurements taken after the cutoff.
func loadSnapshot(ctx context.Context, src SnapshotSources, filter models.MeasurementFilter, today time.Time) (*nutritionSnapshot, error) {
	filter.StudentIDs = nil
	snap := &nutritionSnapshot{today: today}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		students, err := src.Students.ListActive(gctx, filter.GradeLevel)
		if err != nil {
			return err
		}
		snap.students = students
		return nil
	})
	g.Go(func() error {
		measurements, err := src.Measurements.ListSnapshot(gctx, filter)
		if err != nil {
			return err
		}
		snap.measurements = measurements
		return nil
	})
	g.Go(func() error {
		programs, err := src.Programs.ListAll(gctx)
		if err != nil {
			return err
		}
		snap.programs = programs
		return nil
	})
	g.Go(func() error {
		beneficiaries, err := src.Beneficiaries.ListAll(gctx)
		if err != nil {
			return err
		}
		snap.beneficiaries = beneficiaries
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load nutrition snapshot")
	}

	snap.studentsByID = make(map[string]models.Student, len(snap.students))
	for _, st := range snap.students {
		snap.studentsByID[st.ID] = st
	}
	snap.latest = nutrition.LatestPerStudent(snap.measurements)
	return snap, nil
}

// classifyMeasurement classifies m with the student's age on the day it was taken.
func classifyMeasurement(student models.Student, m models.Measurement) (nutrition.Age, nutrition.ClassifiedStatus) {
	age := nutrition.AgeAt(student.BirthDate, student.Age, m.MeasuredAt)
	return age, nutrition.Classify(m.WeightKG, m.HeightCM, age)
}

// current returns the student's latest classification when one exists.
func (s *nutritionSnapshot) current(studentID string) (models.Measurement, nutrition.ClassifiedStatus, bool) {
	student, ok := s.studentsByID[studentID]
	if !ok {
		return models.Measurement{}, nutrition.NotAvailable, false
	}
	m, ok := s.latest[studentID]
	if !ok {
		return models.Measurement{}, nutrition.NotAvailable, false
	}
	_, status := classifyMeasurement(student, m)
	return m, status, true
}

// statuses lists current classifications of measured students in roster order.
func (s *nutritionSnapshot) statuses() []nutrition.StudentStatus {
	out := make([]nutrition.StudentStatus, 0, len(s.latest))
	for _, st := range s.students {
		if _, status, ok := s.current(st.ID); ok {
			out = append(out, nutrition.StudentStatus{StudentID: st.ID, Status: status})
		}
	}
	return out
}

// trulyActivePrograms filters programs through the end-date aware predicate.
func (s *nutritionSnapshot) trulyActivePrograms() []models.FeedingProgram {
	active := make([]models.FeedingProgram, 0, len(s.programs))
	for _, p := range s.programs {
		if nutrition.IsTrulyActive(p, s.today) {
			active = append(active, p)
		}
	}
	return active
}

// programBeneficiaries returns the roster of one program.
func (s *nutritionSnapshot) programBeneficiaries(programID string) []models.Beneficiary {
	var out []models.Beneficiary
	for _, b := range s.beneficiaries {
		if b.ProgramID == programID {
			out = append(out, b)
		}
	}
	return out
}

// rosterView holds what progress tracking needs for a set of beneficiaries.
// Students are loaded by id, so deactivated beneficiaries keep their history.
type rosterView struct {
	students     map[string]models.Student
	measurements []models.Measurement
	latest       map[string]models.Measurement
}

// loadRoster fetches the students and measurements behind roster.
func loadRoster(ctx context.Context, students rosterStudentReader, measurements snapshotMeasurementRepository, roster []models.Beneficiary) (*rosterView, error) {
	ids := make([]string, 0, len(roster))
	for _, b := range roster {
		ids = append(ids, b.StudentID)
	}
	ids = uniqueStrings(ids)

	view := &rosterView{students: make(map[string]models.Student, len(ids))}
	if len(ids) == 0 {
		view.latest = map[string]models.Measurement{}
		return view, nil
	}

	var list []models.Student
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = students.FindByIDs(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		view.measurements, err = measurements.ListSnapshot(gctx, models.MeasurementFilter{StudentIDs: ids})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, st := range list {
		view.students[st.ID] = st
	}
	view.latest = nutrition.LatestPerStudent(view.measurements)
	return view, nil
}

// progress resolves baseline, current status and trend for one beneficiary.
// An unknown student yields a bare record and N/A statuses.
func (v *rosterView) progress(b models.Beneficiary) (models.Student, *nutrition.ClassifiedStatus, *nutrition.ClassifiedStatus, nutrition.Trend) {
	student, ok := v.students[b.StudentID]
	if !ok {
		student = models.Student{ID: b.StudentID}
	}
	baseline, current, trend := beneficiaryProgress(student, v.measurements, v.latest, b.EnrollmentDate)
	return student, baseline, current, trend
}

// trends tallies the growth trend of every beneficiary in roster.
func (v *rosterView) trends(roster []models.Beneficiary) nutrition.TrendSummary {
	var summary nutrition.TrendSummary
	for _, b := range roster {
		_, _, _, trend := v.progress(b)
		summary.Add(trend)
	}
	return summary
}

// beneficiaryProgress resolves the baseline at enrollment, the current status and
// the trend between them. Same-day weigh-ins count as baseline.
func beneficiaryProgress(student models.Student, measurements []models.Measurement, latest map[string]models.Measurement, enrolled time.Time) (baseline, current *nutrition.ClassifiedStatus, trend nutrition.Trend) {
	if m, ok := nutrition.LatestAtOrBefore(measurements, student.ID, nutrition.EndOfDay(enrolled)); ok {
		_, status := classifyMeasurement(student, m)
		baseline = &status
	}
	if m, ok := latest[student.ID]; ok {
		_, status := classifyMeasurement(student, m)
		current = &status
	}
	baseStatus, curStatus := nutrition.BMINotAvailable, nutrition.BMINotAvailable
	if baseline != nil {
		baseStatus = baseline.BMIStatus
	}
	if current != nil {
		curStatus = current.BMIStatus
	}
	return baseline, current, nutrition.ComputeGrowthTrend(baseStatus, curStatus)
}
