package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/school-health-api/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 8, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time { return &t }

type fakeStudentRepo struct {
	students    []models.Student
	numbers     map[string]string
	created     []models.Student
	updated     []models.Student
	deactivated []string
	lastFilter  models.StudentFilter
	err         error
}

func (f *fakeStudentRepo) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.students, len(f.students), nil
}

func (f *fakeStudentRepo) ListActive(_ context.Context, gradeLevel string) ([]models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Student
	for _, s := range f.students {
		if s.Active && (gradeLevel == "" || s.GradeLevel == gradeLevel) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) isActive(id string) bool {
	for _, st := range f.students {
		if st.ID == id {
			return st.Active
		}
	}
	return false
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.students {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) FindByIDs(_ context.Context, ids []string) ([]models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Student
	for _, id := range ids {
		for _, s := range f.students {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) ExistsBySchoolNumber(_ context.Context, number string, excludeID string) (bool, error) {
	id, ok := f.numbers[number]
	return ok && id != excludeID, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	student.ID = fmt.Sprintf("student-%d", len(f.created)+1)
	f.created = append(f.created, *student)
	f.students = append(f.students, *student)
	return nil
}

func (f *fakeStudentRepo) Update(_ context.Context, student *models.Student) error {
	f.updated = append(f.updated, *student)
	return nil
}

func (f *fakeStudentRepo) Deactivate(_ context.Context, id string) error {
	f.deactivated = append(f.deactivated, id)
	return nil
}

type fakeMeasurementRepo struct {
	rows       []models.Measurement
	recent     []models.StudentMeasurement
	grades     map[string]string
	students   *fakeStudentRepo
	lastFilter models.MeasurementFilter
	err        error
}

func (f *fakeMeasurementRepo) Create(_ context.Context, m *models.Measurement) error {
	if f.err != nil {
		return f.err
	}
	m.ID = fmt.Sprintf("m-%d", len(f.rows)+1)
	m.CreatedAt = m.MeasuredAt
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMeasurementRepo) ListByStudent(_ context.Context, studentID string) ([]models.Measurement, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Measurement
	for _, m := range f.rows {
		if m.StudentID == studentID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeasuredAt.After(out[j].MeasuredAt) })
	return out, nil
}

func (f *fakeMeasurementRepo) LatestByStudent(ctx context.Context, studentID string) (*models.Measurement, error) {
	rows, err := f.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}
	return &rows[0], nil
}

func (f *fakeMeasurementRepo) ListSnapshot(_ context.Context, filter models.MeasurementFilter) ([]models.Measurement, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	wanted := make(map[string]bool, len(filter.StudentIDs))
	for _, id := range filter.StudentIDs {
		wanted[id] = true
	}
	var out []models.Measurement
	for _, m := range f.rows {
		if len(wanted) > 0 && !wanted[m.StudentID] {
			continue
		}
		if len(wanted) == 0 && f.students != nil && !f.students.isActive(m.StudentID) {
			continue
		}
		if filter.GradeLevel != "" && f.grades[m.StudentID] != filter.GradeLevel {
			continue
		}
		if filter.Before != nil && m.MeasuredAt.After(*filter.Before) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMeasurementRepo) ListRecent(_ context.Context, limit int) ([]models.StudentMeasurement, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

type fakeProgramRepo struct {
	programs []models.FeedingProgram
	ended    []string
	err      error
}

func (f *fakeProgramRepo) List(_ context.Context, _ models.FeedingProgramFilter) ([]models.FeedingProgram, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.programs, len(f.programs), nil
}

func (f *fakeProgramRepo) ListAll(_ context.Context) ([]models.FeedingProgram, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.programs, nil
}

func (f *fakeProgramRepo) FindByID(_ context.Context, id string) (*models.FeedingProgram, error) {
	for _, p := range f.programs {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProgramRepo) Create(_ context.Context, program *models.FeedingProgram) error {
	program.ID = fmt.Sprintf("program-%d", len(f.programs)+1)
	f.programs = append(f.programs, *program)
	return nil
}

func (f *fakeProgramRepo) Update(_ context.Context, program *models.FeedingProgram) error {
	for i, p := range f.programs {
		if p.ID == program.ID {
			f.programs[i] = *program
		}
	}
	return nil
}

func (f *fakeProgramRepo) End(_ context.Context, id string, endDate time.Time) error {
	f.ended = append(f.ended, id)
	for i, p := range f.programs {
		if p.ID == id {
			f.programs[i].Status = models.ProgramStatusEnded
			if p.EndDate == nil {
				f.programs[i].EndDate = &endDate
			}
		}
	}
	return nil
}

type fakeBeneficiaryRepo struct {
	rows       []models.Beneficiary
	attendance []models.FeedingAttendance
	tallies    []models.AttendanceTally
	programs   *fakeProgramRepo
	err        error
}

func (f *fakeBeneficiaryRepo) AddMany(_ context.Context, items []models.Beneficiary) error {
	if f.err != nil {
		return f.err
	}
	for _, b := range items {
		b.ID = fmt.Sprintf("ben-%d", len(f.rows)+1)
		f.rows = append(f.rows, b)
	}
	return nil
}

func (f *fakeBeneficiaryRepo) Remove(_ context.Context, programID, studentID string) error {
	for i, b := range f.rows {
		if b.ProgramID == programID && b.StudentID == studentID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeBeneficiaryRepo) FindByProgramStudent(_ context.Context, programID, studentID string) (*models.Beneficiary, error) {
	for _, b := range f.rows {
		if b.ProgramID == programID && b.StudentID == studentID {
			cp := b
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBeneficiaryRepo) ListByProgram(_ context.Context, programID string) ([]models.Beneficiary, error) {
	var out []models.Beneficiary
	for _, b := range f.rows {
		if b.ProgramID == programID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBeneficiaryRepo) ListAll(_ context.Context) ([]models.Beneficiary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeBeneficiaryRepo) ListDetailsByStudents(_ context.Context, studentIDs []string) ([]models.BeneficiaryDetail, error) {
	var out []models.BeneficiaryDetail
	for _, b := range f.rows {
		for _, id := range studentIDs {
			if b.StudentID != id {
				continue
			}
			detail := models.BeneficiaryDetail{Beneficiary: b}
			for _, p := range f.programs.programs {
				if p.ID == b.ProgramID {
					detail.ProgramName = p.Name
					detail.ProgramStatus = p.Status
					detail.ProgramEndDate = p.EndDate
				}
			}
			out = append(out, detail)
		}
	}
	return out, nil
}

func (f *fakeBeneficiaryRepo) UpsertAttendance(_ context.Context, attendance *models.FeedingAttendance) error {
	attendance.ID = fmt.Sprintf("att-%d", len(f.attendance)+1)
	f.attendance = append(f.attendance, *attendance)
	return nil
}

func (f *fakeBeneficiaryRepo) AttendanceTallies(_ context.Context, _ string) ([]models.AttendanceTally, error) {
	return f.tallies, nil
}

// nutritionFixture is a small school on 2026-03-10:
//   - s1 grade 1, severely wasted, enrolled only in a stale program
//   - s2 grade 1, normal
//   - s3 grade 2, stunted, wasted at enrollment into p1 and normal since
//   - s4 grade 2, never measured
//   - s5 inactive
type nutritionFixture struct {
	today         time.Time
	students      *fakeStudentRepo
	measurements  *fakeMeasurementRepo
	programs      *fakeProgramRepo
	beneficiaries *fakeBeneficiaryRepo
}

func newNutritionFixture() *nutritionFixture {
	born2018 := day(2018, time.January, 1)
	born2016 := day(2016, time.January, 1)
	students := &fakeStudentRepo{students: []models.Student{
		{ID: "s1", FullName: "Ana Cruz", Gender: "F", BirthDate: &born2018, GradeLevel: "1", Section: "A", Active: true},
		{ID: "s2", FullName: "Ben Diaz", Gender: "M", BirthDate: &born2018, GradeLevel: "1", Section: "A", Active: true},
		{ID: "s3", FullName: "Cara Eng", Gender: "F", BirthDate: &born2016, GradeLevel: "2", Section: "B", Active: true},
		{ID: "s4", FullName: "Dan Fox", Gender: "M", BirthDate: &born2016, GradeLevel: "2", Section: "B", Active: true},
		{ID: "s5", FullName: "Eve Gil", Gender: "F", BirthDate: &born2016, GradeLevel: "2", Section: "B", Active: false},
	}}
	measurements := &fakeMeasurementRepo{
		students: students,
		grades:   map[string]string{"s1": "1", "s2": "1", "s3": "2", "s4": "2", "s5": "2"},
		rows: []models.Measurement{
			{ID: "m1", StudentID: "s1", WeightKG: 20, HeightCM: 120, Source: models.MeasurementSourceManual, MeasuredAt: day(2026, time.March, 1)},
			{ID: "m2", StudentID: "s2", WeightKG: 20, HeightCM: 120, Source: models.MeasurementSourceManual, MeasuredAt: day(2026, time.January, 5)},
			{ID: "m3", StudentID: "s2", WeightKG: 30, HeightCM: 120, Source: models.MeasurementSourceSensor, MeasuredAt: day(2026, time.March, 2)},
			{ID: "m4", StudentID: "s3", WeightKG: 25, HeightCM: 120, Source: models.MeasurementSourceManual, MeasuredAt: day(2026, time.January, 10)},
			{ID: "m5", StudentID: "s3", WeightKG: 30, HeightCM: 120, Source: models.MeasurementSourceManual, MeasuredAt: day(2026, time.March, 1)},
		},
	}
	programs := &fakeProgramRepo{programs: []models.FeedingProgram{
		{ID: "p1", Name: "Term 2 Feeding", StartDate: day(2026, time.January, 1), Status: models.ProgramStatusActive},
		{ID: "p2", Name: "Stale", StartDate: day(2025, time.June, 1), EndDate: datePtr(day(2025, time.December, 20)), Status: models.ProgramStatusActive},
		{ID: "p3", Name: "Closed", StartDate: day(2025, time.January, 1), Status: models.ProgramStatusEnded},
	}}
	beneficiaries := &fakeBeneficiaryRepo{
		programs: programs,
		rows: []models.Beneficiary{
			{ID: "b1", ProgramID: "p2", StudentID: "s1", EnrollmentDate: day(2025, time.June, 1)},
			{ID: "b2", ProgramID: "p1", StudentID: "s3", EnrollmentDate: day(2026, time.January, 15)},
		},
	}
	return &nutritionFixture{
		today:         day(2026, time.March, 10),
		students:      students,
		measurements:  measurements,
		programs:      programs,
		beneficiaries: beneficiaries,
	}
}

func (f *nutritionFixture) sources() SnapshotSources {
	return SnapshotSources{
		Students:      f.students,
		Measurements:  f.measurements,
		Programs:      f.programs,
		Beneficiaries: f.beneficiaries,
	}
}

func (f *nutritionFixture) clock() func() time.Time {
	return func() time.Time { return f.today }
}

