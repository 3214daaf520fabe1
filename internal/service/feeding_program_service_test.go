package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

const (
	uuidStudentA = "0f8c2b7e-1d2a-4c1b-9e7f-3a5b6c7d8e01"
	uuidStudentB = "0f8c2b7e-1d2a-4c1b-9e7f-3a5b6c7d8e02"
)

func newTestFeedingProgramService(f *nutritionFixture, cache *CacheService) *FeedingProgramService {
	svc := NewFeedingProgramService(f.programs, f.beneficiaries, f.students, f.sources(), cache, nil, nil)
	svc.now = f.clock()
	return svc
}

func addUUIDStudents(f *nutritionFixture) {
	f.students.students = append(f.students.students,
		models.Student{ID: uuidStudentA, FullName: "Gus Ito", GradeLevel: "3", Active: true},
		models.Student{ID: uuidStudentB, FullName: "Hana Joy", GradeLevel: "3", Active: true},
	)
}

func TestFeedingProgramServiceEffectiveStatus(t *testing.T) {
	f := newNutritionFixture()
	svc := newTestFeedingProgramService(f, nil)

	programs, pagination, err := svc.List(context.Background(), models.FeedingProgramFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, pagination.TotalCount)
	require.Len(t, programs, 3)
	assert.Equal(t, models.ProgramStatusActive, programs[0].EffectiveStatus)
	assert.Equal(t, models.ProgramStatusActive, programs[1].Status)
	assert.Equal(t, models.ProgramStatusEnded, programs[1].EffectiveStatus, "past end date overrides stored flag")
	assert.Equal(t, models.ProgramStatusEnded, programs[2].EffectiveStatus)

	program, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, program.BeneficiaryCount)
	assert.Equal(t, 1, *program.BeneficiaryCount)

	_, err = svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFeedingProgramServiceCreateUpdateEnd(t *testing.T) {
	f := newNutritionFixture()
	cacheRepo := newMemoryCacheRepo()
	svc := newTestFeedingProgramService(f, NewCacheService(cacheRepo, nil, time.Minute, nil, true))

	_, err := svc.Create(context.Background(), dto.FeedingProgramRequest{
		Name:      "Bad dates",
		StartDate: day(2026, time.April, 1),
		EndDate:   datePtr(day(2026, time.March, 1)),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	created, err := svc.Create(context.Background(), dto.FeedingProgramRequest{Name: "Q2 Feeding", StartDate: day(2026, time.April, 1)})
	require.NoError(t, err)
	assert.Equal(t, models.ProgramStatusActive, created.Status)
	assert.Equal(t, models.ProgramStatusActive, created.EffectiveStatus)
	assert.Contains(t, cacheRepo.deleted, "kpi:*")

	updated, err := svc.Update(context.Background(), created.ID, dto.FeedingProgramRequest{Name: "Q2 Feeding (rev)", StartDate: day(2026, time.April, 1)})
	require.NoError(t, err)
	assert.Equal(t, "Q2 Feeding (rev)", updated.Name)

	ended, err := svc.End(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgramStatusEnded, ended.Status)
	assert.Equal(t, models.ProgramStatusEnded, ended.EffectiveStatus)
	require.NotNil(t, ended.EndDate)
	assert.Equal(t, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), *ended.EndDate)
	assert.Equal(t, []string{"p1"}, f.programs.ended)
}

func TestFeedingProgramServiceAddBeneficiaries(t *testing.T) {
	f := newNutritionFixture()
	addUUIDStudents(f)
	svc := newTestFeedingProgramService(f, nil)

	added, err := svc.AddBeneficiaries(context.Background(), "p1", dto.AddBeneficiariesRequest{
		StudentIDs:     []string{uuidStudentA, uuidStudentA},
		EnrollmentDate: datePtr(day(2026, time.March, 2)),
	})
	require.NoError(t, err)
	require.Len(t, added, 1, "duplicate ids collapse")
	assert.Equal(t, day(2026, time.March, 2), added[0].EnrollmentDate)

	_, err = svc.AddBeneficiaries(context.Background(), "p1", dto.AddBeneficiariesRequest{StudentIDs: []string{uuidStudentA}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	f.programs.programs = append(f.programs.programs, models.FeedingProgram{ID: "p4", Name: "Pilot", StartDate: day(2026, time.March, 1), Status: models.ProgramStatusActive})
	_, err = svc.AddBeneficiaries(context.Background(), "p4", dto.AddBeneficiariesRequest{StudentIDs: []string{uuidStudentB, uuidStudentA}})
	require.Error(t, err, "enrolled in another truly active program")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.AddBeneficiaries(context.Background(), "p4", dto.AddBeneficiariesRequest{StudentIDs: []string{"0f8c2b7e-1d2a-4c1b-9e7f-3a5b6c7d8eff"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFeedingProgramServiceAddBeneficiariesEndedProgram(t *testing.T) {
	f := newNutritionFixture()
	addUUIDStudents(f)
	svc := newTestFeedingProgramService(f, nil)

	for _, id := range []string{"p2", "p3"} {
		_, err := svc.AddBeneficiaries(context.Background(), id, dto.AddBeneficiariesRequest{StudentIDs: []string{uuidStudentB}})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrProgramEnded.Code, appErrors.FromError(err).Code)
	}

	_, err := svc.AddBeneficiaries(context.Background(), "p1", dto.AddBeneficiariesRequest{StudentIDs: []string{"s1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeedingProgramServiceAddBeneficiariesAfterStaleProgram(t *testing.T) {
	f := newNutritionFixture()
	addUUIDStudents(f)
	f.beneficiaries.rows = append(f.beneficiaries.rows, models.Beneficiary{ID: "b4", ProgramID: "p2", StudentID: uuidStudentB, EnrollmentDate: day(2025, time.June, 1)})
	svc := newTestFeedingProgramService(f, nil)

	added, err := svc.AddBeneficiaries(context.Background(), "p1", dto.AddBeneficiariesRequest{StudentIDs: []string{uuidStudentB}})
	require.NoError(t, err, "a past end date frees the student even though the stored status is still active")
	require.Len(t, added, 1)
	assert.Equal(t, "p1", added[0].ProgramID)
	assert.Equal(t, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), added[0].EnrollmentDate)
}

func TestFeedingProgramServiceSchoolTimeZone(t *testing.T) {
	f := newNutritionFixture()
	addUUIDStudents(f)
	f.programs.programs = append(f.programs.programs, models.FeedingProgram{
		ID: "p5", Name: "Short", StartDate: day(2026, time.March, 1), EndDate: datePtr(day(2026, time.March, 9)), Status: models.ProgramStatusActive,
	})
	svc := newTestFeedingProgramService(f, nil)
	instant := time.Date(2026, time.March, 9, 20, 0, 0, 0, time.UTC)

	svc.WithClock(func() time.Time { return instant })
	program, err := svc.Get(context.Background(), "p5")
	require.NoError(t, err)
	assert.Equal(t, models.ProgramStatusActive, program.EffectiveStatus, "still March 9 in UTC")

	svc.WithClock(func() time.Time { return instant.In(time.FixedZone("UTC+8", 8*60*60)) })
	program, err = svc.Get(context.Background(), "p5")
	require.NoError(t, err)
	assert.Equal(t, models.ProgramStatusEnded, program.EffectiveStatus, "already March 10 at the school")

	_, err = svc.AddBeneficiaries(context.Background(), "p5", dto.AddBeneficiariesRequest{StudentIDs: []string{uuidStudentA}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrProgramEnded.Code, appErrors.FromError(err).Code)

	added, err := svc.AddBeneficiaries(context.Background(), "p1", dto.AddBeneficiariesRequest{StudentIDs: []string{uuidStudentA}})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), added[0].EnrollmentDate)
}

func TestFeedingProgramServiceRemoveAndAttendance(t *testing.T) {
	f := newNutritionFixture()
	addUUIDStudents(f)
	f.beneficiaries.rows = append(f.beneficiaries.rows, models.Beneficiary{ID: "b3", ProgramID: "p1", StudentID: uuidStudentA, EnrollmentDate: day(2026, time.February, 1)})
	svc := newTestFeedingProgramService(f, nil)

	attendance, err := svc.RecordAttendance(context.Background(), "p1", dto.FeedingAttendanceRequest{
		StudentID: uuidStudentA,
		Date:      time.Date(2026, time.March, 9, 13, 45, 0, 0, time.UTC),
		Present:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "b3", attendance.BeneficiaryID)
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), attendance.Date)

	_, err = svc.RecordAttendance(context.Background(), "p1", dto.FeedingAttendanceRequest{StudentID: uuidStudentB, Date: f.today})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.RemoveBeneficiary(context.Background(), "p1", uuidStudentA))
	err = svc.RemoveBeneficiary(context.Background(), "p1", uuidStudentA)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFeedingProgramServiceEligible(t *testing.T) {
	f := newNutritionFixture()
	svc := newTestFeedingProgramService(f, nil)

	global, err := svc.Eligible(context.Background(), "", "", "")
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, "s1", global[0].StudentID)
	assert.Equal(t, nutrition.TierPrimary, global[0].Tier)
	assert.Equal(t, "Ana Cruz", global[0].FullName)
	assert.Equal(t, day(2026, time.March, 1), global[0].MeasuredAt)

	scoped, err := svc.Eligible(context.Background(), "p2", nutrition.ScopeProgram, "")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "s3", scoped[0].StudentID)
	assert.Equal(t, nutrition.TierSecondary, scoped[0].Tier)

	_, err = svc.Eligible(context.Background(), "", nutrition.ScopeProgram, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Eligible(context.Background(), "", "everyone", "")
	require.Error(t, err)
}

func TestFeedingProgramServiceDetail(t *testing.T) {
	f := newNutritionFixture()
	f.beneficiaries.tallies = []models.AttendanceTally{{BeneficiaryID: "b2", DaysPresent: 5, DaysRecorded: 6}}
	svc := newTestFeedingProgramService(f, nil)

	detail, err := svc.Detail(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", detail.Program.ID)
	require.Len(t, detail.Beneficiaries, 1)

	progress := detail.Beneficiaries[0]
	assert.Equal(t, "Cara Eng", progress.FullName)
	require.NotNil(t, progress.Baseline)
	require.NotNil(t, progress.Current)
	assert.Equal(t, nutrition.BMIWasted, progress.Baseline.BMIStatus)
	assert.Equal(t, nutrition.BMINormal, progress.Current.BMIStatus)
	assert.Equal(t, nutrition.TrendImprove, progress.Trend)
	assert.Equal(t, 5, progress.DaysPresent)
	assert.Equal(t, 6, progress.DaysRecorded)
	assert.Equal(t, nutrition.TrendSummary{Improve: 1}, detail.Trends)
	assert.Equal(t, []string{"s3"}, f.measurements.lastFilter.StudentIDs)
}

func TestFeedingProgramServiceDetailDeactivatedBeneficiary(t *testing.T) {
	f := newNutritionFixture()
	f.students.students[2].Active = false
	svc := newTestFeedingProgramService(f, nil)

	detail, err := svc.Detail(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, detail.Beneficiaries, 1)
	assert.Equal(t, "Cara Eng", detail.Beneficiaries[0].FullName)
	assert.Equal(t, nutrition.TrendImprove, detail.Beneficiaries[0].Trend)
}

func TestFeedingProgramServiceDetailWithoutBaseline(t *testing.T) {
	f := newNutritionFixture()
	svc := newTestFeedingProgramService(f, nil)

	detail, err := svc.Detail(context.Background(), "p2")
	require.NoError(t, err)
	require.Len(t, detail.Beneficiaries, 1)
	assert.Nil(t, detail.Beneficiaries[0].Baseline, "s1 was only measured after enrollment")
	assert.NotNil(t, detail.Beneficiaries[0].Current)
	assert.Equal(t, nutrition.TrendNotAvailable, detail.Beneficiaries[0].Trend)
	assert.Equal(t, nutrition.TrendSummary{NotAvailable: 1}, detail.Trends)
}
