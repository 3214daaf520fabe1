package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
)

func TestDashboardServiceOverview(t *testing.T) {
	f := newNutritionFixture()
	born := day(2018, time.January, 1)
	f.measurements.recent = []models.StudentMeasurement{
		{Measurement: f.measurements.rows[2], FullName: "Ben Diaz", GradeLevel: "1", BirthDate: &born},
		{Measurement: f.measurements.rows[0], FullName: "Ana Cruz", GradeLevel: "1", BirthDate: &born},
	}
	svc := NewDashboardService(f.sources(), f.measurements, nil, time.Minute, nil)
	svc.now = f.clock()

	overview, hit, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)

	require.Len(t, overview.Distribution, 2)
	assert.Equal(t, "1", overview.Distribution[0].GradeLevel)
	assert.Equal(t, 2, overview.Distribution[0].Measured)
	assert.Equal(t, 1, overview.Distribution[0].Counts["Severely Wasted"])
	assert.Equal(t, 1, overview.Distribution[0].Counts["Normal"])
	assert.Equal(t, "2", overview.Distribution[1].GradeLevel)
	assert.Equal(t, 1, overview.Distribution[1].Measured)
	assert.Equal(t, 1, overview.Distribution[1].Counts["N/A"])

	require.Len(t, overview.RecentMeasurements, 2)
	assert.Equal(t, "Ben Diaz", overview.RecentMeasurements[0].FullName)
	assert.Equal(t, models.MeasurementSourceSensor, overview.RecentMeasurements[0].Source)
	assert.Equal(t, nutrition.BMINormal, overview.RecentMeasurements[0].Status.BMIStatus)
	assert.Equal(t, nutrition.BMISeverelyWasted, overview.RecentMeasurements[1].Status.BMIStatus)

	require.Len(t, overview.Programs, 1, "only truly active programs are summarised")
	assert.Equal(t, "p1", overview.Programs[0].ProgramID)
	assert.Equal(t, 1, overview.Programs[0].Beneficiaries)
	assert.Equal(t, nutrition.TrendSummary{Improve: 1}, overview.Programs[0].Trends)
	assert.Equal(t, nutrition.TrendSummary{Improve: 1}, overview.Trends)
}

func TestDashboardServiceOverviewDeactivatedBeneficiary(t *testing.T) {
	f := newNutritionFixture()
	f.students.students[2].Active = false
	svc := NewDashboardService(f.sources(), f.measurements, nil, time.Minute, nil)
	svc.now = f.clock()

	overview, _, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, overview.Programs, 1)
	assert.Equal(t, 1, overview.Programs[0].Beneficiaries)
	assert.Equal(t, nutrition.TrendSummary{Improve: 1}, overview.Programs[0].Trends, "history of a deactivated beneficiary still counts")
	assert.Equal(t, []string{"s3"}, f.measurements.lastFilter.StudentIDs)

	detail, err := newTestFeedingProgramService(f, nil).Detail(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, detail.Trends, overview.Programs[0].Trends)

	for _, g := range overview.Distribution {
		if g.GradeLevel == "2" {
			assert.Equal(t, 0, g.Measured, "deactivated students leave the distribution")
		}
	}
}

func TestDashboardServiceOverviewCached(t *testing.T) {
	f := newNutritionFixture()
	repo := newMemoryCacheRepo()
	svc := NewDashboardService(f.sources(), f.measurements, NewCacheService(repo, nil, time.Minute, nil, true), time.Minute, nil)
	svc.now = f.clock()

	_, _, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Contains(t, repo.data, "dashboard:overview")

	_, hit, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestDashboardServiceRecentError(t *testing.T) {
	f := newNutritionFixture()
	failing := &fakeMeasurementRepo{err: errors.New("boom")}
	svc := NewDashboardService(f.sources(), failing, nil, time.Minute, nil)
	svc.now = f.clock()

	_, _, err := svc.Overview(context.Background())
	require.Error(t, err)
}
