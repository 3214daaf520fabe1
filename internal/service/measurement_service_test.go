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

func newTestMeasurementService(f *nutritionFixture, cache *CacheService, metrics *MetricsService) *MeasurementService {
	svc := NewMeasurementService(f.students, f.measurements, cache, metrics, BMIBounds{Min: 5, Max: 100}, nil, nil)
	svc.now = f.clock()
	return svc
}

func TestMeasurementServiceRecord(t *testing.T) {
	f := newNutritionFixture()
	repo := newMemoryCacheRepo()
	repo.data["kpi:summary:all"] = []byte(`{}`)
	metrics := NewMetricsService()
	svc := newTestMeasurementService(f, NewCacheService(repo, metrics, time.Minute, nil, true), metrics)

	measuredAt := day(2026, time.March, 9)
	resp, err := svc.Record(context.Background(), "s4", dto.RecordMeasurementRequest{WeightKG: 22, HeightCM: 105, MeasuredAt: &measuredAt}, models.MeasurementSourceManual, "nurse-1")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, models.MeasurementSourceManual, resp.Source)
	require.NotNil(t, resp.RecordedBy)
	assert.Equal(t, "nurse-1", *resp.RecordedBy)
	assert.Equal(t, 10, resp.Age.Years)
	assert.InDelta(t, 19.95, resp.Status.BMI, 0.001)
	assert.Equal(t, nutrition.BMINormal, resp.Status.BMIStatus)
	assert.Equal(t, nutrition.HFAStunted, resp.Status.HFAStatus)
	assert.NotContains(t, repo.data, "kpi:summary:all")
	assert.Equal(t, uint64(1), metrics.Snapshot().Classifications["Normal"])
}

func TestMeasurementServiceRecordDefaultsToNow(t *testing.T) {
	f := newNutritionFixture()
	svc := newTestMeasurementService(f, nil, nil)

	resp, err := svc.Record(context.Background(), "s1", dto.RecordMeasurementRequest{WeightKG: 21, HeightCM: 121}, models.MeasurementSourceManual, "")
	require.NoError(t, err)
	assert.Equal(t, f.today, resp.MeasuredAt)
	assert.Nil(t, resp.RecordedBy)
}

func TestMeasurementServiceRecordRejects(t *testing.T) {
	future := day(2026, time.March, 11)
	cases := []struct {
		name      string
		studentID string
		req       dto.RecordMeasurementRequest
		code      string
	}{
		{name: "zero weight", studentID: "s1", req: dto.RecordMeasurementRequest{WeightKG: 0, HeightCM: 120}, code: appErrors.ErrValidation.Code},
		{name: "negative height", studentID: "s1", req: dto.RecordMeasurementRequest{WeightKG: 20, HeightCM: -1}, code: appErrors.ErrValidation.Code},
		{name: "implausibly low", studentID: "s1", req: dto.RecordMeasurementRequest{WeightKG: 2, HeightCM: 120}, code: appErrors.ErrImplausibleMeasurement.Code},
		{name: "implausibly high", studentID: "s1", req: dto.RecordMeasurementRequest{WeightKG: 200, HeightCM: 120}, code: appErrors.ErrImplausibleMeasurement.Code},
		{name: "future", studentID: "s1", req: dto.RecordMeasurementRequest{WeightKG: 20, HeightCM: 120, MeasuredAt: &future}, code: appErrors.ErrValidation.Code},
		{name: "unknown student", studentID: "missing", req: dto.RecordMeasurementRequest{WeightKG: 20, HeightCM: 120}, code: appErrors.ErrNotFound.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newNutritionFixture()
			before := len(f.measurements.rows)
			svc := newTestMeasurementService(f, nil, nil)

			_, err := svc.Record(context.Background(), tc.studentID, tc.req, models.MeasurementSourceManual, "")
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
			assert.Len(t, f.measurements.rows, before)
		})
	}
}

func TestMeasurementServiceHistoryAndCurrent(t *testing.T) {
	f := newNutritionFixture()
	svc := newTestMeasurementService(f, nil, nil)

	history, err := svc.History(context.Background(), "s3")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "m5", history[0].ID)
	assert.Equal(t, nutrition.BMINormal, history[0].Status.BMIStatus)
	assert.Equal(t, nutrition.BMIWasted, history[1].Status.BMIStatus)

	current, err := svc.Current(context.Background(), "s3")
	require.NoError(t, err)
	require.NotNil(t, current.Current)
	assert.Equal(t, "m5", current.Current.ID)
	assert.Equal(t, "Cara Eng", current.FullName)

	_, err = svc.Current(context.Background(), "s4")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
