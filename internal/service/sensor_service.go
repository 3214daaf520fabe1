package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/repository"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

// ReadingStore keeps the most recent reading per device until it expires.
type ReadingStore interface {
	Put(ctx context.Context, reading models.SensorReading) error
	Get(ctx context.Context, deviceID string) (*models.SensorReading, error)
	Delete(ctx context.Context, deviceID string) error
}

type measurementRecorder interface {
	Record(ctx context.Context, studentID string, req dto.RecordMeasurementRequest, source models.MeasurementSource, recordedBy string) (*dto.MeasurementResponse, error)
}

// SensorService bridges scale devices to stored measurements.
type SensorService struct {
	store     ReadingStore
	recorder  measurementRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSensorService constructs a SensorService.
func NewSensorService(store ReadingStore, recorder measurementRecorder, validate *validator.Validate, logger *zap.Logger) *SensorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SensorService{store: store, recorder: recorder, validator: validate, logger: logger, now: time.Now}
}

// Ingest replaces the device's pending reading.
func (s *SensorService) Ingest(ctx context.Context, req dto.SensorReadingRequest) (*models.SensorReading, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sensor reading")
	}
	reading := models.SensorReading{
		DeviceID:   req.DeviceID,
		WeightKG:   req.WeightKG,
		HeightCM:   req.HeightCM,
		ReceivedAt: s.now().UTC(),
	}
	if err := s.store.Put(ctx, reading); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store sensor reading")
	}
	return &reading, nil
}

// Latest returns the pending reading of a device.
func (s *SensorService) Latest(ctx context.Context, deviceID string) (*models.SensorReading, error) {
	reading, err := s.store.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrReadingNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no pending reading for device")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sensor reading")
	}
	return reading, nil
}

// Commit stores the device's pending reading as a sensor measurement and clears it.
func (s *SensorService) Commit(ctx context.Context, deviceID string, req dto.CommitReadingRequest, recordedBy string) (*dto.MeasurementResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commit payload")
	}
	reading, err := s.Latest(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	measuredAt := reading.ReceivedAt
	resp, err := s.recorder.Record(ctx, req.StudentID, dto.RecordMeasurementRequest{
		WeightKG:   reading.WeightKG,
		HeightCM:   reading.HeightCM,
		MeasuredAt: &measuredAt,
	}, models.MeasurementSourceSensor, recordedBy)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, deviceID); err != nil {
		s.logger.Warn("sensor reading not cleared", zap.String("device_id", deviceID), zap.Error(err))
	}
	return resp, nil
}
