package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

type measurementStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type measurementRepository interface {
	Create(ctx context.Context, m *models.Measurement) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Measurement, error)
	LatestByStudent(ctx context.Context, studentID string) (*models.Measurement, error)
}

// BMIBounds is the plausibility window for incoming weigh-ins.
type BMIBounds struct {
	Min float64
	Max float64
}

// MeasurementService records weigh-ins and serves classified history.
type MeasurementService struct {
	students  measurementStudentReader
	repo      measurementRepository
	cache     *CacheService
	metrics   *MetricsService
	bounds    BMIBounds
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMeasurementService constructs a MeasurementService.
func NewMeasurementService(students measurementStudentReader, repo measurementRepository, cache *CacheService, metrics *MetricsService, bounds BMIBounds, validate *validator.Validate, logger *zap.Logger) *MeasurementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bounds.Max <= bounds.Min {
		bounds = BMIBounds{Min: 5, Max: 100}
	}
	return &MeasurementService{
		students:  students,
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		bounds:    bounds,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Record validates and stores a new weigh-in for the student.
func (s *MeasurementService) Record(ctx context.Context, studentID string, req dto.RecordMeasurementRequest, source models.MeasurementSource, recordedBy string) (*dto.MeasurementResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid measurement payload")
	}
	bmi := nutrition.ComputeBMI(req.WeightKG, req.HeightCM)
	if bmi < s.bounds.Min || bmi > s.bounds.Max {
		return nil, appErrors.Clone(appErrors.ErrImplausibleMeasurement, "BMI is outside the plausible range; check weight and height")
	}

	now := s.now().UTC()
	measuredAt := now
	if req.MeasuredAt != nil {
		measuredAt = req.MeasuredAt.UTC()
		if measuredAt.After(now) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "measuredAt cannot be in the future")
		}
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	m := &models.Measurement{
		StudentID:  student.ID,
		WeightKG:   req.WeightKG,
		HeightCM:   req.HeightCM,
		Source:     source,
		MeasuredAt: measuredAt,
	}
	if recordedBy != "" {
		m.RecordedBy = &recordedBy
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record measurement")
	}

	resp := classifiedResponse(*student, *m)
	s.metrics.RecordClassification(resp.Status.BMIStatus)
	if err := s.cache.InvalidateAggregates(ctx); err != nil {
		s.logger.Warn("aggregate cache invalidation failed", zap.Error(err))
	}
	s.logger.Debug("measurement recorded",
		zap.String("student_id", student.ID),
		zap.String("source", string(source)),
		zap.String("bmi_status", string(resp.Status.BMIStatus)),
	)
	return &resp, nil
}

// History returns every measurement of the student, newest first.
func (s *MeasurementService) History(ctx context.Context, studentID string) ([]dto.MeasurementResponse, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list measurements")
	}
	out := make([]dto.MeasurementResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, classifiedResponse(*student, m))
	}
	return out, nil
}

// Current returns the student with its latest classified measurement.
func (s *MeasurementService) Current(ctx context.Context, studentID string) (*dto.StudentStatusResponse, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	latest, err := s.repo.LatestByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no measurements")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest measurement")
	}
	current := classifiedResponse(*student, *latest)
	return &dto.StudentStatusResponse{Student: *student, Current: &current}, nil
}

func (s *MeasurementService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func classifiedResponse(student models.Student, m models.Measurement) dto.MeasurementResponse {
	age, status := classifyMeasurement(student, m)
	return dto.MeasurementResponse{Measurement: m, Age: age, Status: status}
}
