package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-health-api/internal/models"
)

const measurementColumns = "m.id, m.student_id, m.weight_kg, m.height_cm, m.source, m.measured_at, m.recorded_by, m.created_at"

// MeasurementRepository persists weigh-in records. Rows are append-only.
type MeasurementRepository struct {
	db *sqlx.DB
}

// NewMeasurementRepository constructs a MeasurementRepository.
func NewMeasurementRepository(db *sqlx.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// Create inserts a measurement.
func (r *MeasurementRepository) Create(ctx context.Context, m *models.Measurement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Source == "" {
		m.Source = models.MeasurementSourceManual
	}
	const query = `INSERT INTO measurements (id, student_id, weight_kg, height_cm, source, measured_at, recorded_by, created_at)
        VALUES (:id, :student_id, :weight_kg, :height_cm, :source, :measured_at, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create measurement: %w", err)
	}
	return nil
}

// ListByStudent returns a student's measurements newest first.
func (r *MeasurementRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Measurement, error) {
	query := "SELECT " + measurementColumns + " FROM measurements m WHERE m.student_id = $1 ORDER BY m.measured_at DESC, m.created_at DESC"
	var items []models.Measurement
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list measurements by student: %w", err)
	}
	return items, nil
}

// LatestByStudent returns the newest measurement or sql.ErrNoRows.
func (r *MeasurementRepository) LatestByStudent(ctx context.Context, studentID string) (*models.Measurement, error) {
	query := "SELECT " + measurementColumns + " FROM measurements m WHERE m.student_id = $1 ORDER BY m.measured_at DESC, m.created_at DESC LIMIT 1"
	var item models.Measurement
	if err := r.db.GetContext(ctx, &item, query, studentID); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListSnapshot loads measurements for aggregation: those of the listed students,
// or of every active student when none are listed. Rows come newest first per
// student, ties broken by insertion, so the first row seen matches LatestByStudent.
func (r *MeasurementRepository) ListSnapshot(ctx context.Context, filter models.MeasurementFilter) ([]models.Measurement, error) {
	var conditions []string
	var args []interface{}
	if len(filter.StudentIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("m.student_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.StudentIDs))
	} else {
		conditions = append(conditions, "s.active = TRUE")
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Before != nil {
		conditions = append(conditions, fmt.Sprintf("m.measured_at <= $%d", len(args)+1))
		args = append(args, *filter.Before)
	}

	query := fmt.Sprintf("SELECT %s FROM measurements m JOIN students s ON s.id = m.student_id WHERE %s ORDER BY m.student_id, m.measured_at DESC, m.created_at DESC",
		measurementColumns, strings.Join(conditions, " AND "))
	var items []models.Measurement
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list measurement snapshot: %w", err)
	}
	return items, nil
}

// ListRecent returns the most recent measurements joined with student details.
func (r *MeasurementRepository) ListRecent(ctx context.Context, limit int) ([]models.StudentMeasurement, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := "SELECT " + measurementColumns + `, s.full_name, s.grade_level, s.birth_date, s.age
        FROM measurements m JOIN students s ON s.id = m.student_id
        ORDER BY m.measured_at DESC, m.created_at DESC LIMIT $1`
	var items []models.StudentMeasurement
	if err := r.db.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("list recent measurements: %w", err)
	}
	return items, nil
}
