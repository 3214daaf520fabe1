package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-health-api/internal/models"
)

const beneficiaryColumns = "b.id, b.program_id, b.student_id, b.enrollment_date, b.created_at"

// BeneficiaryRepository manages program enrollments and feeding attendance.
type BeneficiaryRepository struct {
	db *sqlx.DB
}

// NewBeneficiaryRepository constructs a BeneficiaryRepository.
func NewBeneficiaryRepository(db *sqlx.DB) *BeneficiaryRepository {
	return &BeneficiaryRepository{db: db}
}

// AddMany enrolls students in a single transaction.
func (r *BeneficiaryRepository) AddMany(ctx context.Context, items []models.Beneficiary) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin beneficiary tx: %w", err)
	}
	const query = `INSERT INTO beneficiaries (id, program_id, student_id, enrollment_date, created_at)
        VALUES (:id, :program_id, :student_id, :enrollment_date, :created_at)`
	now := time.Now().UTC()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, items[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("add beneficiary: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit beneficiary tx: %w", err)
	}
	return nil
}

// Remove hard deletes an enrollment; attendance rows cascade.
// Returns sql.ErrNoRows when the student is not enrolled.
func (r *BeneficiaryRepository) Remove(ctx context.Context, programID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM beneficiaries WHERE program_id = $1 AND student_id = $2`, programID, studentID)
	if err != nil {
		return fmt.Errorf("remove beneficiary: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove beneficiary: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByProgramStudent returns a single enrollment or sql.ErrNoRows.
func (r *BeneficiaryRepository) FindByProgramStudent(ctx context.Context, programID, studentID string) (*models.Beneficiary, error) {
	query := "SELECT " + beneficiaryColumns + " FROM beneficiaries b WHERE b.program_id = $1 AND b.student_id = $2"
	var item models.Beneficiary
	if err := r.db.GetContext(ctx, &item, query, programID, studentID); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByProgram returns a program's beneficiaries.
func (r *BeneficiaryRepository) ListByProgram(ctx context.Context, programID string) ([]models.Beneficiary, error) {
	query := "SELECT " + beneficiaryColumns + " FROM beneficiaries b WHERE b.program_id = $1 ORDER BY b.enrollment_date, b.created_at"
	var items []models.Beneficiary
	if err := r.db.SelectContext(ctx, &items, query, programID); err != nil {
		return nil, fmt.Errorf("list beneficiaries by program: %w", err)
	}
	return items, nil
}

// ListAll returns every beneficiary across programs.
func (r *BeneficiaryRepository) ListAll(ctx context.Context) ([]models.Beneficiary, error) {
	var items []models.Beneficiary
	if err := r.db.SelectContext(ctx, &items, "SELECT "+beneficiaryColumns+" FROM beneficiaries b"); err != nil {
		return nil, fmt.Errorf("list beneficiaries: %w", err)
	}
	return items, nil
}

// ListDetailsByStudents returns enrollments of the given students joined with program state.
func (r *BeneficiaryRepository) ListDetailsByStudents(ctx context.Context, studentIDs []string) ([]models.BeneficiaryDetail, error) {
	if len(studentIDs) == 0 {
		return []models.BeneficiaryDetail{}, nil
	}
	query := "SELECT " + beneficiaryColumns + `, p.name AS program_name, p.status AS program_status, p.end_date AS program_end_date
        FROM beneficiaries b JOIN feeding_programs p ON p.id = b.program_id
        WHERE b.student_id = ANY($1)`
	var items []models.BeneficiaryDetail
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list beneficiary details: %w", err)
	}
	return items, nil
}

// UpsertAttendance records one feeding day, replacing an earlier mark for the same date.
func (r *BeneficiaryRepository) UpsertAttendance(ctx context.Context, attendance *models.FeedingAttendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	if attendance.CreatedAt.IsZero() {
		attendance.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO feeding_attendance (id, beneficiary_id, date, present, created_at)
        VALUES (:id, :beneficiary_id, :date, :present, :created_at)
        ON CONFLICT (beneficiary_id, date) DO UPDATE SET present = EXCLUDED.present`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("upsert feeding attendance: %w", err)
	}
	return nil
}

// AttendanceTallies summarises recorded feeding days for a program.
func (r *BeneficiaryRepository) AttendanceTallies(ctx context.Context, programID string) ([]models.AttendanceTally, error) {
	const query = `SELECT a.beneficiary_id, COUNT(*) FILTER (WHERE a.present) AS days_present, COUNT(*) AS days_recorded
        FROM feeding_attendance a JOIN beneficiaries b ON b.id = a.beneficiary_id
        WHERE b.program_id = $1 GROUP BY a.beneficiary_id`
	var items []models.AttendanceTally
	if err := r.db.SelectContext(ctx, &items, query, programID); err != nil {
		return nil, fmt.Errorf("attendance tallies: %w", err)
	}
	return items, nil
}
