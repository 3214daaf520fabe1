package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-health-api/internal/models"
)

const programColumns = "id, name, description, start_date, end_date, status, created_at, updated_at"

// FeedingProgramRepository persists feeding programs.
type FeedingProgramRepository struct {
	db *sqlx.DB
}

// NewFeedingProgramRepository constructs a FeedingProgramRepository.
func NewFeedingProgramRepository(db *sqlx.DB) *FeedingProgramRepository {
	return &FeedingProgramRepository{db: db}
}

// List returns programs matching the filter along with the total count.
func (r *FeedingProgramRepository) List(ctx context.Context, filter models.FeedingProgramFilter) ([]models.FeedingProgram, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base := "FROM feeding_programs WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	query := fmt.Sprintf("SELECT %s %s ORDER BY start_date DESC, name ASC LIMIT %d OFFSET %d", programColumns, base, size, (page-1)*size)

	var programs []models.FeedingProgram
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list feeding programs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count feeding programs: %w", err)
	}
	return programs, total, nil
}

// ListAll returns every program regardless of status.
func (r *FeedingProgramRepository) ListAll(ctx context.Context) ([]models.FeedingProgram, error) {
	var programs []models.FeedingProgram
	if err := r.db.SelectContext(ctx, &programs, "SELECT "+programColumns+" FROM feeding_programs ORDER BY start_date DESC"); err != nil {
		return nil, fmt.Errorf("list all feeding programs: %w", err)
	}
	return programs, nil
}

// FindByID returns a program or sql.ErrNoRows.
func (r *FeedingProgramRepository) FindByID(ctx context.Context, id string) (*models.FeedingProgram, error) {
	var program models.FeedingProgram
	if err := r.db.GetContext(ctx, &program, "SELECT "+programColumns+" FROM feeding_programs WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &program, nil
}

// Create inserts a program.
func (r *FeedingProgramRepository) Create(ctx context.Context, program *models.FeedingProgram) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	if program.Status == "" {
		program.Status = models.ProgramStatusActive
	}
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now
	const query = `INSERT INTO feeding_programs (id, name, description, start_date, end_date, status, created_at, updated_at)
        VALUES (:id, :name, :description, :start_date, :end_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create feeding program: %w", err)
	}
	return nil
}

// Update writes the mutable program fields.
func (r *FeedingProgramRepository) Update(ctx context.Context, program *models.FeedingProgram) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE feeding_programs SET name = :name, description = :description, start_date = :start_date, end_date = :end_date,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("update feeding program: %w", err)
	}
	return nil
}

// End flags a program as ended, filling in the end date when it is unset.
func (r *FeedingProgramRepository) End(ctx context.Context, id string, endDate time.Time) error {
	const query = `UPDATE feeding_programs SET status = $2, end_date = COALESCE(end_date, $3), updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ProgramStatusEnded, endDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("end feeding program: %w", err)
	}
	return nil
}
