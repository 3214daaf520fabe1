package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

type feedingProgramRepository interface {
	List(ctx context.Context, filter models.FeedingProgramFilter) ([]models.FeedingProgram, int, error)
	FindByID(ctx context.Context, id string) (*models.FeedingProgram, error)
	Create(ctx context.Context, program *models.FeedingProgram) error
	Update(ctx context.Context, program *models.FeedingProgram) error
	End(ctx context.Context, id string, endDate time.Time) error
}

type beneficiaryRepository interface {
	AddMany(ctx context.Context, items []models.Beneficiary) error
	Remove(ctx context.Context, programID, studentID string) error
	FindByProgramStudent(ctx context.Context, programID, studentID string) (*models.Beneficiary, error)
	ListByProgram(ctx context.Context, programID string) ([]models.Beneficiary, error)
	ListDetailsByStudents(ctx context.Context, studentIDs []string) ([]models.BeneficiaryDetail, error)
	UpsertAttendance(ctx context.Context, attendance *models.FeedingAttendance) error
	AttendanceTallies(ctx context.Context, programID string) ([]models.AttendanceTally, error)
}

type rosterStudentReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

// FeedingProgramService manages programs, enrollment and outcome reporting.
type FeedingProgramService struct {
	programs      feedingProgramRepository
	beneficiaries beneficiaryRepository
	students      rosterStudentReader
	sources       SnapshotSources
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewFeedingProgramService constructs a FeedingProgramService.
func NewFeedingProgramService(programs feedingProgramRepository, beneficiaries beneficiaryRepository, students rosterStudentReader, sources SnapshotSources, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *FeedingProgramService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedingProgramService{
		programs:      programs,
		beneficiaries: beneficiaries,
		students:      students,
		sources:       sources,
		cache:         cache,
		validator:     validate,
		logger:        logger,
		now:           SchoolClock(nil),
	}
}

// WithClock overrides the time source that decides which calendar day it is.
func (s *FeedingProgramService) WithClock(clock Clock) *FeedingProgramService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// List returns programs with their effective status.
func (s *FeedingProgramService) List(ctx context.Context, filter models.FeedingProgramFilter) ([]dto.FeedingProgramResponse, *models.Pagination, error) {
	programs, total, err := s.programs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feeding programs")
	}
	today := s.now()
	out := make([]dto.FeedingProgramResponse, 0, len(programs))
	for _, p := range programs {
		out = append(out, programResponse(p, today))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return out, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one program with its roster size.
func (s *FeedingProgramService) Get(ctx context.Context, id string) (*dto.FeedingProgramResponse, error) {
	program, err := s.loadProgram(ctx, id)
	if err != nil {
		return nil, err
	}
	roster, err := s.beneficiaries.ListByProgram(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list beneficiaries")
	}
	resp := programResponse(*program, s.now())
	count := len(roster)
	resp.BeneficiaryCount = &count
	return &resp, nil
}

// Create opens a new active program.
func (s *FeedingProgramService) Create(ctx context.Context, req dto.FeedingProgramRequest) (*dto.FeedingProgramResponse, error) {
	if err := s.validateProgram(req); err != nil {
		return nil, err
	}
	program := &models.FeedingProgram{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      models.ProgramStatusActive,
	}
	if err := s.programs.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create feeding program")
	}
	s.invalidate(ctx)
	resp := programResponse(*program, s.now())
	return &resp, nil
}

// Update modifies name, description and dates. The stored status is untouched.
func (s *FeedingProgramService) Update(ctx context.Context, id string, req dto.FeedingProgramRequest) (*dto.FeedingProgramResponse, error) {
	if err := s.validateProgram(req); err != nil {
		return nil, err
	}
	program, err := s.loadProgram(ctx, id)
	if err != nil {
		return nil, err
	}
	program.Name = req.Name
	program.Description = req.Description
	program.StartDate = req.StartDate
	program.EndDate = req.EndDate
	if err := s.programs.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update feeding program")
	}
	s.invalidate(ctx)
	resp := programResponse(*program, s.now())
	return &resp, nil
}

// End marks the program ended, keeping an existing end date.
func (s *FeedingProgramService) End(ctx context.Context, id string) (*dto.FeedingProgramResponse, error) {
	program, err := s.loadProgram(ctx, id)
	if err != nil {
		return nil, err
	}
	today := s.now()
	endDate := calendarDay(today)
	if err := s.programs.End(ctx, id, endDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end feeding program")
	}
	program.Status = models.ProgramStatusEnded
	if program.EndDate == nil {
		program.EndDate = &endDate
	}
	s.invalidate(ctx)
	resp := programResponse(*program, today)
	return &resp, nil
}

// AddBeneficiaries enrolls students. Students already in any truly active
// program are rejected, as is an ended program.
func (s *FeedingProgramService) AddBeneficiaries(ctx context.Context, programID string, req dto.AddBeneficiariesRequest) ([]models.Beneficiary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid beneficiary payload")
	}
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	today := s.now()
	if !nutrition.IsTrulyActive(*program, today) {
		return nil, appErrors.Clone(appErrors.ErrProgramEnded, "cannot enroll into an ended program")
	}

	ids := uniqueStrings(req.StudentIDs)
	students, err := s.students.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) != len(ids) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more students not found")
	}

	existing, err := s.beneficiaries.ListDetailsByStudents(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollments")
	}
	for _, d := range existing {
		if nutrition.IsTrulyActive(d.Program(), today) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student "+d.StudentID+" is already enrolled in active program "+d.ProgramName)
		}
	}

	enrolled := calendarDay(today)
	if req.EnrollmentDate != nil {
		enrolled = req.EnrollmentDate.UTC()
	}
	items := make([]models.Beneficiary, 0, len(ids))
	for _, id := range ids {
		items = append(items, models.Beneficiary{ProgramID: programID, StudentID: id, EnrollmentDate: enrolled})
	}
	if err := s.beneficiaries.AddMany(ctx, items); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add beneficiaries")
	}
	s.invalidate(ctx)
	return items, nil
}

// RemoveBeneficiary hard deletes an enrollment together with its attendance.
func (s *FeedingProgramService) RemoveBeneficiary(ctx context.Context, programID, studentID string) error {
	if err := s.beneficiaries.Remove(ctx, programID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "beneficiary not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove beneficiary")
	}
	s.invalidate(ctx)
	return nil
}

// RecordAttendance marks a feeding day for one beneficiary.
func (s *FeedingProgramService) RecordAttendance(ctx context.Context, programID string, req dto.FeedingAttendanceRequest) (*models.FeedingAttendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	beneficiary, err := s.beneficiaries.FindByProgramStudent(ctx, programID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this program")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load beneficiary")
	}
	y, m, d := req.Date.UTC().Date()
	attendance := &models.FeedingAttendance{
		BeneficiaryID: beneficiary.ID,
		Date:          time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Present:       req.Present,
	}
	if err := s.beneficiaries.UpsertAttendance(ctx, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return attendance, nil
}

// Eligible lists students qualifying for feeding. Global scope excludes anyone in
// a truly active program; program scope excludes only that program's roster.
func (s *FeedingProgramService) Eligible(ctx context.Context, programID string, scope nutrition.ExclusionScope, gradeLevel string) ([]dto.EligibleStudentResponse, error) {
	switch scope {
	case "":
		scope = nutrition.ScopeGlobal
	case nutrition.ScopeGlobal:
	case nutrition.ScopeProgram:
		if programID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "programId is required for program scope")
		}
		if _, err := s.loadProgram(ctx, programID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "scope must be global or program")
	}

	snap, err := loadSnapshot(ctx, s.sources, models.MeasurementFilter{GradeLevel: gradeLevel}, s.now())
	if err != nil {
		return nil, err
	}
	eligible := nutrition.EligibleStudents(snap.statuses(), snap.beneficiaries, snap.programs, nutrition.EligibilityQuery{
		Scope:     scope,
		ProgramID: programID,
		Today:     snap.today,
	})
	out := make([]dto.EligibleStudentResponse, 0, len(eligible))
	for _, e := range eligible {
		student := snap.studentsByID[e.StudentID]
		m := snap.latest[e.StudentID]
		out = append(out, dto.EligibleStudentResponse{
			StudentID:  e.StudentID,
			FullName:   student.FullName,
			GradeLevel: student.GradeLevel,
			Section:    student.Section,
			Tier:       e.Tier,
			Status:     e.Status,
			MeasuredAt: m.MeasuredAt,
		})
	}
	return out, nil
}

// Detail returns the roster with baseline, current status and trend per beneficiary.
func (s *FeedingProgramService) Detail(ctx context.Context, programID string) (*dto.FeedingProgramDetail, error) {
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	roster, err := s.beneficiaries.ListByProgram(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list beneficiaries")
	}
	var (
		view    *rosterView
		tallies []models.AttendanceTally
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		view, err = loadRoster(gctx, s.students, s.sources.Measurements, roster)
		return err
	})
	if len(roster) > 0 {
		g.Go(func() error {
			var err error
			tallies, err = s.beneficiaries.AttendanceTallies(gctx, programID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program roster")
	}

	tallyByBeneficiary := make(map[string]models.AttendanceTally, len(tallies))
	for _, t := range tallies {
		tallyByBeneficiary[t.BeneficiaryID] = t
	}

	today := s.now()
	detail := &dto.FeedingProgramDetail{
		Program:       programResponse(*program, today),
		Beneficiaries: make([]dto.BeneficiaryProgress, 0, len(roster)),
	}
	count := len(roster)
	detail.Program.BeneficiaryCount = &count
	for _, b := range roster {
		student, baseline, current, trend := view.progress(b)
		tally := tallyByBeneficiary[b.ID]
		detail.Beneficiaries = append(detail.Beneficiaries, dto.BeneficiaryProgress{
			StudentID:      b.StudentID,
			FullName:       student.FullName,
			GradeLevel:     student.GradeLevel,
			EnrollmentDate: b.EnrollmentDate,
			Baseline:       baseline,
			Current:        current,
			Trend:          trend,
			DaysPresent:    tally.DaysPresent,
			DaysRecorded:   tally.DaysRecorded,
		})
		detail.Trends.Add(trend)
	}
	return detail, nil
}

func (s *FeedingProgramService) loadProgram(ctx context.Context, id string) (*models.FeedingProgram, error) {
	program, err := s.programs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feeding program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feeding program")
	}
	return program, nil
}

func (s *FeedingProgramService) validateProgram(req dto.FeedingProgramRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feeding program payload")
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	return nil
}

func (s *FeedingProgramService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAggregates(ctx); err != nil {
		s.logger.Warn("aggregate cache invalidation failed", zap.Error(err))
	}
}

func programResponse(p models.FeedingProgram, today time.Time) dto.FeedingProgramResponse {
	return dto.FeedingProgramResponse{FeedingProgram: p, EffectiveStatus: nutrition.EffectiveStatus(p, today)}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
