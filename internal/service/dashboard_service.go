package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

const dashboardRecentLimit = 10

type dashboardMeasurementReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.StudentMeasurement, error)
}

// DashboardService assembles the landing page overview.
type DashboardService struct {
	sources SnapshotSources
	recent  dashboardMeasurementReader
	cache   *CacheService
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(sources SnapshotSources, recent dashboardMeasurementReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{sources: sources, recent: recent, cache: cache, ttl: ttl, logger: logger, now: SchoolClock(nil)}
}

// WithClock overrides the time source used to decide which programs are active.
func (s *DashboardService) WithClock(clock Clock) *DashboardService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Overview returns per-grade distribution, the recent measurement feed and program outcomes.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardOverview, bool, error) {
	key := CacheKeyDashboard + "overview"
	var cached dto.DashboardOverview
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	today := s.now()
	snap, err := loadSnapshot(ctx, s.sources, models.MeasurementFilter{}, today)
	if err != nil {
		return nil, false, err
	}
	recent, err := s.recent.ListRecent(ctx, dashboardRecentLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent measurements")
	}

	overview := &dto.DashboardOverview{
		Distribution:       gradeDistribution(snap),
		RecentMeasurements: recentFeed(recent),
		Programs:           make([]dto.ProgramTrend, 0),
		GeneratedAt:        today,
	}
	active := snap.trulyActivePrograms()
	var enrolled []models.Beneficiary
	for _, p := range active {
		enrolled = append(enrolled, snap.programBeneficiaries(p.ID)...)
	}
	view, err := loadRoster(ctx, s.sources.Students, s.sources.Measurements, enrolled)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program rosters")
	}
	for _, p := range active {
		roster := snap.programBeneficiaries(p.ID)
		trends := view.trends(roster)
		overview.Programs = append(overview.Programs, dto.ProgramTrend{
			ProgramID:     p.ID,
			Name:          p.Name,
			Beneficiaries: len(roster),
			Trends:        trends,
		})
		overview.Trends.Merge(trends)
	}

	if err := s.cache.Set(ctx, key, overview, s.ttl); err != nil {
		s.logger.Debug("dashboard overview not cached", zap.Error(err))
	}
	return overview, false, nil
}

func gradeDistribution(snap *nutritionSnapshot) []dto.GradeDistribution {
	byGrade := make(map[string]*dto.GradeDistribution)
	for _, st := range snap.students {
		dist, ok := byGrade[st.GradeLevel]
		if !ok {
			dist = &dto.GradeDistribution{GradeLevel: st.GradeLevel, Counts: make(map[string]int)}
			byGrade[st.GradeLevel] = dist
		}
		_, status, measured := snap.current(st.ID)
		if measured {
			dist.Measured++
		}
		dist.Counts[string(status.BMIStatus)]++
	}

	out := make([]dto.GradeDistribution, 0, len(byGrade))
	for _, dist := range byGrade {
		out = append(out, *dist)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GradeLevel < out[j].GradeLevel })
	return out
}

func recentFeed(rows []models.StudentMeasurement) []dto.RecentMeasurement {
	feed := make([]dto.RecentMeasurement, 0, len(rows))
	for _, row := range rows {
		student := models.Student{ID: row.StudentID, BirthDate: row.BirthDate, Age: row.Age}
		_, status := classifyMeasurement(student, row.Measurement)
		feed = append(feed, dto.RecentMeasurement{
			StudentID:  row.StudentID,
			FullName:   row.FullName,
			GradeLevel: row.GradeLevel,
			Source:     row.Source,
			MeasuredAt: row.MeasuredAt,
			Status:     status,
		})
	}
	return feed
}

