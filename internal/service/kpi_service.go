package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
)

// KPIService computes headline nutrition indicators.
type KPIService struct {
	sources SnapshotSources
	cache   *CacheService
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewKPIService constructs a KPIService.
func NewKPIService(sources SnapshotSources, cache *CacheService, ttl time.Duration, logger *zap.Logger) *KPIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KPIService{sources: sources, cache: cache, ttl: ttl, logger: logger, now: SchoolClock(nil)}
}

// WithClock overrides the time source that decides which calendar day it is.
func (s *KPIService) WithClock(clock Clock) *KPIService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Summary returns the KPI summary, optionally narrowed to a grade level, and whether it came from cache.
func (s *KPIService) Summary(ctx context.Context, gradeLevel string) (*dto.KPISummary, bool, error) {
	scope := gradeLevel
	if scope == "" {
		scope = "all"
	}
	key := CacheKeyKPI + "summary:" + scope
	var cached dto.KPISummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	today := s.now()
	snap, err := loadSnapshot(ctx, s.sources, models.MeasurementFilter{GradeLevel: gradeLevel}, today)
	if err != nil {
		return nil, false, err
	}
	summary := buildKPISummary(snap)
	summary.GeneratedAt = today

	if err := s.cache.Set(ctx, key, summary, s.ttl); err != nil {
		s.logger.Debug("kpi summary not cached", zap.Error(err))
	}
	return summary, false, nil
}

func buildKPISummary(snap *nutritionSnapshot) *dto.KPISummary {
	summary := &dto.KPISummary{
		TotalStudents:   len(snap.students),
		BMIStatusCounts: make(map[string]int, len(nutrition.BMIStatuses)),
		HFAStatusCounts: make(map[string]int, len(nutrition.HFAStatuses)),
	}
	for _, st := range nutrition.BMIStatuses {
		summary.BMIStatusCounts[string(st)] = 0
	}
	for _, st := range nutrition.HFAStatuses {
		summary.HFAStatusCounts[string(st)] = 0
	}

	statuses := snap.statuses()
	summary.MeasuredStudents = len(statuses)
	for _, st := range statuses {
		summary.BMIStatusCounts[string(st.Status.BMIStatus)]++
		summary.HFAStatusCounts[string(st.Status.HFAStatus)]++
		switch nutrition.ClassifyEligibility(st.Status) {
		case nutrition.TierPrimary:
			summary.PrimaryCount++
		case nutrition.TierSecondary:
			summary.SecondaryCount++
		}
	}
	unmeasured := summary.TotalStudents - summary.MeasuredStudents
	summary.BMIStatusCounts[string(nutrition.BMINotAvailable)] += unmeasured
	summary.HFAStatusCounts[string(nutrition.HFANotAvailable)] += unmeasured

	summary.AwaitingEnrollment = len(nutrition.EligibleStudents(statuses, snap.beneficiaries, snap.programs, nutrition.EligibilityQuery{
		Scope: nutrition.ScopeGlobal,
		Today: snap.today,
	}))

	enrolled := nutrition.ActivelyEnrolled(snap.beneficiaries, snap.programs, snap.today)
	for id := range enrolled {
		if _, ok := snap.studentsByID[id]; ok {
			summary.ActiveBeneficiaries++
		}
	}
	summary.ActivePrograms = len(snap.trulyActivePrograms())
	return summary
}
