package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-api/internal/models"
	"github.com/noah-isme/simulacro-api/internal/scoring"
)

// RankingCachePattern matches every cached performance payload.
const RankingCachePattern = "perf:*"

type performanceComputer interface {
	StudentPerformance(ctx context.Context, studentID string, phase models.Phase) (*models.StudentPerformance, error)
	StudentProgress(ctx context.Context, studentID string) ([]models.StudentPerformance, error)
	Diagnostics(ctx context.Context, studentID string, phase models.Phase) ([]models.TopicDiagnostic, error)
	Student(ctx context.Context, studentID string) (*models.Student, error)
	StudentRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.RankingEntry, error)
	InstitutionRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, error)
	CampusRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, error)
	Average(ctx context.Context, filter models.PerformanceFilter) (*models.PerformanceAverage, error)
}

// CachedPerformanceService serves population-level results through the cache.
// Per-student reads always go to the result store.
type CachedPerformanceService struct {
	inner  performanceComputer
	cache  *CacheService
	logger *zap.Logger
	ttl    time.Duration
}

// NewCachedPerformanceService wraps inner with the cache.
func NewCachedPerformanceService(inner performanceComputer, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CachedPerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedPerformanceService{inner: inner, cache: cache, logger: logger, ttl: ttl}
}

// StudentPerformance delegates without caching.
func (s *CachedPerformanceService) StudentPerformance(ctx context.Context, studentID string, phase models.Phase) (*models.StudentPerformance, error) {
	return s.inner.StudentPerformance(ctx, studentID, phase)
}

// StudentProgress delegates without caching.
func (s *CachedPerformanceService) StudentProgress(ctx context.Context, studentID string) ([]models.StudentPerformance, error) {
	return s.inner.StudentProgress(ctx, studentID)
}

// Diagnostics delegates without caching.
func (s *CachedPerformanceService) Diagnostics(ctx context.Context, studentID string, phase models.Phase) ([]models.TopicDiagnostic, error) {
	return s.inner.Diagnostics(ctx, studentID, phase)
}

// Student delegates without caching.
func (s *CachedPerformanceService) Student(ctx context.Context, studentID string) (*models.Student, error) {
	return s.inner.Student(ctx, studentID)
}

// StudentRanking returns the student ranking. The boolean reports a cache hit.
func (s *CachedPerformanceService) StudentRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.RankingEntry, bool, error) {
	key := makeRankingCacheKey("students", filter)
	var cached []models.RankingEntry
	if hit := s.lookup(ctx, key, &cached); hit {
		return cached, true, nil
	}
	entries, err := s.inner.StudentRanking(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, key, entries)
	return entries, false, nil
}

// InstitutionRanking returns the institution ranking. The boolean reports a cache hit.
func (s *CachedPerformanceService) InstitutionRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, bool, error) {
	return s.groupRanking(ctx, "institutions", filter, s.inner.InstitutionRanking)
}

// CampusRanking returns the campus ranking. The boolean reports a cache hit.
func (s *CachedPerformanceService) CampusRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, bool, error) {
	return s.groupRanking(ctx, "campuses", filter, s.inner.CampusRanking)
}

// Average returns the population average. The boolean reports a cache hit.
func (s *CachedPerformanceService) Average(ctx context.Context, filter models.PerformanceFilter) (*models.PerformanceAverage, bool, error) {
	key := makeRankingCacheKey("average", filter)
	var cached models.PerformanceAverage
	if hit := s.lookup(ctx, key, &cached); hit {
		return &cached, true, nil
	}
	avg, err := s.inner.Average(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, key, avg)
	return avg, false, nil
}

// Invalidate drops every cached performance payload.
func (s *CachedPerformanceService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, RankingCachePattern)
}

func (s *CachedPerformanceService) groupRanking(ctx context.Context, kind string, filter models.PerformanceFilter, compute func(context.Context, models.PerformanceFilter) ([]models.GroupRanking, error)) ([]models.GroupRanking, bool, error) {
	key := makeRankingCacheKey(kind, filter)
	var cached []models.GroupRanking
	if hit := s.lookup(ctx, key, &cached); hit {
		return cached, true, nil
	}
	groups, err := compute(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, key, groups)
	return groups, false, nil
}

// lookup treats cache errors as misses; the ranking is always recomputable.
func (s *CachedPerformanceService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("ranking cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *CachedPerformanceService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("ranking cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func makeRankingCacheKey(kind string, filter models.PerformanceFilter) string {
	year := ""
	if filter.AcademicYear > 0 {
		year = strconv.Itoa(filter.AcademicYear)
	}
	parts := []string{
		keyPart(filter.InstitutionID),
		keyPart(filter.CampusID),
		keyPart(filter.GradeID),
		keyPart(scoring.Fold(filter.Jornada)),
		year,
	}
	return fmt.Sprintf("perf:%s:%s:%s", kind, filter.Phase, strings.Join(parts, ":"))
}

func keyPart(value string) string {
	if scoring.Unrestricted(value) {
		return "all"
	}
	return strings.TrimSpace(value)
}
