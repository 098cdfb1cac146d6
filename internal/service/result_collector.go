package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/simulacro-api/internal/models"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
)

// ResultRepository is the read-only store of exam attempts. Ping reports
// whether the store itself is reachable.
type ResultRepository interface {
	GetPhaseResults(ctx context.Context, studentID string, phase models.Phase) ([]models.ExamAttempt, error)
	Ping(ctx context.Context) error
}

// ResultCollectorConfig bounds the fan-out of per-student fetches.
type ResultCollectorConfig struct {
	Concurrency int
	Timeout     time.Duration
}

// ResultCollector fetches exam attempts for whole populations.
type ResultCollector struct {
	repo    ResultRepository
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ResultCollectorConfig
}

// StudentAttempts pairs a student with the attempts fetched for one phase.
type StudentAttempts struct {
	Student  models.Student
	Attempts []models.ExamAttempt
	Failed   bool
}

// NewResultCollector constructs a collector.
func NewResultCollector(repo ResultRepository, metrics *MetricsService, logger *zap.Logger, cfg ResultCollectorConfig) *ResultCollector {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCollector{repo: repo, metrics: metrics, logger: logger, cfg: cfg}
}

// Collect fetches the attempts of a single student, bounded by the per-student timeout.
func (c *ResultCollector) Collect(ctx context.Context, studentID string, phase models.Phase) ([]models.ExamAttempt, error) {
	fetchCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	attempts, err := c.repo.GetPhaseResults(fetchCtx, studentID, phase)
	c.metrics.ObserveDBQuery("exam_attempts", time.Since(start))
	return attempts, err
}

// CollectAll fetches every student's attempts with bounded concurrency.
// Results keep the order of students. A student whose fetch fails is logged,
// counted and returned with Failed set. The call itself fails when ctx is
// done, or when every fetch failed and the store no longer answers a ping.
func (c *ResultCollector) CollectAll(ctx context.Context, students []models.Student, phase models.Phase) ([]StudentAttempts, error) {
	results := make([]StudentAttempts, len(students))
	if len(students) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	var (
		mu       sync.Mutex
		failures int
		lastErr  error
	)
	for i := range students {
		i := i
		results[i].Student = students[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			attempts, err := c.Collect(gctx, students[i].ID, phase)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				failures++
				lastErr = err
				mu.Unlock()
				results[i].Failed = true
				c.metrics.RecordFetchFailure(phase)
				c.logger.Warn("exam result fetch failed",
					zap.String("student_id", students[i].ID),
					zap.String("phase", string(phase)),
					zap.Error(err),
				)
				return nil
			}
			results[i].Attempts = attempts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failures == len(students) {
		if err := c.ping(ctx); err != nil {
			c.logger.Error("exam result store unreachable",
				zap.String("phase", string(phase)),
				zap.Int("failed_students", failures),
				zap.NamedError("last_fetch_error", lastErr),
				zap.Error(err),
			)
			return nil, storeUnavailable(err)
		}
	}
	return results, nil
}

func (c *ResultCollector) ping(ctx context.Context) error {
	pingCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.repo.Ping(pingCtx)
}

func storeUnavailable(err error) error {
	return appErrors.Wrap(err, appErrors.ErrResultStoreUnavailable.Code, appErrors.ErrResultStoreUnavailable.Status, appErrors.ErrResultStoreUnavailable.Message)
}
