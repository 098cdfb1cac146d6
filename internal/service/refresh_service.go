package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/simulacro-api/internal/models"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
	"github.com/noah-isme/simulacro-api/pkg/jobs"
)

// RefreshJobType identifies ranking refresh jobs on the queue.
const RefreshJobType = "ranking_refresh"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type rankingWarmer interface {
	Invalidate(ctx context.Context) error
	StudentRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.RankingEntry, bool, error)
	InstitutionRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, bool, error)
	CampusRanking(ctx context.Context, filter models.PerformanceFilter) ([]models.GroupRanking, bool, error)
	Average(ctx context.Context, filter models.PerformanceFilter) (*models.PerformanceAverage, bool, error)
}

// RefreshRequest is the payload of a ranking refresh job.
type RefreshRequest struct {
	Filter models.PerformanceFilter `json:"filter"`
	Phases []models.Phase           `json:"phases"`
}

// RefreshTicket acknowledges an enqueued refresh.
type RefreshTicket struct {
	JobID    string         `json:"job_id"`
	Phases   []models.Phase `json:"phases"`
	Enqueued time.Time      `json:"enqueued_at"`
}

// RefreshService enqueues ranking recomputation.
type RefreshService struct {
	queue  jobDispatcher
	logger *zap.Logger
	now    func() time.Time
}

// NewRefreshService constructs a RefreshService.
func NewRefreshService(queue jobDispatcher, logger *zap.Logger) *RefreshService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshService{queue: queue, logger: logger, now: time.Now}
}

// Request enqueues a refresh. No phases means every phase.
func (s *RefreshService) Request(filter models.PerformanceFilter, phases ...models.Phase) (*RefreshTicket, error) {
	if len(phases) == 0 {
		phases = append([]models.Phase(nil), models.Phases...)
	}
	for _, phase := range phases {
		if err := validatePhase(phase); err != nil {
			return nil, err
		}
	}
	filter.Phase = ""
	ticket := &RefreshTicket{JobID: uuid.NewString(), Phases: phases, Enqueued: s.now().UTC()}
	job := jobs.Job{
		ID:       ticket.JobID,
		Type:     RefreshJobType,
		Key:      refreshJobKey(filter, phases),
		Payload:  RefreshRequest{Filter: filter, Phases: phases},
		Enqueued: ticket.Enqueued,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue ranking refresh", zap.String("job_id", job.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue ranking refresh")
	}
	return ticket, nil
}

// refreshJobKey identifies equivalent refreshes so a burst of requests
// collapses into one pending job.
func refreshJobKey(filter models.PerformanceFilter, phases []models.Phase) string {
	parts := make([]string, 0, len(phases))
	for _, phase := range phases {
		parts = append(parts, string(phase))
	}
	return makeRankingCacheKey("refresh", filter) + ":" + strings.Join(parts, ",")
}

// Schedule registers a cron trigger that refreshes every phase. Overlapping
// runs are skipped. The caller owns Start and Stop of the returned scheduler.
func (s *RefreshService) Schedule(spec string) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(spec, func() {
		ticket, err := s.Request(models.PerformanceFilter{})
		if err != nil {
			return
		}
		s.logger.Info("scheduled ranking refresh enqueued", zap.String("job_id", ticket.JobID))
	}); err != nil {
		return nil, fmt.Errorf("schedule ranking refresh %q: %w", spec, err)
	}
	return scheduler, nil
}

// RefreshWorker bridges queue jobs to the cached performance service.
type RefreshWorker struct {
	rankings rankingWarmer
	logger   *zap.Logger
}

// NewRefreshWorker constructs a worker.
func NewRefreshWorker(rankings rankingWarmer, logger *zap.Logger) *RefreshWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshWorker{rankings: rankings, logger: logger}
}

// Handle drops cached rankings and recomputes them for each requested phase.
func (w *RefreshWorker) Handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(RefreshRequest)
	if !ok {
		return fmt.Errorf("refresh job %s: unexpected payload %T", job.ID, job.Payload)
	}
	start := time.Now()
	if err := w.rankings.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate rankings: %w", err)
	}
	for _, phase := range req.Phases {
		filter := req.Filter
		filter.Phase = phase
		if _, _, err := w.rankings.StudentRanking(ctx, filter); err != nil {
			return fmt.Errorf("refresh student ranking %s: %w", phase, err)
		}
		if _, _, err := w.rankings.InstitutionRanking(ctx, filter); err != nil {
			return fmt.Errorf("refresh institution ranking %s: %w", phase, err)
		}
		if _, _, err := w.rankings.CampusRanking(ctx, filter); err != nil {
			return fmt.Errorf("refresh campus ranking %s: %w", phase, err)
		}
		if _, _, err := w.rankings.Average(ctx, filter); err != nil {
			return fmt.Errorf("refresh average %s: %w", phase, err)
		}
	}
	w.logger.Info("ranking refresh finished",
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
