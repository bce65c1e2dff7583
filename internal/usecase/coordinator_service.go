package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/statfuse/statfuse/internal/domain/rawrecord"
	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/platform/logging"
)

const defaultCoordinatorWorkers = 4

// RunRequest names one provider batch waiting to be ingested.
type RunRequest struct {
	Provider string
	Sport    sport.Sport
	Batch    []rawrecord.Record
}

// RunResult pairs a request with what happened to it.
type RunResult struct {
	Provider string
	Sport    sport.Sport
	Summary  RunSummary
	Err      error
}

// AlertPublisher pushes a finished run summary to an operator channel.
type AlertPublisher interface {
	PublishRunSummary(ctx context.Context, summary RunSummary, runErr error) error
}

type noopAlertPublisher struct{}

func (noopAlertPublisher) PublishRunSummary(_ context.Context, _ RunSummary, _ error) error {
	return nil
}

func NewNoopAlertPublisher() AlertPublisher {
	return noopAlertPublisher{}
}

// CoordinatorService fans provider batches out over a bounded worker
// pool. Runs for different providers are independent; storage
// uniqueness constraints arbitrate any overlap between them.
type CoordinatorService struct {
	ingestion *IngestionService
	alerts    AlertPublisher
	workers   int
	logger    *logging.Logger
}

func NewCoordinatorService(ingestion *IngestionService, alerts AlertPublisher, workers int, logger *logging.Logger) *CoordinatorService {
	if alerts == nil {
		alerts = NewNoopAlertPublisher()
	}
	if workers <= 0 {
		workers = defaultCoordinatorWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CoordinatorService{
		ingestion: ingestion,
		alerts:    alerts,
		workers:   workers,
		logger:    logger,
	}
}

// RunAll ingests every request concurrently and returns one result per
// request, ordered by provider then sport. A failed run is reported in
// its result, never by the returned error; that is reserved for pool
// setup.
func (s *CoordinatorService) RunAll(ctx context.Context, requests []RunRequest) ([]RunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CoordinatorService.RunAll")
	defer span.End()

	if len(requests) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan RunResult, len(requests))
	var failedCount atomic.Int32

	var workers sync.WaitGroup
	for _, request := range requests {
		request := request
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			summary, runErr := s.ingestion.Run(ctx, request.Provider, request.Sport, request.Batch)
			if runErr != nil {
				failedCount.Add(1)
				s.logger.ErrorContext(ctx, "ingestion run failed",
					"provider", request.Provider, "sport", request.Sport.String(), "error", runErr)
			}
			if alertErr := s.alerts.PublishRunSummary(ctx, summary, runErr); alertErr != nil {
				s.logger.WarnContext(ctx, "publish run summary alert",
					"provider", request.Provider, "error", alertErr)
			}

			results <- RunResult{
				Provider: summary.Provider,
				Sport:    request.Sport,
				Summary:  summary,
				Err:      runErr,
			}
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit run to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	out := make([]RunResult, 0, len(requests))
	for row := range results {
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Sport < out[j].Sport
	})

	if failed := failedCount.Load(); failed > 0 {
		s.logger.WarnContext(ctx, "coordinator finished with failed runs",
			"failed", failed, "total", len(requests))
	}
	return out, nil
}
