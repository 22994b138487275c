package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// PlacementFacade exposes the subset of application functionality the triggers need.
type PlacementFacade interface {
	AwaitingNotification(ctx context.Context, limit int) ([]string, error)
	NotifyPlaced(ctx context.Context, orderID string, source model.TriggerSource) (bool, error)
}

// Sweeper periodically re-offers placed orders whose first notification was never claimed.
type Sweeper struct {
	facade    PlacementFacade
	interval  time.Duration
	batchSize int
	workers   int
	logger    *slog.Logger

	jobs   chan string
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewSweeper constructs the sweep worker pool.
func NewSweeper(facade PlacementFacade, interval time.Duration, batchSize, workers int, logger *slog.Logger) *Sweeper {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Sweeper{
		facade:    facade,
		interval:  interval,
		batchSize: batchSize,
		workers:   workers,
		logger:    logger,
	}
}

// Start launches background sweeping. The sweep runs until Stop or ctx cancellation.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.jobs = make(chan string, s.batchSize)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx, s.jobs)
	}

	s.wg.Add(1)
	go s.dispatch(runCtx, s.jobs)
}

// Stop waits for all workers to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// RunOnce performs a single synchronous sweep and reports how many orders it notified.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	ids, err := s.facade.AwaitingNotification(ctx, s.batchSize)
	if err != nil {
		return 0, err
	}
	notified := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return notified, ctx.Err()
		}
		if s.handle(ctx, id) {
			notified++
		}
	}
	return notified, nil
}

func (s *Sweeper) dispatch(ctx context.Context, jobs chan<- string) {
	defer s.wg.Done()
	defer close(jobs)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchAndDispatch(ctx, jobs)
		}
	}
}

func (s *Sweeper) fetchAndDispatch(ctx context.Context, jobs chan<- string) {
	ids, err := s.facade.AwaitingNotification(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("fetch orders awaiting notification failed", slog.String("error", err.Error()))
		return
	}
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		case jobs <- id:
		}
	}
}

func (s *Sweeper) worker(ctx context.Context, jobs <-chan string) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-jobs:
			if !ok {
				return
			}
			s.handle(ctx, id)
		}
	}
}

func (s *Sweeper) handle(ctx context.Context, orderID string) bool {
	sent, err := s.facade.NotifyPlaced(ctx, orderID, model.SourceSweep)
	if err != nil {
		s.logger.Warn("sweep notification failed", slog.String("order_id", orderID), slog.String("error", err.Error()))
		return false
	}
	if sent {
		s.logger.Info("sweep notified order", slog.String("order_id", orderID))
	}
	return sent
}
