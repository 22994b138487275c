package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

const (
	defaultFeedBackoff    = time.Second
	defaultFeedMaxBackoff = 30 * time.Second
)

// Feed delivers ids of newly placed orders until it fails or ctx ends.
type Feed interface {
	Listen(ctx context.Context, handle func(ctx context.Context, orderID string)) error
}

// ChangeFeedSubscriber keeps a change feed subscription alive and triggers placement notifications.
type ChangeFeedSubscriber struct {
	feed       Feed
	facade     PlacementFacade
	backoff    time.Duration
	maxBackoff time.Duration
	logger     *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewChangeFeedSubscriber constructs the subscriber. backoff is the first reconnect delay; it doubles up to maxBackoff.
func NewChangeFeedSubscriber(feed Feed, facade PlacementFacade, backoff, maxBackoff time.Duration, logger *slog.Logger) *ChangeFeedSubscriber {
	if backoff <= 0 {
		backoff = defaultFeedBackoff
	}
	if maxBackoff < backoff {
		maxBackoff = defaultFeedMaxBackoff
		if maxBackoff < backoff {
			maxBackoff = backoff
		}
	}
	return &ChangeFeedSubscriber{
		feed:       feed,
		facade:     facade,
		backoff:    backoff,
		maxBackoff: maxBackoff,
		logger:     logger,
	}
}

// Start subscribes in the background.
func (c *ChangeFeedSubscriber) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.run(runCtx)
}

// Stop cancels the subscription and waits for the in-flight notification.
func (c *ChangeFeedSubscriber) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *ChangeFeedSubscriber) run(ctx context.Context) {
	defer c.wg.Done()
	delay := c.backoff
	for {
		delivered := false
		err := c.feed.Listen(ctx, func(ctx context.Context, orderID string) {
			delivered = true
			c.handle(ctx, orderID)
		})
		if ctx.Err() != nil {
			return
		}
		if delivered {
			delay = c.backoff
		}
		attrs := []any{slog.Duration("retry_in", delay)}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		c.logger.Warn("change feed disconnected", attrs...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay *= 2
		if delay > c.maxBackoff {
			delay = c.maxBackoff
		}
	}
}

func (c *ChangeFeedSubscriber) handle(ctx context.Context, orderID string) {
	sent, err := c.facade.NotifyPlaced(ctx, orderID, model.SourceChangeFeed)
	if err != nil {
		c.logger.Warn("change feed notification failed", slog.String("order_id", orderID), slog.String("error", err.Error()))
		return
	}
	c.logger.Info("change feed event handled", slog.String("order_id", orderID), slog.Bool("sent", sent))
}
