// Package pool implements a bounded worker pool: a fixed number of workers
// drain a finite batch of items from a shared claim queue, so concurrency is
// capped at the worker count regardless of batch size. The claim queue pulls
// work to whichever worker is free, which self-balances batches with highly
// variable per-item latency (network fetches in particular).
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// ProcessFunc handles a single item. Errors are confined to the item: they
// are counted and logged but never stop sibling workers.
type ProcessFunc func(ctx context.Context, item int) error

// Stats summarizes a finished batch.
type Stats struct {
	Processed int
	Failed    int
}

// Pool fans a finite batch of items out over a bounded set of workers.
// The zero configuration (New with no options) logs nowhere and records no
// metrics.
type Pool struct {
	logger  log.Logger
	metrics *Metrics
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for per-item failures and worker lifecycle.
func WithLogger(logger log.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// WithMetrics attaches Prometheus instrumentation to the pool.
func WithMetrics(m *Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// New creates a Pool.
func New(opts ...Option) *Pool {
	p := &Pool{logger: log.NewNopLogger()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run enqueues the items 0..itemCount-1, starts workerCount workers and
// blocks until every item has been processed and every worker has exited.
// Each item is delivered to exactly one worker, exactly once; completion
// order across items is unspecified.
//
// Cancelling ctx stops further claims: a worker already processing an item
// drains it, then exits, and Run returns ctx.Err() alongside the stats for
// the items that did complete.
func (p *Pool) Run(ctx context.Context, itemCount, workerCount int, process ProcessFunc) (Stats, error) {
	if itemCount < 0 {
		return Stats{}, errors.Errorf("pool: item count must not be negative, got %d", itemCount)
	}
	if workerCount < 1 {
		return Stats{}, errors.Errorf("pool: worker count must be at least 1, got %d", workerCount)
	}
	if process == nil {
		return Stats{}, errors.New("pool: process function must not be nil")
	}

	queue := newClaimQueue(itemCount)

	// Each worker accumulates its own counts; they are combined after the
	// join so no counter is ever shared between running workers.
	partials := make([]Stats, workerCount)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id, queue, process, &partials[id])
		}(i)
	}
	wg.Wait()

	var total Stats
	for _, s := range partials {
		total.Processed += s.Processed
		total.Failed += s.Failed
	}
	if err := ctx.Err(); err != nil {
		level.Warn(p.logger).Log("msg", "batch cancelled before the queue drained",
			"processed", total.Processed, "remaining", queue.Remaining())
		return total, err
	}
	return total, nil
}

// work is a single worker loop: claim, process, repeat until the queue is
// empty or the context is cancelled between claims.
func (p *Pool) work(ctx context.Context, id int, queue *claimQueue, process ProcessFunc, stats *Stats) {
	for ctx.Err() == nil {
		item, ok := queue.Claim()
		if !ok {
			return
		}
		stats.Processed++
		if err := p.processOne(ctx, item, process); err != nil {
			stats.Failed++
			level.Warn(p.logger).Log("msg", "item failed", "worker", id, "item", item, "err", err)
			if p.metrics != nil {
				p.metrics.failures.Inc()
			}
		}
		if p.metrics != nil {
			p.metrics.processed.Inc()
		}
	}
}

// processOne invokes process with panic confinement, so a panicking item is
// recorded as a failure instead of tearing down the process.
func (p *Pool) processOne(ctx context.Context, item int, process ProcessFunc) (err error) {
	if p.metrics != nil {
		p.metrics.inflight.Inc()
		start := time.Now()
		defer func() {
			p.metrics.inflight.Dec()
			p.metrics.duration.Observe(time.Since(start).Seconds())
		}()
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic processing item %d: %v", item, r)
		}
	}()
	return process(ctx, item)
}
