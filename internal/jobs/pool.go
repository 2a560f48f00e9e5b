// -----------------------------------------------------------------------
// WorkerPool - Bounded concurrency for analyzer subprocess execution
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
)

// Task is one unit of queued work
type Task func(ctx context.Context)

// WorkerPool caps how many analyzer subprocesses run simultaneously.
// Submissions beyond the queue depth are rejected rather than blocking
// the HTTP handler.
type WorkerPool struct {
	workers int
	queue   chan Task
	logger  arbor.ILogger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerPool creates a pool with the given worker count and queue depth
func NewWorkerPool(workers, queueSize int, logger arbor.ILogger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &WorkerPool{
		workers: workers,
		queue:   make(chan Task, queueSize),
		logger:  logger,
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		name := fmt.Sprintf("job-worker-%d", i)
		common.SafeGo(p.logger, name, func() {
			defer p.wg.Done()
			p.run(ctx, name)
		})
	}

	p.logger.Info().
		Int("workers", p.workers).
		Int("queue_size", cap(p.queue)).
		Msg("Job worker pool started")
}

func (p *WorkerPool) run(ctx context.Context, name string) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Str("worker", name).Msg("Job worker stopped")
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			task(ctx)
		}
	}
}

// Submit enqueues a task, failing when the queue is full or the pool is
// not accepting work.
func (p *WorkerPool) Submit(task Task) error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return fmt.Errorf("worker pool is not running")
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return fmt.Errorf("job queue is full (%d pending)", cap(p.queue))
	}
}

// Stop cancels the workers and waits for in-flight tasks to finish
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Info().Msg("Job worker pool stopped")
}

// Pending returns the number of queued tasks, for status reporting
func (p *WorkerPool) Pending() int {
	return len(p.queue)
}
