package restructure

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool is the background worker pool spec §5 calls "the background queue:
// bounded or unbounded, multiple producers (any foreground thread), one or
// more consumers (worker pool)". Producers call Submit; an errgroup.Group
// owns the fixed set of consumer goroutines, and a semaphore.Weighted caps
// how many jobs the pool executes concurrently, independent of how many
// workers are draining the queue — this lets a pool run with few
// goroutines but still throttle job concurrency below the worker count if
// a caller wants jobs serialized further (e.g. during a benchmark run).
type Pool[P any] struct {
	queue chan *Job[P]
	sem   *semaphore.Weighted
	group *errgroup.Group
	ctx   context.Context

	exec func(context.Context, *Job[P]) error

	mu       sync.Mutex
	numRun   int64
	numError int64
}

// NewPool builds a Pool with numWorkers consumer goroutines and a job
// concurrency cap of maxConcurrent (spec §4.5's worker pool; sized via
// rmindex.Config's WithWorkerPoolSize). exec is the engine entry point
// (Engine.Execute) run for each dequeued job.
func NewPool[P any](numWorkers, maxConcurrent, queueDepth int, exec func(context.Context, *Job[P]) error) *Pool[P] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if maxConcurrent < 1 {
		maxConcurrent = numWorkers
	}
	if queueDepth < 1 {
		queueDepth = numWorkers * 4
	}
	return &Pool[P]{
		queue: make(chan *Job[P], queueDepth),
		sem:   semaphore.NewWeighted(int64(maxConcurrent)),
		exec:  exec,
	}
}

// Submit enqueues job, reporting false if the queue is full and the caller
// should fall back to ErrRetryLater rather than block (spec §5: a
// foreground writer must never wait on the background queue).
func (p *Pool[P]) Submit(job *Job[P]) bool {
	select {
	case p.queue <- job:
		return true
	default:
		return false
	}
}

// Start launches numWorkers consumer goroutines bound to ctx; Stop drains
// the queue and waits for in-flight jobs to finish, while ctx cancellation
// makes the workers return without draining it. Start may only be called
// once per Pool.
func (p *Pool[P]) Start(ctx context.Context, numWorkers int) {
	g, gctx := errgroup.WithContext(ctx)
	p.group = g
	p.ctx = gctx

	for i := 0; i < numWorkers; i++ {
		g.Go(func() error {
			return p.runWorker(gctx)
		})
	}
}

func (p *Pool[P]) runWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job, ok := <-p.queue:
			if !ok {
				return nil
			}
			p.runJob(ctx, job)
		}
	}
}

func (p *Pool[P]) runJob(ctx context.Context, job *Job[P]) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer p.sem.Release(1)

	err := p.exec(ctx, job)

	p.mu.Lock()
	p.numRun++
	if err != nil {
		p.numError++
	}
	p.mu.Unlock()
}

// Stop closes the queue and waits for every in-flight and already-queued
// job to finish (or ctx passed to Start to be canceled).
func (p *Pool[P]) Stop() error {
	close(p.queue)
	if p.group == nil {
		return nil
	}
	return p.group.Wait()
}

// Stats returns the number of jobs run and how many returned an error,
// used by rmindex.Index.Stats to fill JobsRun/JobsFailed; expansions and
// restructures are not counted separately.
func (p *Pool[P]) Stats() (ran, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numRun, p.numError
}

// QueueDepth reports how many jobs are currently waiting, reported through
// rmindex.Index.Stats; the restructuring decision does not consult it.
func (p *Pool[P]) QueueDepth() int { return len(p.queue) }
