package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrWorkerPoolClosed = errors.New("worker pool is closed")
	ErrJobPanicked      = errors.New("worker pool job panicked")
)

// WorkerPool runs submitted jobs on a fixed number of goroutines and
// collects the errors they return.
type WorkerPool struct {
	jobs   chan func() error
	closed bool
	mu     sync.RWMutex
	once   sync.Once
	wg     sync.WaitGroup

	errMu sync.Mutex
	errs  []error
}

func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}

	p := &WorkerPool{
		jobs: make(chan func() error, queueSize),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				if err := p.run(job); err != nil {
					p.errMu.Lock()
					p.errs = append(p.errs, err)
					p.errMu.Unlock()
				}
			}
		}()
	}

	return p
}

// run executes one job, turning a panic into ErrJobPanicked so one bad job
// does not take the remaining workers down.
func (p *WorkerPool) run(job func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return job()
}

// Submit queues job, blocking while the queue is full.
func (p *WorkerPool) Submit(ctx context.Context, job func() error) error {
	if job == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrWorkerPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Close stops accepting jobs. Queued jobs still run.
func (p *WorkerPool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
}

// Wait blocks until every queued job finished and returns their joined errors.
// Call Close first, otherwise Wait never returns.
func (p *WorkerPool) Wait() error {
	p.wg.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return errors.Join(p.errs...)
}
