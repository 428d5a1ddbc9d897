// Package worker runs background work for the client: terminology
// prefetching and fire-and-forget history logging.
package worker

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when submitting to a closed pool
var ErrClosed = errors.New("worker pool closed")

// Job is a unit of background work
type Job interface {
	Execute(ctx context.Context) error
}

// JobFunc adapts a function to Job
type JobFunc func(ctx context.Context) error

// Execute calls f
func (f JobFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Pool executes submitted jobs on a fixed set of workers.
// Errors are handed to the pool's error handler; nobody waits on a job.
type Pool struct {
	workers  int
	jobQueue chan Job
	onError  func(error)

	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewPool creates a pool with the given number of workers.
// onError may be nil.
func NewPool(workers int, onError func(error)) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if onError == nil {
		onError = func(error) {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, workers*4),
		onError:  onError,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if p.ctx.Err() != nil {
			continue
		}
		if err := job.Execute(p.ctx); err != nil {
			p.onError(err)
		}
	}
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return ErrClosed
	}
}

// Close stops accepting jobs and waits for queued ones to finish
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobQueue)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// Shutdown cancels running jobs, drops queued ones and waits for the workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.Close()
}
