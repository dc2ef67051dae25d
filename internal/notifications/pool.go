package notifications

import (
	"context"
	"sync"
)

// dispatchJob is one unit of asynchronous delivery work.
type dispatchJob func(ctx context.Context)

// workerPool runs dispatch jobs on a fixed set of goroutines behind a bounded
// queue. Submissions never block the creation path: a full queue rejects.
type workerPool struct {
	jobs chan dispatchJob
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newWorkerPool(ctx context.Context, workers, queueSize int) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	p := &workerPool{jobs: make(chan dispatchJob, queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job(ctx)
			}
		}()
	}
	return p
}

// Submit enqueues a job. It reports false when the queue is full or the pool
// is closed; the caller decides whether that matters.
func (p *workerPool) Submit(job dispatchJob) bool {
	if job == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Close stops accepting work and blocks until queued jobs finish.
func (p *workerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
