package notifications

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolRunsSubmittedJobs(t *testing.T) {
	pool := newWorkerPool(context.Background(), 2, 8)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if !pool.Submit(func(ctx context.Context) { ran.Add(1) }) {
			t.Fatal("submit rejected with room in the queue")
		}
	}
	pool.Close()

	if got := ran.Load(); got != 5 {
		t.Fatalf("expected 5 jobs run, got %d", got)
	}
}

func TestWorkerPoolCloseDrainsQueue(t *testing.T) {
	block := make(chan struct{})
	pool := newWorkerPool(context.Background(), 1, 8)

	var ran atomic.Int32
	pool.Submit(func(ctx context.Context) { <-block; ran.Add(1) })
	pool.Submit(func(ctx context.Context) { ran.Add(1) })

	close(block)
	pool.Close()

	if got := ran.Load(); got != 2 {
		t.Fatalf("expected queued jobs drained on close, got %d", got)
	}
}

func TestWorkerPoolRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	pool := newWorkerPool(context.Background(), 1, 1)

	// Occupy the single worker, then fill the single queue slot.
	pool.Submit(func(ctx context.Context) { <-block })
	for !pool.Submit(func(ctx context.Context) {}) {
	}

	if pool.Submit(func(ctx context.Context) {}) {
		t.Fatal("expected rejection when the queue is full")
	}

	close(block)
	pool.Close()
}

func TestWorkerPoolRejectsAfterClose(t *testing.T) {
	pool := newWorkerPool(context.Background(), 1, 1)
	pool.Close()

	if pool.Submit(func(ctx context.Context) {}) {
		t.Fatal("expected rejection after close")
	}
	if pool.Submit(nil) {
		t.Fatal("nil jobs are never accepted")
	}
	pool.Close()
}
