package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllSubmittedJobs(t *testing.T) {
	p := New(3)

	var count int64
	var wg sync.WaitGroup
	wg.Add(50)
	for i := 0; i < 50; i++ {
		p.Submit(func() {
			atomic.AddInt64(&count, 1)
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for submitted jobs to run")
	}

	if got := atomic.LoadInt64(&count); got != 50 {
		t.Errorf("ran %d jobs, want 50", got)
	}

	p.Shutdown()
}

func TestPoolDefaultsSizeWhenNonPositive(t *testing.T) {
	p := New(0)
	defer p.Shutdown()

	done := make(chan struct{})
	p.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job submitted to a zero-size pool never ran")
	}
}

func TestPoolShutdownIsIdempotentAndWaits(t *testing.T) {
	p := New(2)

	var ran int64
	p.Submit(func() { atomic.AddInt64(&ran, 1) })
	p.Submit(func() { atomic.AddInt64(&ran, 1) })

	p.Shutdown()
	p.Shutdown() // must not panic or block forever

	if got := atomic.LoadInt64(&ran); got != 2 {
		t.Errorf("ran = %d, want 2", got)
	}
}
