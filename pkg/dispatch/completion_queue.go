package dispatch

import "sync"

// call is one in-flight RPC plus the correlation data its digest needs —
// the Go analogue of the reference controller's AsyncLearnerCall<T>.
type call[T any] struct {
	learnerID string
	refIdx    int
	result    T
	err       error
}

// completionQueue is a FIFO of finished calls, playing the role of
// grpc::CompletionQueue: submit launches work in its own goroutine and
// posts the finished call to the channel on completion (not on launch);
// next drains it in completion order; shutdown causes next to drain and
// return false once empty, freeing any in-flight work rather than leaking
// it.
type completionQueue[T any] struct {
	ch chan call[T]

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newCompletionQueue[T any](bufferSize int) *completionQueue[T] {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &completionQueue[T]{ch: make(chan call[T], bufferSize)}
}

// submit launches work and, once it returns, posts its result to the
// queue. A no-op after shutdown.
func (q *completionQueue[T]) submit(learnerID string, refIdx int, work func() (T, error)) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		result, err := work()

		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return
		}
		q.ch <- call[T]{learnerID: learnerID, refIdx: refIdx, result: result, err: err}
	}()
}

// next pops the next completed call in completion order. ok is false once
// the queue has been shut down and fully drained.
func (q *completionQueue[T]) next() (call[T], bool) {
	c, ok := <-q.ch
	return c, ok
}

// shutdown stops accepting new work, waits for everything already
// in-flight to finish (posting or being discarded), then closes the
// channel so next() returns ok=false once drained.
func (q *completionQueue[T]) shutdown() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
	close(q.ch)
}
