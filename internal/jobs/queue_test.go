package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

type stubProcessor struct {
	mu        sync.Mutex
	processed []int64
	err       error
	done      chan struct{}
	want      int
}

func (p *stubProcessor) ProcessSession(_ context.Context, sessionRowID int64) error {
	p.mu.Lock()
	p.processed = append(p.processed, sessionRowID)
	if p.done != nil && len(p.processed) == p.want {
		close(p.done)
	}
	p.mu.Unlock()
	return p.err
}

func (p *stubProcessor) snapshot() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int64, len(p.processed))
	copy(out, p.processed)
	return out
}

func TestQueueProcessesEnqueuedSessions(t *testing.T) {
	processor := &stubProcessor{done: make(chan struct{}), want: 3}
	queue := NewIngestQueue(processor, 2, 8)
	queue.Start(context.Background())

	queue.Enqueue(1)
	queue.Enqueue(2)
	queue.Enqueue(3)

	select {
	case <-processor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not drain the queue")
	}
	queue.Stop()

	got := processor.snapshot()
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("processed %v", got)
	}
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	processor := &stubProcessor{}
	queue := NewIngestQueue(processor, 1, 8)

	queue.Enqueue(7)
	queue.Enqueue(8)
	queue.Start(context.Background())
	queue.Stop()

	if got := processor.snapshot(); len(got) != 2 {
		t.Fatalf("expected buffered jobs to drain before exit, processed %v", got)
	}
}

func TestQueueFullDropsWithoutBlocking(t *testing.T) {
	processor := &stubProcessor{}
	queue := NewIngestQueue(processor, 1, 1)

	// No workers started: the buffer holds one job, the second must be
	// dropped rather than blocking the caller.
	done := make(chan struct{})
	go func() {
		queue.Enqueue(1)
		queue.Enqueue(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestQueueKeepsRunningAfterProcessorError(t *testing.T) {
	processor := &stubProcessor{err: errors.New("claim lost"), done: make(chan struct{}), want: 2}
	queue := NewIngestQueue(processor, 1, 4)
	queue.Start(context.Background())

	queue.Enqueue(1)
	queue.Enqueue(2)

	select {
	case <-processor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker stopped after a processor error")
	}
	queue.Stop()
}

func TestQueueMinimumOneWorker(t *testing.T) {
	processor := &stubProcessor{done: make(chan struct{}), want: 1}
	queue := NewIngestQueue(processor, 0, 4)
	queue.Start(context.Background())

	queue.Enqueue(5)
	select {
	case <-processor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("zero requested workers must still round up to one")
	}
	queue.Stop()
}
