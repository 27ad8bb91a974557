// Package jobs hosts the background side of the service: the ingestion
// worker pool fed by session webhooks and the scheduled FIP directory sync.
package jobs

import (
	"context"
	"log"
	"sync"
)

// SessionProcessor is implemented by the ingestion service.
type SessionProcessor interface {
	ProcessSession(ctx context.Context, sessionRowID int64) error
}

// IngestQueue fans parked session payloads out to a fixed pool of workers
// over a buffered channel. Enqueue never blocks the caller: webhook handlers
// must answer fast, and a dropped enqueue is recoverable because the claim
// check on the session row stays PENDING.
type IngestQueue struct {
	processor SessionProcessor
	jobs      chan int64
	workers   int
	wg        sync.WaitGroup
}

func NewIngestQueue(processor SessionProcessor, workers, buffer int) *IngestQueue {
	if workers < 1 {
		workers = 1
	}
	return &IngestQueue{
		processor: processor,
		jobs:      make(chan int64, buffer),
		workers:   workers,
	}
}

func (q *IngestQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run(ctx)
	}
}

func (q *IngestQueue) run(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sessionRowID, ok := <-q.jobs:
			if !ok {
				return
			}
			if err := q.processor.ProcessSession(ctx, sessionRowID); err != nil {
				log.Printf("jobs: process session row %d: %v", sessionRowID, err)
			}
		}
	}
}

func (q *IngestQueue) Enqueue(sessionRowID int64) {
	select {
	case q.jobs <- sessionRowID:
	default:
		log.Printf("jobs: queue full, dropping session row %d (file stays claimable)", sessionRowID)
	}
}

// Stop drains outstanding jobs and waits for the workers to exit.
func (q *IngestQueue) Stop() {
	close(q.jobs)
	q.wg.Wait()
}
