package enrichment

import (
	"context"
	"sync"

	"cardbook/models"
)

// MemoryBroker is an in-process Broker for tests and single-binary setups.
// Jobs are lost when the process exits.
type MemoryBroker struct {
	jobs      chan models.EnrichmentJob
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	pending   int
	committed int
}

func NewMemoryBroker(capacity int) *MemoryBroker {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryBroker{
		jobs: make(chan models.EnrichmentJob, capacity),
		done: make(chan struct{}),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, job models.EnrichmentJob) error {
	select {
	case <-b.done:
		return ErrBrokerClosed
	default:
	}

	select {
	case b.jobs <- job:
		b.mu.Lock()
		b.pending++
		b.mu.Unlock()
		return nil
	case <-b.done:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBroker) Fetch(ctx context.Context) (models.EnrichmentJob, CommitFunc, error) {
	select {
	case job := <-b.jobs:
		var once sync.Once
		commit := func(context.Context) error {
			once.Do(func() {
				b.mu.Lock()
				b.pending--
				b.committed++
				b.mu.Unlock()
			})
			return nil
		}
		return job, commit, nil
	case <-b.done:
		return models.EnrichmentJob{}, nil, ErrBrokerClosed
	case <-ctx.Done():
		return models.EnrichmentJob{}, nil, ctx.Err()
	}
}

// Pending reports jobs published but not yet committed.
func (b *MemoryBroker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

func (b *MemoryBroker) Committed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committed
}

func (b *MemoryBroker) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}
