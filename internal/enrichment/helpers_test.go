package enrichment

import (
	"context"
	"sync/atomic"
	"time"

	"cardbook/db"
	"cardbook/internal/contact"
	"cardbook/models"
	"cardbook/tests/testutils"
)

type stubResolver struct {
	calls atomic.Int32
	loc   *models.Location
	gate  chan struct{}
	seen  chan string
}

func (r *stubResolver) Resolve(ctx context.Context, ip string) *models.Location {
	r.calls.Add(1)
	if r.seen != nil {
		r.seen <- ip
	}
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil
		}
	}
	if r.loc == nil {
		return nil
	}
	copied := *r.loc
	return &copied
}

func newTestProcessor(resolver LocationResolver) (*Processor, *testutils.MemoryContactListRepository) {
	repo := testutils.NewMemoryContactListRepository()
	writer := contact.NewLocationWriter(repo, db.NewDBManager())
	return NewProcessor(resolver, writer), repo
}

func fastQueueOptions() QueueOptions {
	return QueueOptions{MaxAttempts: 3, BackoffBase: time.Millisecond, JobTimeout: time.Second}
}
