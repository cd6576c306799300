package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"cardbook/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

const fetchErrorPause = 500 * time.Millisecond

type QueueOptions struct {
	MaxAttempts uint
	BackoffBase time.Duration
	JobTimeout  time.Duration
}

// Queue publishes enrichment jobs to a Broker and runs workers that consume
// them. Each job gets up to MaxAttempts tries with doubling backoff; it is
// committed once it reaches a terminal outcome, including abandonment.
type Queue struct {
	broker    Broker
	processor JobProcessor
	opts      QueueOptions

	closed     atomic.Bool
	publishing sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(broker Broker, processor JobProcessor, opts QueueOptions) *Queue {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 2 * time.Second
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Second
	}
	return &Queue{broker: broker, processor: processor, opts: opts}
}

func (q *Queue) Mode() string { return "queue" }

// Enqueue publishes job in the background and returns immediately. Publish
// failures are logged; the caller is never told.
func (q *Queue) Enqueue(ctx context.Context, job models.EnrichmentJob) {
	job = prepareJob(job)
	if q.closed.Load() {
		log.Printf("[enrichment] dropping job %s for owner %s: %v", job.ID, job.OwnerID, ErrQueueClosed)
		return
	}

	q.publishing.Add(1)
	go func() {
		defer q.publishing.Done()
		if err := q.broker.Publish(ctx, job); err != nil {
			log.Printf("[enrichment] publish job %s for owner %s index %d failed: %v", job.ID, job.OwnerID, job.ContactIndex, err)
		}
	}()
}

// Start launches workers that consume until ctx is cancelled or Shutdown is called.
func (q *Queue) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}

	q.mu.Lock()
	ctx, q.cancel = context.WithCancel(ctx)
	q.mu.Unlock()

	log.Printf("[enrichment] starting %d queue workers (%s)", workers, q.opts)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.run(ctx, id)
		}(i)
	}
}

func (q *Queue) run(ctx context.Context, id int) {
	for {
		job, commit, err := q.broker.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrBrokerClosed) {
				return
			}
			log.Printf("[enrichment] worker-%d fetch error: %v", id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchErrorPause):
			}
			continue
		}

		if !q.handle(ctx, job) {
			// interrupted by shutdown; leave uncommitted for redelivery
			return
		}
		if err := commit(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[enrichment] worker-%d commit job %s failed: %v", id, job.ID, err)
		}
	}
}

// handle drives a job to a terminal outcome. It returns false if ctx ended
// first, in which case the job must not be committed.
func (q *Queue) handle(ctx context.Context, job models.EnrichmentJob) bool {
	attempts := 0
	op := func() (models.EnrichmentOutcome, error) {
		attempts++
		jobCtx, cancel := context.WithTimeout(ctx, q.opts.JobTimeout)
		defer cancel()
		return q.processor.Process(jobCtx, job)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.opts.BackoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = q.opts.BackoffBase << q.opts.MaxAttempts
	b.Reset()

	outcome, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(q.opts.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Printf("[enrichment] job %s attempt %d failed, retrying in %v: %v", job.ID, attempts, next, err)
		}),
	)
	if ctx.Err() != nil {
		log.Printf("[enrichment] job %s interrupted after %d attempt(s)", job.ID, attempts)
		return false
	}
	if err != nil {
		log.Printf("[enrichment] job %s for owner %s index %d ip %s: %s after %d attempt(s): %v",
			job.ID, job.OwnerID, job.ContactIndex, job.IP, models.EnrichmentAbandoned, attempts, err)
		return true
	}
	logOutcome(job, outcome, attempts)
	return true
}

// Shutdown stops accepting jobs, cancels workers and waits up to timeout for
// them and any in-flight publishes, then closes the broker.
func (q *Queue) Shutdown(timeout time.Duration) {
	if q.closed.Swap(true) {
		return
	}
	log.Println("[enrichment] queue shutdown requested")

	q.mu.Lock()
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.publishing.Wait()
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[enrichment] queue workers exited cleanly")
	case <-time.After(timeout):
		log.Printf("[enrichment] queue shutdown timed out after %v", timeout)
	}

	if err := q.broker.Close(); err != nil {
		log.Printf("[enrichment] close broker: %v", err)
	}
}

func prepareJob(job models.EnrichmentJob) models.EnrichmentJob {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	return job
}

func (o QueueOptions) String() string {
	return fmt.Sprintf("attempts=%d base=%v timeout=%v", o.MaxAttempts, o.BackoffBase, o.JobTimeout)
}
