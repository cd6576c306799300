package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cardbook/models"
)

var ErrPoolSaturated = errors.New("direct enrichment pool saturated")

// Result is the terminal state of a job run by Direct.
type Result struct {
	Outcome models.EnrichmentOutcome
	Err     error
}

type directTask struct {
	ctx  context.Context
	job  models.EnrichmentJob
	done chan Result
}

// Direct runs enrichment jobs in-process on a fixed pool of workers, once
// each, with no retry. Jobs that arrive while the backlog is full are dropped.
type Direct struct {
	processor  JobProcessor
	jobTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	tasks  chan directTask
	wg     sync.WaitGroup
}

func NewDirect(processor JobProcessor, poolSize, backlog int, jobTimeout time.Duration) *Direct {
	if poolSize <= 0 {
		poolSize = 1
	}
	if backlog < 0 {
		backlog = 0
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}

	d := &Direct{
		processor:  processor,
		jobTimeout: jobTimeout,
		tasks:      make(chan directTask, backlog),
	}
	for i := 0; i < poolSize; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for task := range d.tasks {
				d.run(task)
			}
		}()
	}
	return d
}

func (d *Direct) Mode() string { return "direct" }

// Enqueue submits job and ignores its completion.
func (d *Direct) Enqueue(ctx context.Context, job models.EnrichmentJob) {
	d.Submit(ctx, job)
}

// Submit hands job to the pool without blocking. The returned channel
// receives exactly one Result once the job is finished or rejected.
func (d *Direct) Submit(ctx context.Context, job models.EnrichmentJob) <-chan Result {
	job = prepareJob(job)
	done := make(chan Result, 1)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		done <- Result{Outcome: models.EnrichmentAbandoned, Err: ErrQueueClosed}
		return done
	}

	select {
	case d.tasks <- directTask{ctx: context.WithoutCancel(ctx), job: job, done: done}:
	default:
		log.Printf("[enrichment] dropping job %s for owner %s index %d: %v", job.ID, job.OwnerID, job.ContactIndex, ErrPoolSaturated)
		done <- Result{Outcome: models.EnrichmentAbandoned, Err: ErrPoolSaturated}
	}
	return done
}

func (d *Direct) run(task directTask) {
	ctx, cancel := context.WithTimeout(task.ctx, d.jobTimeout)
	defer cancel()

	var res Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				res = Result{Outcome: models.EnrichmentAbandoned, Err: fmt.Errorf("panic: %v", r)}
				log.Printf("[enrichment] job %s panicked: %v", task.job.ID, r)
			}
		}()
		outcome, err := RunOnce(ctx, d.processor, task.job)
		res = Result{Outcome: outcome, Err: err}
	}()
	task.done <- res
}

// Shutdown stops accepting jobs and waits up to timeout for the backlog to drain.
func (d *Direct) Shutdown(timeout time.Duration) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[enrichment] direct pool drained")
	case <-time.After(timeout):
		log.Printf("[enrichment] direct pool shutdown timed out after %v", timeout)
	}
}
