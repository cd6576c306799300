package enrichment

import (
	"context"
	"errors"

	"cardbook/models"
)

var (
	ErrBrokerClosed = errors.New("broker closed")
	ErrQueueClosed  = errors.New("enrichment queue closed")
)

// CommitFunc acknowledges a fetched job so it is not delivered again.
type CommitFunc func(ctx context.Context) error

// Broker carries enrichment jobs between the API process and workers.
// Fetch blocks until a job is available; the job stays pending until the
// returned CommitFunc succeeds.
type Broker interface {
	Publish(ctx context.Context, job models.EnrichmentJob) error
	Fetch(ctx context.Context) (models.EnrichmentJob, CommitFunc, error)
	Close() error
}
