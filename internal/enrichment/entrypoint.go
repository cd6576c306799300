package enrichment

import (
	"context"
	"log"
	"time"

	"cardbook/internal/config"
	"cardbook/models"
)

// Enqueuer is the enrichment entrypoint used by the contact flow. The
// implementation is picked once at startup.
type Enqueuer interface {
	Enqueue(ctx context.Context, job models.EnrichmentJob)
	Shutdown(timeout time.Duration)
	Mode() string
}

// BrokerFactory connects to the durable broker, failing if it is unreachable.
type BrokerFactory func(ctx context.Context) (Broker, error)

// NewEntrypoint returns a Queue publisher in queue mode, or a Direct pool
// otherwise. A queue-mode broker that cannot be reached falls back to Direct.
func NewEntrypoint(ctx context.Context, cfg config.EnrichmentConfig, processor JobProcessor, connect BrokerFactory) Enqueuer {
	if cfg.Mode == config.ModeQueue && connect != nil {
		broker, err := connect(ctx)
		if err == nil {
			log.Printf("[enrichment] queue mode: publishing to %v topic %s", cfg.KafkaBrokers, cfg.KafkaTopic)
			return NewQueue(broker, processor, QueueOptionsFromConfig(cfg))
		}
		log.Printf("[enrichment] WARNING: broker unavailable (%v), falling back to direct mode", err)
	}

	log.Printf("[enrichment] direct mode: pool=%d backlog=%d", cfg.PoolSize, cfg.QueueSize)
	return NewDirect(processor, cfg.PoolSize, cfg.QueueSize, cfg.JobTimeout)
}

func QueueOptionsFromConfig(cfg config.EnrichmentConfig) QueueOptions {
	return QueueOptions{
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		JobTimeout:  cfg.JobTimeout,
	}
}
