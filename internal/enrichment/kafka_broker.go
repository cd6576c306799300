package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cardbook/internal/config"
	"cardbook/models"

	kgo "github.com/segmentio/kafka-go"
)

const kafkaOpTimeout = 3 * time.Second

var errNoConsumer = errors.New("kafka broker has no consumer group")

// KafkaBroker publishes jobs to a topic and, when built with a group id,
// consumes them with manual offset commits. Messages are keyed by owner so
// one owner's jobs land on one partition.
type KafkaBroker struct {
	brokers []string
	writer  *kgo.Writer
	reader  *kgo.Reader
	timeout time.Duration
}

// NewKafkaBroker builds a publisher for topic. Pass a non-empty groupID to
// also consume from it.
func NewKafkaBroker(brokers []string, topic, groupID string) *KafkaBroker {
	b := &KafkaBroker{
		brokers: brokers,
		writer: &kgo.Writer{
			Addr:                   kgo.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kgo.Hash{},
			RequiredAcks:           kgo.RequireOne,
			AllowAutoTopicCreation: true,
		},
		timeout: kafkaOpTimeout,
	}
	if groupID != "" {
		b.reader = kgo.NewReader(kgo.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0, // manual commits
		})
	}
	return b
}

// KafkaConnector returns a BrokerFactory that verifies at least one broker
// accepts connections before handing out a KafkaBroker.
func KafkaConnector(cfg config.EnrichmentConfig, consume bool) BrokerFactory {
	return func(ctx context.Context) (Broker, error) {
		groupID := ""
		if consume {
			groupID = cfg.KafkaGroupID
		}
		b := NewKafkaBroker(cfg.KafkaBrokers, cfg.KafkaTopic, groupID)
		if err := b.Ping(ctx); err != nil {
			b.Close()
			return nil, err
		}
		return b, nil
	}
}

// Ping dials the configured brokers and succeeds on the first reachable one.
func (b *KafkaBroker) Ping(ctx context.Context) error {
	var lastErr error
	for _, addr := range b.brokers {
		dctx, cancel := context.WithTimeout(ctx, b.timeout)
		conn, err := kgo.DialContext(dctx, "tcp", addr)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return fmt.Errorf("kafka unreachable: %w", lastErr)
}

func (b *KafkaBroker) Publish(ctx context.Context, job models.EnrichmentJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	return b.writer.WriteMessages(cctx, kgo.Message{
		Key:   []byte(job.OwnerID),
		Value: payload,
		Time:  time.Now(),
	})
}

func (b *KafkaBroker) Fetch(ctx context.Context) (models.EnrichmentJob, CommitFunc, error) {
	if b.reader == nil {
		return models.EnrichmentJob{}, nil, errNoConsumer
	}

	m, err := b.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.EnrichmentJob{}, nil, err
		}
		return models.EnrichmentJob{}, nil, fmt.Errorf("fetch message: %w", err)
	}

	var job models.EnrichmentJob
	if err := json.Unmarshal(m.Value, &job); err != nil || job.OwnerID == "" {
		// commit poison messages so the partition keeps moving
		if cerr := b.reader.CommitMessages(ctx, m); cerr != nil {
			log.Printf("[enrichment] commit of bad message at offset %d failed: %v", m.Offset, cerr)
		}
		if err == nil {
			err = errors.New("missing owner_id")
		}
		return models.EnrichmentJob{}, nil, fmt.Errorf("invalid message at offset %d: %w", m.Offset, err)
	}

	commit := func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		return b.reader.CommitMessages(cctx, m)
	}
	return job, commit, nil
}

func (b *KafkaBroker) Close() error {
	err := b.writer.Close()
	if b.reader != nil {
		if rerr := b.reader.Close(); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}
