package enrichment

import (
	"context"
	"fmt"
	"log"

	"cardbook/internal/contact"
	"cardbook/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LocationResolver turns an IP into a Location, or nil when it cannot.
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) *models.Location
}

// LocationApplier attaches a Location to one contact entry.
type LocationApplier interface {
	Apply(ctx context.Context, ownerID string, index int, contactID string, loc *models.Location) (contact.WriteOutcome, error)
}

// JobProcessor runs a single enrichment attempt.
type JobProcessor interface {
	Process(ctx context.Context, job models.EnrichmentJob) (models.EnrichmentOutcome, error)
}

// Processor runs one enrichment attempt: resolve, then write.
type Processor struct {
	resolver LocationResolver
	writer   LocationApplier
	tracer   trace.Tracer
}

func NewProcessor(resolver LocationResolver, writer LocationApplier) *Processor {
	return &Processor{
		resolver: resolver,
		writer:   writer,
		tracer:   otel.Tracer("cardbook/internal/enrichment"),
	}
}

// Process returns EnrichmentSucceededNoOp when the IP cannot be resolved or
// the target entry is gone. An error means the attempt may be retried.
func (p *Processor) Process(ctx context.Context, job models.EnrichmentJob) (models.EnrichmentOutcome, error) {
	ctx, span := p.tracer.Start(ctx, "enrichment.Process", trace.WithAttributes(
		attribute.String("enrichment.job_id", job.ID),
		attribute.String("enrichment.owner_id", job.OwnerID),
		attribute.Int("enrichment.contact_index", job.ContactIndex),
	))
	defer span.End()

	loc := p.resolver.Resolve(ctx, job.IP)
	if loc == nil {
		span.SetAttributes(attribute.String("enrichment.outcome", string(models.EnrichmentSucceededNoOp)))
		return models.EnrichmentSucceededNoOp, nil
	}

	outcome, err := p.writer.Apply(ctx, job.OwnerID, job.ContactIndex, job.ContactID, loc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("apply location for owner %s: %w", job.OwnerID, err)
	}
	if outcome == contact.NoOp {
		log.Printf("[enrichment] job %s resolved %s but contact %d of owner %s was not updated", job.ID, job.IP, job.ContactIndex, job.OwnerID)
		return models.EnrichmentSucceededNoOp, nil
	}
	span.SetAttributes(attribute.String("enrichment.outcome", string(models.EnrichmentSucceeded)))
	return models.EnrichmentSucceeded, nil
}

// RunOnce processes job without retry and logs the terminal outcome.
func RunOnce(ctx context.Context, p JobProcessor, job models.EnrichmentJob) (models.EnrichmentOutcome, error) {
	outcome, err := p.Process(ctx, job)
	if err != nil {
		log.Printf("[enrichment] job %s for owner %s index %d ip %s abandoned: %v", job.ID, job.OwnerID, job.ContactIndex, job.IP, err)
		return models.EnrichmentAbandoned, err
	}
	logOutcome(job, outcome, 1)
	return outcome, nil
}

func logOutcome(job models.EnrichmentJob, outcome models.EnrichmentOutcome, attempts int) {
	log.Printf("[enrichment] job %s for owner %s index %d ip %s: %s after %d attempt(s)",
		job.ID, job.OwnerID, job.ContactIndex, job.IP, outcome, attempts)
}
