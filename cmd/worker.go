package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cardbook/db"
	"cardbook/internal/config"
	"cardbook/internal/contact"
	"cardbook/internal/enrichment"
	"cardbook/internal/geo"
	"cardbook/internal/telemetry"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume enrichment jobs from the durable queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.Enrichment.Mode != config.ModeQueue {
				return fmt.Errorf("worker requires ENRICHMENT_MODE=queue")
			}
			if workers > 0 {
				cfg.Enrichment.Workers = workers
			}
			return runWorker(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of consumer goroutines (overrides ENRICHMENT_WORKERS)")
	return cmd
}

func runWorker(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "cardbook-worker", cfg.OtelEndpoint)
	if err != nil {
		errorLogger.Printf("Tracing disabled: %v", err)
	}
	defer shutdownTracing(context.Background())

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	broker, err := enrichment.KafkaConnector(cfg.Enrichment, true)(ctx)
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	resolver := geo.NewResolverFromConfig(cfg.Geo, st.geoCache)
	processor := enrichment.NewProcessor(resolver, contact.NewLocationWriter(st.contacts, db.NewDBManager()))
	queue := enrichment.NewQueue(broker, processor, enrichment.QueueOptionsFromConfig(cfg.Enrichment))

	infoLogger.Printf("Worker consuming %s as group %s from %v", cfg.Enrichment.KafkaTopic, cfg.Enrichment.KafkaGroupID, cfg.Enrichment.KafkaBrokers)
	queue.Start(ctx, cfg.Enrichment.Workers)

	<-ctx.Done()
	infoLogger.Println("Received shutdown signal")
	queue.Shutdown(shutdownTimeout)
	return nil
}
