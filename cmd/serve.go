package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"cardbook/db"
	"cardbook/internal/api"
	"cardbook/internal/config"
	"cardbook/internal/contact"
	"cardbook/internal/enrichment"
	"cardbook/internal/geo"
	"cardbook/internal/telemetry"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the contacts HTTP API and the enrichment entrypoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireAuth(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "cardbook-api", cfg.OtelEndpoint)
	if err != nil {
		errorLogger.Printf("Tracing disabled: %v", err)
	}
	defer shutdownTracing(context.Background())

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	dbManager := db.NewDBManager()
	resolver := geo.NewResolverFromConfig(cfg.Geo, st.geoCache)
	processor := enrichment.NewProcessor(resolver, contact.NewLocationWriter(st.contacts, dbManager))
	entry := enrichment.NewEntrypoint(ctx, cfg.Enrichment, processor, enrichment.KafkaConnector(cfg.Enrichment, false))
	defer entry.Shutdown(shutdownTimeout)

	if st.geoCache != nil {
		go runGeoCacheCleanup(ctx, st.geoCache)
	}

	handlers := contact.NewContactHandlers(contact.NewContactService(st.contacts, dbManager), entry)
	router := api.NewRouter(cfg, handlers, api.Health{
		Store:      string(cfg.DatabaseType),
		Enrichment: entry.Mode(),
		Providers:  resolver.Providers(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		infoLogger.Printf("Server is starting on port %s (enrichment=%s)", cfg.Port, entry.Mode())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		infoLogger.Println("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	infoLogger.Println("Shutting down the server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		errorLogger.Printf("Server Shutdown error: %v", err)
		return err
	}
	infoLogger.Println("[SUCCESS] Services stopped")
	return nil
}

// runGeoCacheCleanup prunes expired rows from the persistent geolocation cache.
func runGeoCacheCleanup(ctx context.Context, repo *db.GeolocationRepository) {
	defer func() {
		if r := recover(); r != nil {
			errorLogger.Printf("Geo cache cleanup panic recovered: %v", r)
			errorLogger.Printf("Geo cache cleanup stack trace: %s", debug.Stack())
		}
	}()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.CleanupExpired(ctx)
			if err != nil {
				errorLogger.Printf("Geo cache cleanup failed: %v", err)
				continue
			}
			if removed > 0 {
				infoLogger.Printf("Geo cache cleanup removed %d expired entries", removed)
			}
		}
	}
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
