// Package geo resolves client IP addresses to locations through an ordered
// chain of external providers.
package geo

import (
	"context"
	"fmt"
	"log"
	"time"

	"cardbook/db"
	"cardbook/internal/config"
	"cardbook/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Resolver turns an IP into a Location. Providers are tried in order; the
// first well-formed answer wins and is cached under the normalized IP.
type Resolver struct {
	providers []Provider
	cache     Cache
	group     singleflight.Group
	tracer    trace.Tracer
	now       func() time.Time
}

// NewResolver builds a resolver over an explicit provider chain.
func NewResolver(cache Cache, providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		cache:     cache,
		tracer:    otel.Tracer("cardbook/internal/geo"),
		now:       time.Now,
	}
}

// NewResolverFromConfig wires the production chain: ipapi.co, then ip-api.com,
// then Google reverse geocoding when an API key is configured. repo may be nil.
func NewResolverFromConfig(cfg config.GeoConfig, repo *db.GeolocationRepository) *Resolver {
	client := NewHTTPClient(cfg.HTTPTimeout)

	var cache Cache = NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
	if repo != nil {
		cache = TieredCache{cache, NewPersistentCache(repo.WithTTL(cfg.CacheTTL))}
	}

	secondary := NewIPAPICom(client, cfg.IPAPIComURL)
	providers := []Provider{NewIPAPICo(client, cfg.IPAPICoURL), secondary}
	if cfg.GoogleMapsAPIKey != "" {
		providers = append(providers, NewGoogleReverseGeocoder(client, cfg.GoogleGeocodeURL, cfg.GoogleMapsAPIKey, secondary))
	} else {
		log.Println("[geo] GOOGLE_MAPS_API_KEY not set, paid reverse-geocoding tier disabled")
	}

	return NewResolver(cache, providers...)
}

// Providers lists the configured provider names in fallback order.
func (r *Resolver) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

// Resolve returns the location of ip, or nil when ip is private, malformed
// or no provider could answer. It never returns an error.
func (r *Resolver) Resolve(ctx context.Context, ip string) *models.Location {
	normalized, ok := NormalizeIP(ip)
	if !ok || IsPrivateOrLoopback(normalized) {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "geo.Resolve", trace.WithAttributes(attribute.String("geo.ip", normalized)))
	defer span.End()

	if loc, ok := r.cache.Get(ctx, normalized); ok {
		span.SetAttributes(attribute.Bool("geo.cache_hit", true))
		return copyLocation(loc)
	}

	v, _, _ := r.group.Do(normalized, func() (any, error) {
		// a flight for this IP may have finished since the miss above
		if loc, ok := r.cache.Get(ctx, normalized); ok {
			return loc, nil
		}
		return r.lookup(ctx, normalized), nil
	})
	loc, _ := v.(*models.Location)
	if loc == nil {
		span.SetStatus(codes.Error, "all providers failed")
		return nil
	}
	span.SetAttributes(attribute.String("geo.provider", loc.Provider))
	return copyLocation(loc)
}

func (r *Resolver) lookup(ctx context.Context, ip string) *models.Location {
	for _, p := range r.providers {
		loc, err := r.try(ctx, p, ip)
		if err != nil {
			log.Printf("[geo] provider %s failed for %s: %v", p.Name(), ip, err)
			continue
		}
		if loc.Provider == "" {
			loc.Provider = p.Name()
		}
		if loc.ResolvedAt.IsZero() {
			loc.ResolvedAt = r.now().UTC()
		}
		r.cache.Set(ctx, ip, loc)
		return loc
	}

	log.Printf("[geo] all %d providers failed for %s", len(r.providers), ip)
	return nil
}

// try isolates one provider call so a panic counts as a failed tier.
func (r *Resolver) try(ctx context.Context, p Provider, ip string) (loc *models.Location, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			loc, err = nil, fmt.Errorf("provider panic: %v", rec)
		}
	}()

	loc, err = p.Lookup(ctx, ip)
	if err == nil && loc == nil {
		err = ErrMalformedResponse
	}
	return loc, err
}

func copyLocation(loc *models.Location) *models.Location {
	clone := *loc
	return &clone
}
