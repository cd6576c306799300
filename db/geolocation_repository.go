package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"cardbook/internal/util"
	"cardbook/models"

	"github.com/google/uuid"
)

// DefaultGeolocationTTL is how long a persisted resolution stays valid.
const DefaultGeolocationTTL = 7 * 24 * time.Hour

type GeolocationRepository struct {
	db  *sql.DB
	ttl time.Duration
}

func NewGeolocationRepository(db *sql.DB) *GeolocationRepository {
	return &GeolocationRepository{db: db, ttl: DefaultGeolocationTTL}
}

// WithTTL overrides the expiry applied to new and refreshed rows.
func (r *GeolocationRepository) WithTTL(ttl time.Duration) *GeolocationRepository {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

// FindByIP retrieves cached geolocation data for an IP address
func (r *GeolocationRepository) FindByIP(ctx context.Context, ip string) (*models.GeolocationCache, error) {
	query := `
		SELECT id, ip, city, region, country, country_code, latitude, longitude,
		       timezone, provider, resolved_at, created_at, updated_at, expires_at
		FROM geolocation_cache
		WHERE ip = ? AND expires_at > ?
	`

	var cache models.GeolocationCache
	var timezone sql.NullString
	err := r.db.QueryRowContext(ctx, query, ip, time.Now()).Scan(
		&cache.ID, &cache.IP, &cache.City, &cache.Region, &cache.Country,
		&cache.CountryCode, &cache.Latitude, &cache.Longitude, &timezone,
		&cache.Provider, &cache.ResolvedAt, &cache.CreatedAt, &cache.UpdatedAt, &cache.ExpiresAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find geolocation cache by IP: %w", err)
	}
	if timezone.Valid {
		cache.Timezone = &timezone.String
	}

	return &cache, nil
}

// Upsert stores geolocation data for cache.IP, replacing any previous row.
func (r *GeolocationRepository) Upsert(ctx context.Context, cache *models.GeolocationCache) error {
	if cache.ID == "" {
		cache.ID = uuid.New().String()
	}

	now := time.Now()
	cache.CreatedAt = now
	cache.UpdatedAt = now
	cache.ExpiresAt = now.Add(r.ttl)

	var timezone sql.NullString
	if cache.Timezone != nil {
		timezone = sql.NullString{String: *cache.Timezone, Valid: true}
	}

	query := `
		INSERT INTO geolocation_cache (
			id, ip, city, region, country, country_code, latitude, longitude,
			timezone, provider, resolved_at, created_at, updated_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ip) DO UPDATE SET
			city = excluded.city, region = excluded.region, country = excluded.country,
			country_code = excluded.country_code, latitude = excluded.latitude,
			longitude = excluded.longitude, timezone = excluded.timezone,
			provider = excluded.provider, resolved_at = excluded.resolved_at,
			updated_at = excluded.updated_at, expires_at = excluded.expires_at
	`

	return util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query,
			cache.ID, cache.IP, cache.City, cache.Region, cache.Country,
			cache.CountryCode, cache.Latitude, cache.Longitude, timezone,
			cache.Provider, cache.ResolvedAt, cache.CreatedAt, cache.UpdatedAt, cache.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert geolocation cache: %w", err)
		}
		return nil
	})
}

// CleanupExpired removes expired cache entries
func (r *GeolocationRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM geolocation_cache WHERE expires_at < ?`

	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired geolocation cache: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err == nil && rowsAffected > 0 {
		log.Printf("Cleaned up %d expired geolocation cache entries", rowsAffected)
	}

	return rowsAffected, nil
}

// IsValidCache checks if cached data has all required fields
func (r *GeolocationRepository) IsValidCache(cache *models.GeolocationCache) bool {
	return cache != nil &&
		cache.Country != "" &&
		cache.CountryCode != "" &&
		cache.CountryCode != "XX" &&
		!(cache.Latitude == 0.0 && cache.Longitude == 0.0)
}

// Close closes the repository (satisfies Repository interface)
func (r *GeolocationRepository) Close() error {
	// SQLite connection is managed by the main DB instance
	return nil
}
