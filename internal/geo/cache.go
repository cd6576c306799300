package geo

import (
	"context"
	"errors"
	"log"
	"time"

	"cardbook/db"
	"cardbook/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores resolved locations keyed by normalized IP.
type Cache interface {
	Get(ctx context.Context, ip string) (*models.Location, bool)
	Set(ctx context.Context, ip string, loc *models.Location)
}

// MemoryCache is a bounded, process-local LRU with per-entry expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, *models.Location]
}

// NewMemoryCache holds at most size entries, each for at most ttl.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1
	}
	return &MemoryCache{lru: expirable.NewLRU[string, *models.Location](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, ip string) (*models.Location, bool) {
	return c.lru.Get(ip)
}

func (c *MemoryCache) Set(_ context.Context, ip string, loc *models.Location) {
	c.lru.Add(ip, loc)
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// PersistentCache keeps resolutions in the SQLite geolocation_cache table so
// they survive restarts.
type PersistentCache struct {
	repo *db.GeolocationRepository
}

func NewPersistentCache(repo *db.GeolocationRepository) *PersistentCache {
	return &PersistentCache{repo: repo}
}

func (c *PersistentCache) Get(ctx context.Context, ip string) (*models.Location, bool) {
	row, err := c.repo.FindByIP(ctx, ip)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.Printf("[geo] persistent cache read for %s failed: %v", ip, err)
		}
		return nil, false
	}
	if !c.repo.IsValidCache(row) {
		return nil, false
	}
	return row.Location(), true
}

func (c *PersistentCache) Set(ctx context.Context, ip string, loc *models.Location) {
	if err := c.repo.Upsert(ctx, models.NewGeolocationCache(ip, loc)); err != nil {
		log.Printf("[geo] persistent cache write for %s failed: %v", ip, err)
	}
}

// TieredCache consults caches in order and backfills the faster tiers on a
// hit in a slower one.
type TieredCache []Cache

func (t TieredCache) Get(ctx context.Context, ip string) (*models.Location, bool) {
	for i, c := range t {
		loc, ok := c.Get(ctx, ip)
		if !ok {
			continue
		}
		for _, faster := range t[:i] {
			faster.Set(ctx, ip, loc)
		}
		return loc, true
	}
	return nil, false
}

func (t TieredCache) Set(ctx context.Context, ip string, loc *models.Location) {
	for _, c := range t {
		c.Set(ctx, ip, loc)
	}
}
