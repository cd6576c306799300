package models

import (
	"time"
)

// GeolocationCache stores cached geolocation data for IP addresses
type GeolocationCache struct {
	ID          string    `db:"id" json:"id"`
	IP          string    `db:"ip" json:"ip"`
	City        string    `db:"city" json:"city"`
	Region      string    `db:"region" json:"region"`
	Country     string    `db:"country" json:"country"`
	CountryCode string    `db:"country_code" json:"country_code"`
	Latitude    float64   `db:"latitude" json:"latitude"`
	Longitude   float64   `db:"longitude" json:"longitude"`
	Timezone    *string   `db:"timezone" json:"timezone"`
	Provider    string    `db:"provider" json:"provider"` // "ipapi.co", "ip-api.com", "google-geocoding"
	ResolvedAt  time.Time `db:"resolved_at" json:"resolved_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"` // Cache expiration
}

// NewGeolocationCache builds a cache row for ip from a resolved location.
func NewGeolocationCache(ip string, loc *Location) *GeolocationCache {
	return &GeolocationCache{
		IP:          ip,
		City:        loc.City,
		Region:      loc.Region,
		Country:     loc.Country,
		CountryCode: loc.CountryCode,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Timezone:    loc.Timezone,
		Provider:    loc.Provider,
		ResolvedAt:  loc.ResolvedAt,
	}
}

// Location converts the cache row back into the canonical shape.
func (c *GeolocationCache) Location() *Location {
	return &Location{
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		City:        c.City,
		Region:      c.Region,
		Country:     c.Country,
		CountryCode: c.CountryCode,
		Timezone:    c.Timezone,
		Provider:    c.Provider,
		ResolvedAt:  c.ResolvedAt,
	}
}
