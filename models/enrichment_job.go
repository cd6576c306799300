package models

import (
	"time"
)

// EnrichmentJob asks for the contact at ContactIndex in OwnerID's list to be
// geolocated from IP.
type EnrichmentJob struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	ContactIndex int       `json:"contact_index"`
	ContactID    string    `json:"contact_id,omitempty"`
	IP           string    `json:"ip"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

type EnrichmentOutcome string

const (
	EnrichmentSucceeded     EnrichmentOutcome = "succeeded"
	EnrichmentSucceededNoOp EnrichmentOutcome = "succeeded_noop"
	EnrichmentAbandoned     EnrichmentOutcome = "abandoned"
)
