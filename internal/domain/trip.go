// Package domain contains the core data types for the trip timeline service.
// This package depends only on uuid and is imported by every other internal
// package (timeline, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trip represents a single trip from start to finish.
// A trip is the top-level aggregate; chapters belong to a trip.
// StartDate and EndDate are derived from the trip's chapters every time a
// timeline edit is committed.
type Trip struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"` // nil until the first chapter exists
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
