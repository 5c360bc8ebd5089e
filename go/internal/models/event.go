package models

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a single scheduled round of play with its own scoring
// session. Events are created by the club-management service; this core
// treats them as read-only.
type Event struct {
	ID        uuid.UUID `json:"id"`
	ClubID    uuid.UUID `json:"club_id"`
	Title     string    `json:"title"`
	HoleCount int       `json:"hole_count"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
}
