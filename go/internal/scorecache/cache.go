package scorecache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iNESlab/golbang-live/go/internal/models"
)

// Sentinel errors returned by every ScoreCache implementation.
var (
	// ErrCacheUnavailable wraps transient backing-store failures. Callers
	// surface it inline to the submitting client without tearing down the
	// connection.
	ErrCacheUnavailable = errors.New("score cache unavailable")

	// ErrNotFound is returned when no cached state exists for the requested
	// event or participant.
	ErrNotFound = errors.New("not found in score cache")

	// ErrInvalidScore is returned for a negative stroke count or an out of
	// range hole number.
	ErrInvalidScore = errors.New("invalid hole score")
)

// DefaultTTL is how long cached event state lives without a write. Every
// write refreshes it so abandoned events self-clean even if never flushed.
const DefaultTTL = 72 * time.Hour

// ScoreCache is the shared fast-access store for per-hole scores and the
// derived aggregates of a live event. Implementations provide per-key atomic
// get/set; no multi-key transactions are required. Aggregates are only ever
// written through RecomputeAndStoreAggregate / StoreWinFlags /
// StoreEventAggregate, keeping the read-compute-write cycle race tolerant.
type ScoreCache interface {
	// SeedParticipant stores the static participant metadata (group, team,
	// handicap, name) the aggregate computations need. Idempotent; existing
	// hole scores are preserved.
	SeedParticipant(ctx context.Context, p models.Participant) error

	// PutHoleScore upserts the stroke count for one hole. Last write wins;
	// a resubmission for the same hole overwrites the prior value.
	PutHoleScore(ctx context.Context, eventID, participantID uuid.UUID, holeNumber, score int) error

	// GetHoleScores returns hole number -> stroke count for one participant.
	GetHoleScores(ctx context.Context, eventID, participantID uuid.UUID) (map[int]int, error)

	// GetAllHoleScores returns every recorded hole score for the event.
	GetAllHoleScores(ctx context.Context, eventID uuid.UUID) ([]models.HoleScore, error)

	// RecomputeAndStoreAggregate re-derives sum_score and handicap_score
	// from the recorded hole scores and stores them back. Must be called
	// after every PutHoleScore.
	RecomputeAndStoreAggregate(ctx context.Context, eventID, participantID uuid.UUID) (*models.ParticipantAggregate, error)

	GetParticipantAggregate(ctx context.Context, eventID, participantID uuid.UUID) (*models.ParticipantAggregate, error)

	// GetAllParticipantAggregates lists aggregates for the event, optionally
	// restricted to one group.
	GetAllParticipantAggregates(ctx context.Context, eventID uuid.UUID, groupFilter *int) ([]models.ParticipantAggregate, error)

	// StoreWinFlags records the per-participant group win flags computed by
	// the team evaluator.
	StoreWinFlags(ctx context.Context, eventID, participantID uuid.UUID, groupWin, groupWinHandicap bool) error

	StoreEventAggregate(ctx context.Context, agg models.EventAggregate) error
	GetEventAggregate(ctx context.Context, eventID uuid.UUID) (*models.EventAggregate, error)

	// HasEvent reports whether any cached state exists for the event. Used
	// to detect a cold cache after a restart so it can be warmed from the
	// durable store.
	HasEvent(ctx context.Context, eventID uuid.UUID) (bool, error)
}
