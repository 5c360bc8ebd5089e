// Package scoring orchestrates the live scoring pipeline: cache write,
// aggregate recompute, team evaluation, fan-out, and the flush path the
// persistence scheduler drives. All shared mutable state lives in the
// injected ScoreCache; this package only composes reads and cache writes.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/iNESlab/golbang-live/go/internal/models"
	"github.com/iNESlab/golbang-live/go/internal/ranking"
	"github.com/iNESlab/golbang-live/go/internal/scorecache"
	"github.com/iNESlab/golbang-live/go/internal/teamwin"
)

// ErrHoleOutOfRange is returned when a submission names a hole the event's
// course does not have.
var ErrHoleOutOfRange = errors.New("hole number out of range for event")

// EventStore is what the app needs from the club-management system of
// record: static event/participant identity plus the persisted score state
// used to warm a cold cache.
type EventStore interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	GetParticipant(ctx context.Context, participantID uuid.UUID) (*models.Participant, error)
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error)
	LoadHoleScores(ctx context.Context, eventID uuid.UUID) ([]models.HoleScore, error)
	Persist(ctx context.Context, eventID uuid.UUID, aggs []models.ParticipantAggregate, eventAgg *models.EventAggregate, holeScores []models.HoleScore) error
}

// Broadcaster fans payloads out to connected viewers. The gateway's
// connection manager implements it.
type Broadcaster interface {
	BroadcastGroupUpdate(eventID uuid.UUID, groupType int, update ScoreUpdate)
	BroadcastEventSnapshot(eventID uuid.UUID, snapshot EventSnapshot)
}

// EventPublisher emits integration events for downstream collaborators
// (notifications). Publishing is fire and forget; failures are logged and
// never surfaced to the submitting viewer.
type EventPublisher interface {
	PublishScoreUpdated(ctx context.Context, eventID uuid.UUID, update ScoreUpdate) error
	PublishEventFinalized(ctx context.Context, eventID uuid.UUID) error
}

// NopPublisher satisfies EventPublisher without a broker, for tests and
// single-process deployments.
type NopPublisher struct{}

func (NopPublisher) PublishScoreUpdated(context.Context, uuid.UUID, ScoreUpdate) error { return nil }
func (NopPublisher) PublishEventFinalized(context.Context, uuid.UUID) error            { return nil }

// App wires the scoring pipeline together.
type App struct {
	cache       scorecache.ScoreCache
	store       EventStore
	broadcaster Broadcaster
	publisher   EventPublisher
}

func NewApp(cache scorecache.ScoreCache, store EventStore, broadcaster Broadcaster, publisher EventPublisher) *App {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &App{
		cache:       cache,
		store:       store,
		broadcaster: broadcaster,
		publisher:   publisher,
	}
}

// ResolveEvent loads the event a viewer wants to join.
func (a *App) ResolveEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	return a.store.GetEvent(ctx, eventID)
}

// WarmCache reseeds the cache from the durable store when no cached state
// exists for the event, which happens after a cache restart. Safe to call
// on every join; it is a no-op while the cache is warm.
func (a *App) WarmCache(ctx context.Context, eventID uuid.UUID) error {
	warm, err := a.cache.HasEvent(ctx, eventID)
	if err != nil || warm {
		return err
	}

	participants, err := a.store.ListParticipants(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to list participants for warm-up: %w", err)
	}
	for _, p := range participants {
		if err := a.cache.SeedParticipant(ctx, p); err != nil {
			return err
		}
	}

	scores, err := a.store.LoadHoleScores(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load hole scores for warm-up: %w", err)
	}
	for _, hs := range scores {
		if err := a.cache.PutHoleScore(ctx, eventID, hs.ParticipantID, hs.HoleNumber, hs.Score); err != nil {
			return err
		}
	}
	for _, p := range participants {
		if _, err := a.cache.RecomputeAndStoreAggregate(ctx, eventID, p.ID); err != nil && !errors.Is(err, scorecache.ErrNotFound) {
			return err
		}
	}

	log.Info().
		Str("event_id", eventID.String()).
		Int("participants", len(participants)).
		Int("hole_scores", len(scores)).
		Msg("score cache warmed from durable store")
	return nil
}

// SubmitScore runs the write pipeline for one hole score: cache upsert,
// aggregate recompute, team evaluation, group fan-out, integration event.
// Last write wins for a resubmitted hole; that models scorer corrections.
func (a *App) SubmitScore(ctx context.Context, event *models.Event, participantID uuid.UUID, holeNumber, score int) (*ScoreUpdate, error) {
	if event.HoleCount > 0 && holeNumber > event.HoleCount {
		return nil, fmt.Errorf("%w: hole %d of %d", ErrHoleOutOfRange, holeNumber, event.HoleCount)
	}

	if err := a.ensureSeeded(ctx, event.ID, participantID); err != nil {
		return nil, err
	}

	if err := a.cache.PutHoleScore(ctx, event.ID, participantID, holeNumber, score); err != nil {
		return nil, err
	}

	agg, err := a.cache.RecomputeAndStoreAggregate(ctx, event.ID, participantID)
	if err != nil {
		return nil, err
	}

	if agg.TeamType != models.TeamTypeNone {
		if err := a.evaluateTeams(ctx, event.ID, agg); err != nil {
			return nil, err
		}
		// Re-read so the update carries the flags just stored.
		agg, err = a.cache.GetParticipantAggregate(ctx, event.ID, participantID)
		if err != nil {
			return nil, err
		}
	}

	update := ScoreUpdate{
		ParticipantID:      agg.ParticipantID,
		GroupType:          agg.GroupType,
		TeamType:           agg.TeamType,
		IsGroupWin:         agg.IsGroupWin,
		IsGroupWinHandicap: agg.IsGroupWinHandicap,
		HoleNumber:         holeNumber,
		Score:              score,
		SumScore:           agg.SumScore,
		HandicapScore:      agg.HandicapScore,
	}

	a.broadcaster.BroadcastGroupUpdate(event.ID, agg.GroupType, update)

	if err := a.publisher.PublishScoreUpdated(ctx, event.ID, update); err != nil {
		log.Warn().Err(err).
			Str("event_id", event.ID.String()).
			Str("participant_id", participantID.String()).
			Msg("failed to publish score update event")
	}
	return &update, nil
}

// ensureSeeded makes sure the participant's static metadata is in the cache
// before the write pipeline derives aggregates from it.
func (a *App) ensureSeeded(ctx context.Context, eventID, participantID uuid.UUID) error {
	_, err := a.cache.GetParticipantAggregate(ctx, eventID, participantID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, scorecache.ErrNotFound) {
		return err
	}

	p, err := a.store.GetParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if p.EventID != eventID {
		return fmt.Errorf("%w: participant %s not in event %s", scorecache.ErrNotFound, participantID, eventID)
	}
	return a.cache.SeedParticipant(ctx, *p)
}

// evaluateTeams recomputes the submitting participant's group result and
// the four event-level outcomes, storing both back into the cache.
func (a *App) evaluateTeams(ctx context.Context, eventID uuid.UUID, agg *models.ParticipantAggregate) error {
	group, err := a.cache.GetAllParticipantAggregates(ctx, eventID, &agg.GroupType)
	if err != nil {
		return err
	}
	result := teamwin.EvaluateGroup(group)
	for _, member := range group {
		if member.TeamType == models.TeamTypeNone {
			continue
		}
		id := member.ParticipantID.String()
		if err := a.cache.StoreWinFlags(ctx, eventID, member.ParticipantID, result.Win[id], result.WinHandicap[id]); err != nil {
			return err
		}
	}

	all, err := a.cache.GetAllParticipantAggregates(ctx, eventID, nil)
	if err != nil {
		return err
	}
	return a.cache.StoreEventAggregate(ctx, teamwin.EvaluateEvent(eventID, all))
}

// GroupRoster returns the current state of every participant in one group,
// in the same shape as a score-update echo.
func (a *App) GroupRoster(ctx context.Context, eventID uuid.UUID, groupType int) ([]ScoreUpdate, error) {
	aggs, err := a.cache.GetAllParticipantAggregates(ctx, eventID, &groupType)
	if err != nil {
		return nil, err
	}
	roster := make([]ScoreUpdate, 0, len(aggs))
	for _, agg := range aggs {
		roster = append(roster, ScoreUpdate{
			ParticipantID:      agg.ParticipantID,
			GroupType:          agg.GroupType,
			TeamType:           agg.TeamType,
			IsGroupWin:         agg.IsGroupWin,
			IsGroupWinHandicap: agg.IsGroupWinHandicap,
			HoleNumber:         agg.LastHoleNumber,
			Score:              agg.LastScore,
			SumScore:           agg.SumScore,
			HandicapScore:      agg.HandicapScore,
		})
	}
	return roster, nil
}

// BuildSnapshot assembles the event-wide snapshot: two ranking passes over
// the same cache snapshot plus the event-level team outcomes.
func (a *App) BuildSnapshot(ctx context.Context, eventID uuid.UUID) (*EventSnapshot, error) {
	aggs, err := a.cache.GetAllParticipantAggregates(ctx, eventID, nil)
	if err != nil {
		return nil, err
	}
	ranked := rankBoth(aggs)

	snapshot := &EventSnapshot{Rankings: make([]RankingEntry, 0, len(ranked))}
	for _, agg := range ranked {
		if agg.Rank == "" {
			// No holes recorded yet; not in contention.
			continue
		}
		snapshot.Rankings = append(snapshot.Rankings, RankingEntry{
			ParticipantID:  agg.ParticipantID,
			LastHoleNumber: agg.LastHoleNumber,
			LastScore:      agg.LastScore,
			Rank:           agg.Rank,
			HandicapRank:   agg.HandicapRank,
			SumScore:       agg.SumScore,
			HandicapScore:  agg.HandicapScore,
			User:           SnapshotUser{Name: agg.UserName},
		})
	}

	evAgg, err := a.cache.GetEventAggregate(ctx, eventID)
	if err != nil && !errors.Is(err, scorecache.ErrNotFound) {
		return nil, err
	}
	if evAgg != nil {
		snapshot.Event = EventResult{
			GroupWinTeam:         evAgg.GroupWinTeam,
			GroupWinTeamHandicap: evAgg.GroupWinTeamHandicap,
			TotalWinTeam:         evAgg.TotalWinTeam,
			TotalWinTeamHandicap: evAgg.TotalWinTeamHandicap,
		}
	}
	return snapshot, nil
}

// BroadcastSnapshot builds and fans out the event-wide snapshot. Driven by
// the gateway's periodic ticker and by explicit resync requests.
func (a *App) BroadcastSnapshot(ctx context.Context, eventID uuid.UUID) error {
	snapshot, err := a.BuildSnapshot(ctx, eventID)
	if err != nil {
		return err
	}
	a.broadcaster.BroadcastEventSnapshot(eventID, *snapshot)
	return nil
}

// Flush reconciles the event's cache state into the durable store: ranked
// aggregates, the event aggregate, and every hole score, in one transaction.
// Implements the persistence scheduler's flush contract.
func (a *App) Flush(ctx context.Context, eventID uuid.UUID) error {
	aggs, err := a.cache.GetAllParticipantAggregates(ctx, eventID, nil)
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		return nil
	}
	ranked := rankBoth(aggs)

	scores, err := a.cache.GetAllHoleScores(ctx, eventID)
	if err != nil {
		return err
	}

	evAgg, err := a.cache.GetEventAggregate(ctx, eventID)
	if err != nil && !errors.Is(err, scorecache.ErrNotFound) {
		return err
	}

	return a.store.Persist(ctx, eventID, ranked, evAgg, scores)
}

// Finalize publishes the event-finalized integration event after the last
// viewer's final flush succeeded.
func (a *App) Finalize(ctx context.Context, eventID uuid.UUID) {
	if err := a.publisher.PublishEventFinalized(ctx, eventID); err != nil {
		log.Warn().Err(err).Str("event_id", eventID.String()).Msg("failed to publish event finalized")
	}
}

// rankBoth runs the raw and handicap ranking passes over one snapshot and
// merges the labels onto a single slice, ordered by raw rank. Participants
// with no recorded holes keep empty rank labels and sort last.
func rankBoth(aggs []models.ParticipantAggregate) []models.ParticipantAggregate {
	raw := ranking.ComputeRanks(aggs, ranking.Raw)
	handicap := ranking.ComputeRanks(aggs, ranking.Handicap)

	hcRank := make(map[uuid.UUID]string, len(handicap))
	for _, agg := range handicap {
		hcRank[agg.ParticipantID] = agg.HandicapRank
	}

	ranked := make([]models.ParticipantAggregate, 0, len(aggs))
	seen := make(map[uuid.UUID]bool, len(raw))
	for _, agg := range raw {
		agg.HandicapRank = hcRank[agg.ParticipantID]
		ranked = append(ranked, agg)
		seen[agg.ParticipantID] = true
	}
	// Not-yet-in-contention participants still belong in flush output.
	rest := make([]models.ParticipantAggregate, 0)
	for _, agg := range aggs {
		if !seen[agg.ParticipantID] {
			rest = append(rest, agg)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].ParticipantID.String() < rest[j].ParticipantID.String()
	})
	return append(ranked, rest...)
}
