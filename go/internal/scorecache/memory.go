package scorecache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/iNESlab/golbang-live/go/internal/models"
)

// MemoryCache is an in-process ScoreCache for tests and local development.
// It mirrors the Redis implementation's semantics (last write wins, derived
// aggregates only written through the recompute path) without the TTL
// behavior.
type MemoryCache struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*memoryEvent

	// FailWrites makes every mutating call return ErrCacheUnavailable,
	// simulating an unreachable backing store.
	FailWrites bool
}

type memoryEvent struct {
	participants map[uuid.UUID]*memoryParticipant
	result       *models.EventAggregate
}

type memoryParticipant struct {
	meta  models.Participant
	holes map[int]int
	agg   models.ParticipantAggregate
}

var _ ScoreCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{events: make(map[uuid.UUID]*memoryEvent)}
}

func (c *MemoryCache) event(eventID uuid.UUID) *memoryEvent {
	ev, ok := c.events[eventID]
	if !ok {
		ev = &memoryEvent{participants: make(map[uuid.UUID]*memoryParticipant)}
		c.events[eventID] = ev
	}
	return ev
}

func (c *MemoryCache) SeedParticipant(ctx context.Context, p models.Participant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWrites {
		return ErrCacheUnavailable
	}

	ev := c.event(p.EventID)
	mp, ok := ev.participants[p.ID]
	if !ok {
		mp = &memoryParticipant{holes: make(map[int]int)}
		ev.participants[p.ID] = mp
	}
	mp.meta = p
	mp.agg.ParticipantID = p.ID
	mp.agg.GroupType = p.GroupType
	mp.agg.TeamType = p.TeamType
	mp.agg.UserName = p.UserName
	mp.agg.Handicap = p.Handicap
	return nil
}

func (c *MemoryCache) PutHoleScore(ctx context.Context, eventID, participantID uuid.UUID, holeNumber, score int) error {
	if score < 0 || holeNumber < 1 {
		return ErrInvalidScore
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWrites {
		return ErrCacheUnavailable
	}

	ev := c.event(eventID)
	mp, ok := ev.participants[participantID]
	if !ok {
		mp = &memoryParticipant{holes: make(map[int]int)}
		mp.agg.ParticipantID = participantID
		mp.agg.TeamType = models.TeamTypeNone
		ev.participants[participantID] = mp
	}
	mp.holes[holeNumber] = score
	mp.agg.LastHoleNumber = holeNumber
	mp.agg.LastScore = score
	return nil
}

func (c *MemoryCache) GetHoleScores(ctx context.Context, eventID, participantID uuid.UUID) (map[int]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mp, err := c.participant(eventID, participantID)
	if err != nil {
		return nil, err
	}
	holes := make(map[int]int, len(mp.holes))
	for hole, score := range mp.holes {
		holes[hole] = score
	}
	return holes, nil
}

func (c *MemoryCache) GetAllHoleScores(ctx context.Context, eventID uuid.UUID) ([]models.HoleScore, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ev, ok := c.events[eventID]
	if !ok {
		return nil, nil
	}
	var scores []models.HoleScore
	for id, mp := range ev.participants {
		for hole, score := range mp.holes {
			scores = append(scores, models.HoleScore{ParticipantID: id, HoleNumber: hole, Score: score})
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].ParticipantID != scores[j].ParticipantID {
			return scores[i].ParticipantID.String() < scores[j].ParticipantID.String()
		}
		return scores[i].HoleNumber < scores[j].HoleNumber
	})
	return scores, nil
}

func (c *MemoryCache) RecomputeAndStoreAggregate(ctx context.Context, eventID, participantID uuid.UUID) (*models.ParticipantAggregate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWrites {
		return nil, ErrCacheUnavailable
	}

	mp, err := c.participant(eventID, participantID)
	if err != nil {
		return nil, err
	}
	sum := 0
	for _, score := range mp.holes {
		sum += score
	}
	mp.agg.SumScore = sum
	mp.agg.HandicapScore = sum - mp.agg.Handicap
	mp.agg.HoleCount = len(mp.holes)
	agg := mp.agg
	return &agg, nil
}

func (c *MemoryCache) GetParticipantAggregate(ctx context.Context, eventID, participantID uuid.UUID) (*models.ParticipantAggregate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mp, err := c.participant(eventID, participantID)
	if err != nil {
		return nil, err
	}
	agg := mp.agg
	agg.HoleCount = len(mp.holes)
	return &agg, nil
}

func (c *MemoryCache) GetAllParticipantAggregates(ctx context.Context, eventID uuid.UUID, groupFilter *int) ([]models.ParticipantAggregate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ev, ok := c.events[eventID]
	if !ok {
		return nil, nil
	}
	aggs := make([]models.ParticipantAggregate, 0, len(ev.participants))
	for _, mp := range ev.participants {
		if groupFilter != nil && mp.agg.GroupType != *groupFilter {
			continue
		}
		agg := mp.agg
		agg.HoleCount = len(mp.holes)
		aggs = append(aggs, agg)
	}
	sort.Slice(aggs, func(i, j int) bool {
		return aggs[i].ParticipantID.String() < aggs[j].ParticipantID.String()
	})
	return aggs, nil
}

func (c *MemoryCache) StoreWinFlags(ctx context.Context, eventID, participantID uuid.UUID, groupWin, groupWinHandicap bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWrites {
		return ErrCacheUnavailable
	}

	mp, err := c.participant(eventID, participantID)
	if err != nil {
		return err
	}
	mp.agg.IsGroupWin = groupWin
	mp.agg.IsGroupWinHandicap = groupWinHandicap
	return nil
}

func (c *MemoryCache) StoreEventAggregate(ctx context.Context, agg models.EventAggregate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWrites {
		return ErrCacheUnavailable
	}

	copied := agg
	c.event(agg.EventID).result = &copied
	return nil
}

func (c *MemoryCache) GetEventAggregate(ctx context.Context, eventID uuid.UUID) (*models.EventAggregate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ev, ok := c.events[eventID]
	if !ok || ev.result == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	agg := *ev.result
	return &agg, nil
}

func (c *MemoryCache) HasEvent(ctx context.Context, eventID uuid.UUID) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ev, ok := c.events[eventID]
	return ok && len(ev.participants) > 0, nil
}

func (c *MemoryCache) participant(eventID, participantID uuid.UUID) (*memoryParticipant, error) {
	ev, ok := c.events[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	mp, ok := ev.participants[participantID]
	if !ok {
		return nil, fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
	}
	return mp, nil
}
