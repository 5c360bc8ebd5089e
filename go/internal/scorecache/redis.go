package scorecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iNESlab/golbang-live/go/internal/models"
)

// RedisCache implements ScoreCache on a shared Redis instance. One hash per
// participant, one hash per event for team results, and one set per event
// indexing its participants. Every write refreshes the TTL on the touched
// keys.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ ScoreCache = (*RedisCache)(nil)

// NewRedisCache wraps an existing Redis client. A non-positive ttl falls
// back to DefaultTTL.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func participantKey(eventID, participantID uuid.UUID) string {
	return fmt.Sprintf("live:event:%s:participant:%s", eventID, participantID)
}

func indexKey(eventID uuid.UUID) string {
	return fmt.Sprintf("live:event:%s:participants", eventID)
}

func eventKey(eventID uuid.UUID) string {
	return fmt.Sprintf("live:event:%s:result", eventID)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCacheUnavailable, op, err)
}

func (c *RedisCache) SeedParticipant(ctx context.Context, p models.Participant) error {
	key := participantKey(p.EventID, p.ID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encodeParticipantMeta(p))
		pipe.SAdd(ctx, indexKey(p.EventID), p.ID.String())
		pipe.Expire(ctx, key, c.ttl)
		pipe.Expire(ctx, indexKey(p.EventID), c.ttl)
		return nil
	})
	if err != nil {
		return unavailable("seed participant", err)
	}
	return nil
}

func (c *RedisCache) PutHoleScore(ctx context.Context, eventID, participantID uuid.UUID, holeNumber, score int) error {
	if score < 0 || holeNumber < 1 {
		return ErrInvalidScore
	}
	key := participantKey(eventID, participantID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			holeField(holeNumber), score,
			fieldLastHoleNumber, holeNumber,
			fieldLastScore, score,
		)
		pipe.SAdd(ctx, indexKey(eventID), participantID.String())
		pipe.Expire(ctx, key, c.ttl)
		pipe.Expire(ctx, indexKey(eventID), c.ttl)
		return nil
	})
	if err != nil {
		return unavailable("put hole score", err)
	}
	return nil
}

func (c *RedisCache) GetHoleScores(ctx context.Context, eventID, participantID uuid.UUID) (map[int]int, error) {
	fields, err := c.rdb.HGetAll(ctx, participantKey(eventID, participantID)).Result()
	if err != nil {
		return nil, unavailable("get hole scores", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
	}
	return decodeHoleScores(fields)
}

func (c *RedisCache) GetAllHoleScores(ctx context.Context, eventID uuid.UUID) ([]models.HoleScore, error) {
	ids, err := c.participantIDs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	var scores []models.HoleScore
	for _, id := range ids {
		holes, err := c.GetHoleScores(ctx, eventID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		for hole, score := range holes {
			scores = append(scores, models.HoleScore{
				ParticipantID: id,
				HoleNumber:    hole,
				Score:         score,
			})
		}
	}
	return scores, nil
}

func (c *RedisCache) RecomputeAndStoreAggregate(ctx context.Context, eventID, participantID uuid.UUID) (*models.ParticipantAggregate, error) {
	key := participantKey(eventID, participantID)
	fields, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable("recompute aggregate", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
	}

	agg, err := decodeAggregate(participantID, fields)
	if err != nil {
		return nil, err
	}

	sum := 0
	holes, err := decodeHoleScores(fields)
	if err != nil {
		return nil, err
	}
	for _, score := range holes {
		sum += score
	}
	agg.SumScore = sum
	agg.HandicapScore = sum - agg.Handicap

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldSumScore, agg.SumScore,
			fieldHandicapScore, agg.HandicapScore,
		)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return nil, unavailable("store aggregate", err)
	}
	return agg, nil
}

func (c *RedisCache) GetParticipantAggregate(ctx context.Context, eventID, participantID uuid.UUID) (*models.ParticipantAggregate, error) {
	fields, err := c.rdb.HGetAll(ctx, participantKey(eventID, participantID)).Result()
	if err != nil {
		return nil, unavailable("get aggregate", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
	}
	return decodeAggregate(participantID, fields)
}

func (c *RedisCache) GetAllParticipantAggregates(ctx context.Context, eventID uuid.UUID, groupFilter *int) ([]models.ParticipantAggregate, error) {
	ids, err := c.participantIDs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	aggs := make([]models.ParticipantAggregate, 0, len(ids))
	for _, id := range ids {
		agg, err := c.GetParticipantAggregate(ctx, eventID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if groupFilter != nil && agg.GroupType != *groupFilter {
			continue
		}
		aggs = append(aggs, *agg)
	}
	return aggs, nil
}

func (c *RedisCache) StoreWinFlags(ctx context.Context, eventID, participantID uuid.UUID, groupWin, groupWinHandicap bool) error {
	key := participantKey(eventID, participantID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldIsGroupWin, encodeBool(groupWin),
			fieldIsGroupWinHandicap, encodeBool(groupWinHandicap),
		)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return unavailable("store win flags", err)
	}
	return nil
}

func (c *RedisCache) StoreEventAggregate(ctx context.Context, agg models.EventAggregate) error {
	key := eventKey(agg.EventID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encodeEventAggregate(agg))
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return unavailable("store event aggregate", err)
	}
	return nil
}

func (c *RedisCache) GetEventAggregate(ctx context.Context, eventID uuid.UUID) (*models.EventAggregate, error) {
	fields, err := c.rdb.HGetAll(ctx, eventKey(eventID)).Result()
	if err != nil {
		return nil, unavailable("get event aggregate", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	return decodeEventAggregate(eventID, fields), nil
}

func (c *RedisCache) HasEvent(ctx context.Context, eventID uuid.UUID) (bool, error) {
	n, err := c.rdb.SCard(ctx, indexKey(eventID)).Result()
	if err != nil {
		return false, unavailable("has event", err)
	}
	return n > 0, nil
}

func (c *RedisCache) participantIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	raw, err := c.rdb.SMembers(ctx, indexKey(eventID)).Result()
	if err != nil {
		return nil, unavailable("list participants", err)
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("malformed participant id %q in index: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
