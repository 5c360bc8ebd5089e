// Package store is the durable system of record for event scoring. The
// score cache stays authoritative while an event is live; the persistence
// scheduler reconciles cache state into these tables so nothing is lost
// when a cache process restarts.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iNESlab/golbang-live/go/internal/models"
	"github.com/iNESlab/golbang-live/go/internal/sqlutil"
)

// ErrNotFound is returned for lookups of unknown events or participants.
var ErrNotFound = errors.New("not found in store")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetEvent loads the static event record owned by the club-management
// service.
func (r *Repository) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var ev models.Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, club_id, title, hole_count, start_at, end_at
		FROM events
		WHERE id = $1`, eventID,
	).Scan(&ev.ID, &ev.ClubID, &ev.Title, &ev.HoleCount, &ev.StartAt, &ev.EndAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &ev, nil
}

// GetParticipant resolves a participant's identity fields, including the
// member's display name.
func (r *Repository) GetParticipant(ctx context.Context, participantID uuid.UUID) (*models.Participant, error) {
	var p models.Participant
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.event_id, p.member_id, m.name, p.group_type, p.team_type, p.handicap
		FROM participants p
		JOIN members m ON m.id = p.member_id
		WHERE p.id = $1`, participantID,
	).Scan(&p.ID, &p.EventID, &p.MemberID, &p.UserName, &p.GroupType, &p.TeamType, &p.Handicap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

// ListParticipants returns every participant registered for the event. Used
// to reseed a cold cache before serving.
func (r *Repository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.event_id, p.member_id, m.name, p.group_type, p.team_type, p.handicap
		FROM participants p
		JOIN members m ON m.id = p.member_id
		WHERE p.event_id = $1
		ORDER BY p.group_type, p.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.MemberID, &p.UserName, &p.GroupType, &p.TeamType, &p.Handicap); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// LoadHoleScores returns every persisted hole score for the event, used to
// warm the cache after a cache restart.
func (r *Repository) LoadHoleScores(ctx context.Context, eventID uuid.UUID) ([]models.HoleScore, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT hs.participant_id, hs.hole_number, hs.score
		FROM hole_scores hs
		JOIN participants p ON p.id = hs.participant_id
		WHERE p.event_id = $1
		ORDER BY hs.participant_id, hs.hole_number`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hole scores: %w", err)
	}
	defer rows.Close()

	var scores []models.HoleScore
	for rows.Next() {
		var hs models.HoleScore
		if err := rows.Scan(&hs.ParticipantID, &hs.HoleNumber, &hs.Score); err != nil {
			return nil, fmt.Errorf("failed to scan hole score: %w", err)
		}
		scores = append(scores, hs)
	}
	return scores, rows.Err()
}

// Persist reconciles one event's cache state into the durable store inside
// a single transaction. Aggregate columns are cache-derived and written as
// plain columns; hole scores are upserted by (participant, hole_number).
func (r *Repository) Persist(ctx context.Context, eventID uuid.UUID, aggs []models.ParticipantAggregate, eventAgg *models.EventAggregate, holeScores []models.HoleScore) error {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}

		for _, agg := range aggs {
			batch.Queue(`
				UPDATE participants
				SET sum_score = $2,
				    handicap_score = $3,
				    rank = $4,
				    handicap_rank = $5,
				    is_group_win = $6,
				    is_group_win_handicap = $7,
				    last_hole_number = $8,
				    last_score = $9
				WHERE id = $1`,
				agg.ParticipantID, agg.SumScore, agg.HandicapScore,
				agg.Rank, agg.HandicapRank,
				agg.IsGroupWin, agg.IsGroupWinHandicap,
				agg.LastHoleNumber, agg.LastScore,
			)
		}

		for _, hs := range holeScores {
			batch.Queue(`
				INSERT INTO hole_scores (participant_id, hole_number, score)
				VALUES ($1, $2, $3)
				ON CONFLICT (participant_id, hole_number)
				DO UPDATE SET score = EXCLUDED.score`,
				hs.ParticipantID, hs.HoleNumber, hs.Score,
			)
		}

		if eventAgg != nil {
			batch.Queue(`
				INSERT INTO event_results (
					event_id, group_win_team, group_win_team_handicap,
					total_win_team, total_win_team_handicap
				)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (event_id)
				DO UPDATE SET
					group_win_team = EXCLUDED.group_win_team,
					group_win_team_handicap = EXCLUDED.group_win_team_handicap,
					total_win_team = EXCLUDED.total_win_team,
					total_win_team_handicap = EXCLUDED.total_win_team_handicap`,
				eventID, string(eventAgg.GroupWinTeam), string(eventAgg.GroupWinTeamHandicap),
				string(eventAgg.TotalWinTeam), string(eventAgg.TotalWinTeamHandicap),
			)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to persist event %s: %w", eventID, err)
			}
		}
		return nil
	})
}
