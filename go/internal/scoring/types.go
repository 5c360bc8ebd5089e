package scoring

import (
	"github.com/google/uuid"

	"github.com/iNESlab/golbang-live/go/internal/models"
)

// ScoreUpdate is the payload echoed to a group channel after a score write
// is acknowledged by the cache. It is also the roster entry shape returned
// for an explicit "get".
type ScoreUpdate struct {
	ParticipantID      uuid.UUID       `json:"participant_id"`
	GroupType          int             `json:"group_type"`
	TeamType           models.TeamType `json:"team_type"`
	IsGroupWin         bool            `json:"is_group_win"`
	IsGroupWinHandicap bool            `json:"is_group_win_handicap"`
	HoleNumber         int             `json:"hole_number"`
	Score              int             `json:"score"`
	SumScore           int             `json:"sum_score"`
	HandicapScore      int             `json:"handicap_score"`
}

// SnapshotUser carries the member identity fields a viewer needs to render
// a ranking row.
type SnapshotUser struct {
	Name string `json:"name"`
}

// RankingEntry is one row of an event-wide snapshot, ordered by raw rank.
type RankingEntry struct {
	ParticipantID  uuid.UUID    `json:"participant_id"`
	LastHoleNumber int          `json:"last_hole_number"`
	LastScore      int          `json:"last_score"`
	Rank           string       `json:"rank"`
	HandicapRank   string       `json:"handicap_rank"`
	SumScore       int          `json:"sum_score"`
	HandicapScore  int          `json:"handicap_score"`
	User           SnapshotUser `json:"user"`
}

// EventResult is the event-level team outcome block of a snapshot.
type EventResult struct {
	GroupWinTeam         models.WinningTeam `json:"group_win_team,omitempty"`
	GroupWinTeamHandicap models.WinningTeam `json:"group_win_team_handicap,omitempty"`
	TotalWinTeam         models.WinningTeam `json:"total_win_team,omitempty"`
	TotalWinTeamHandicap models.WinningTeam `json:"total_win_team_handicap,omitempty"`
}

// EventSnapshot is the full ranking snapshot broadcast to every viewer of
// an event, periodically and on demand.
type EventSnapshot struct {
	Event    EventResult    `json:"event"`
	Rankings []RankingEntry `json:"rankings"`
}
