package models

import (
	"github.com/google/uuid"
)

// HoleScore is the stroke count recorded for one participant on one hole.
// Unique per (participant, hole number); a resubmission for the same hole
// overwrites the prior value.
type HoleScore struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	HoleNumber    int       `json:"hole_number"`
	Score         int       `json:"score"`
}

// WinningTeam is the outcome of a team-vs-team comparison.
type WinningTeam string

const (
	WinningTeamA    WinningTeam = "TEAM_A"
	WinningTeamB    WinningTeam = "TEAM_B"
	WinningTeamDraw WinningTeam = "DRAW"
)

// ParticipantAggregate is the cache-resident derived score state for one
// participant. It is never authored directly: it is fully recomputable from
// the set of hole scores plus static participant metadata.
type ParticipantAggregate struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	GroupType     int       `json:"group_type"`
	TeamType      TeamType  `json:"team_type"`
	UserName      string    `json:"user_name"`
	Handicap      int       `json:"handicap"`

	HoleCount      int `json:"hole_count"`
	LastHoleNumber int `json:"last_hole_number"`
	LastScore      int `json:"last_score"`

	SumScore      int `json:"sum_score"`
	HandicapScore int `json:"handicap_score"`

	Rank         string `json:"rank"`
	HandicapRank string `json:"handicap_rank"`

	IsGroupWin         bool `json:"is_group_win"`
	IsGroupWinHandicap bool `json:"is_group_win_handicap"`
}

// EventAggregate holds the cache-resident event-level team results. Each
// field is one of TEAM_A / TEAM_B / DRAW, or empty when no team member has
// scored yet.
type EventAggregate struct {
	EventID              uuid.UUID   `json:"event_id"`
	GroupWinTeam         WinningTeam `json:"group_win_team,omitempty"`
	GroupWinTeamHandicap WinningTeam `json:"group_win_team_handicap,omitempty"`
	TotalWinTeam         WinningTeam `json:"total_win_team,omitempty"`
	TotalWinTeamHandicap WinningTeam `json:"total_win_team_handicap,omitempty"`
}
