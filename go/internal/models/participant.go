package models

import (
	"github.com/google/uuid"
)

// TeamType defines which side of a team match a participant plays for.
type TeamType string

const (
	TeamTypeNone TeamType = "NONE"
	TeamTypeA    TeamType = "TEAM_A"
	TeamTypeB    TeamType = "TEAM_B"
)

// Participant represents one entrant's scoring identity within an event.
// Identity fields are immutable during live play; only derived score state
// changes while the event is running.
type Participant struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	MemberID  uuid.UUID `json:"member_id"`
	UserName  string    `json:"user_name"`
	GroupType int       `json:"group_type"`
	TeamType  TeamType  `json:"team_type"`
	Handicap  int       `json:"handicap"`
}

// OnTeam reports whether the participant takes part in team scoring.
func (p Participant) OnTeam() bool {
	return p.TeamType == TeamTypeA || p.TeamType == TeamTypeB
}
