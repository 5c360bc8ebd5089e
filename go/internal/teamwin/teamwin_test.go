package teamwin

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/iNESlab/golbang-live/go/internal/models"
)

func member(team models.TeamType, group, sum, handicap int) models.ParticipantAggregate {
	return models.ParticipantAggregate{
		ParticipantID: uuid.New(),
		GroupType:     group,
		TeamType:      team,
		SumScore:      sum,
		HandicapScore: sum - handicap,
		HoleCount:     9,
	}
}

func TestEvaluateGroupLowerSumWins(t *testing.T) {
	a1 := member(models.TeamTypeA, 1, 68, 0)
	a2 := member(models.TeamTypeA, 1, 72, 0)
	b1 := member(models.TeamTypeB, 1, 70, 0)
	b2 := member(models.TeamTypeB, 1, 72, 0)

	res := EvaluateGroup([]models.ParticipantAggregate{a1, a2, b1, b2})

	// TEAM_A 140 vs TEAM_B 142: every TEAM_A member wins the group.
	assert.True(t, res.Win[a1.ParticipantID.String()])
	assert.True(t, res.Win[a2.ParticipantID.String()])
	assert.False(t, res.Win[b1.ParticipantID.String()])
	assert.False(t, res.Win[b2.ParticipantID.String()])
}

func TestEvaluateGroupEqualSumsIsDraw(t *testing.T) {
	a := member(models.TeamTypeA, 1, 71, 0)
	b := member(models.TeamTypeB, 1, 71, 0)

	res := EvaluateGroup([]models.ParticipantAggregate{a, b})

	assert.False(t, res.Win[a.ParticipantID.String()])
	assert.False(t, res.Win[b.ParticipantID.String()])
}

func TestEvaluateGroupHandicapIndependentOfRaw(t *testing.T) {
	// TEAM_A wins raw, TEAM_B wins after handicap adjustment.
	a := member(models.TeamTypeA, 1, 70, 0)
	b := member(models.TeamTypeB, 1, 72, 10)

	res := EvaluateGroup([]models.ParticipantAggregate{a, b})

	assert.True(t, res.Win[a.ParticipantID.String()])
	assert.False(t, res.WinHandicap[a.ParticipantID.String()])
	assert.True(t, res.WinHandicap[b.ParticipantID.String()])
}

func TestEvaluateGroupIgnoresNonTeamMembers(t *testing.T) {
	a := member(models.TeamTypeA, 1, 80, 0)
	b := member(models.TeamTypeB, 1, 82, 0)
	solo := member(models.TeamTypeNone, 1, 60, 0)

	res := EvaluateGroup([]models.ParticipantAggregate{a, b, solo})

	assert.True(t, res.Win[a.ParticipantID.String()])
	_, tracked := res.Win[solo.ParticipantID.String()]
	assert.False(t, tracked)
}

func TestEvaluateEvent(t *testing.T) {
	eventID := uuid.New()
	all := []models.ParticipantAggregate{
		// Group 1: TEAM_A wins (68 vs 70).
		member(models.TeamTypeA, 1, 68, 0),
		member(models.TeamTypeB, 1, 70, 0),
		// Group 2: TEAM_A wins (69 vs 75).
		member(models.TeamTypeA, 2, 69, 0),
		member(models.TeamTypeB, 2, 75, 0),
		// Group 3: TEAM_B wins (80 vs 71).
		member(models.TeamTypeA, 3, 80, 0),
		member(models.TeamTypeB, 3, 71, 0),
	}

	agg := EvaluateEvent(eventID, all)

	assert.Equal(t, eventID, agg.EventID)
	// 2 group wins vs 1.
	assert.Equal(t, models.WinningTeamA, agg.GroupWinTeam)
	// Totals: TEAM_A 217 vs TEAM_B 216.
	assert.Equal(t, models.WinningTeamB, agg.TotalWinTeam)
}

func TestEvaluateEventDraws(t *testing.T) {
	all := []models.ParticipantAggregate{
		member(models.TeamTypeA, 1, 70, 0),
		member(models.TeamTypeB, 1, 68, 0),
		member(models.TeamTypeA, 2, 68, 0),
		member(models.TeamTypeB, 2, 70, 0),
	}

	agg := EvaluateEvent(uuid.New(), all)

	assert.Equal(t, models.WinningTeamDraw, agg.GroupWinTeam)
	// Totals equal: 138 each.
	assert.Equal(t, models.WinningTeamDraw, agg.TotalWinTeam)
}

func TestEvaluateEventNoTeamMembers(t *testing.T) {
	all := []models.ParticipantAggregate{
		member(models.TeamTypeNone, 1, 70, 0),
		member(models.TeamTypeNone, 1, 72, 0),
	}

	agg := EvaluateEvent(uuid.New(), all)

	assert.Empty(t, agg.GroupWinTeam)
	assert.Empty(t, agg.TotalWinTeam)
}
