package scorecache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iNESlab/golbang-live/go/internal/models"
)

func TestDecodeAggregate(t *testing.T) {
	id := uuid.New()
	fields := map[string]string{
		fieldGroupType:          "2",
		fieldTeamType:           "TEAM_A",
		fieldUserName:           "Minsoo",
		fieldHandicap:           "7",
		fieldSumScore:           "41",
		fieldHandicapScore:      "34",
		fieldLastHoleNumber:     "9",
		fieldLastScore:          "5",
		fieldIsGroupWin:         "1",
		fieldIsGroupWinHandicap: "0",
		"hole:1":                "4",
		"hole:9":                "5",
	}

	agg, err := decodeAggregate(id, fields)
	require.NoError(t, err)

	assert.Equal(t, id, agg.ParticipantID)
	assert.Equal(t, 2, agg.GroupType)
	assert.Equal(t, models.TeamTypeA, agg.TeamType)
	assert.Equal(t, "Minsoo", agg.UserName)
	assert.Equal(t, 7, agg.Handicap)
	assert.Equal(t, 41, agg.SumScore)
	assert.Equal(t, 34, agg.HandicapScore)
	assert.Equal(t, 9, agg.LastHoleNumber)
	assert.Equal(t, 5, agg.LastScore)
	assert.Equal(t, 2, agg.HoleCount)
	assert.True(t, agg.IsGroupWin)
	assert.False(t, agg.IsGroupWinHandicap)
}

func TestDecodeAggregateDefaultsTeamTypeNone(t *testing.T) {
	agg, err := decodeAggregate(uuid.New(), map[string]string{fieldSumScore: "10"})
	require.NoError(t, err)
	assert.Equal(t, models.TeamTypeNone, agg.TeamType)
}

func TestDecodeHoleScores(t *testing.T) {
	holes, err := decodeHoleScores(map[string]string{
		"hole:3":      "4",
		"hole:17":     "6",
		fieldSumScore: "10", // ignored, not a hole field
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{3: 4, 17: 6}, holes)
}

func TestDecodeHoleScoresMalformed(t *testing.T) {
	_, err := decodeHoleScores(map[string]string{"hole:x": "4"})
	assert.Error(t, err)

	_, err = decodeHoleScores(map[string]string{"hole:3": "four"})
	assert.Error(t, err)
}

func TestEventAggregateRoundTrip(t *testing.T) {
	agg := models.EventAggregate{
		EventID:              uuid.New(),
		GroupWinTeam:         models.WinningTeamA,
		GroupWinTeamHandicap: models.WinningTeamDraw,
		TotalWinTeam:         models.WinningTeamB,
		TotalWinTeamHandicap: models.WinningTeamA,
	}

	decoded := decodeEventAggregate(agg.EventID, encodeEventAggregate(agg))
	assert.Equal(t, &agg, decoded)
}

func TestEncodeParticipantMeta(t *testing.T) {
	p := models.Participant{
		ID:        uuid.New(),
		EventID:   uuid.New(),
		UserName:  "Jiyoon",
		GroupType: 3,
		TeamType:  models.TeamTypeB,
		Handicap:  12,
	}

	fields := encodeParticipantMeta(p)
	assert.Equal(t, "3", fields[fieldGroupType])
	assert.Equal(t, "TEAM_B", fields[fieldTeamType])
	assert.Equal(t, "Jiyoon", fields[fieldUserName])
	assert.Equal(t, "12", fields[fieldHandicap])
}
