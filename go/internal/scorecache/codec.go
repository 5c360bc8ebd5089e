package scorecache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/iNESlab/golbang-live/go/internal/models"
)

// Redis hash field names. All cache state for one participant lives in a
// single hash; hole scores use a "hole:<n>" field per hole so an upsert is
// one HSET. Typed (de)serialization happens here and nowhere else.
const (
	fieldGroupType          = "group_type"
	fieldTeamType           = "team_type"
	fieldUserName           = "user_name"
	fieldHandicap           = "handicap"
	fieldSumScore           = "sum_score"
	fieldHandicapScore      = "handicap_score"
	fieldLastHoleNumber     = "last_hole_number"
	fieldLastScore          = "last_score"
	fieldIsGroupWin         = "is_group_win"
	fieldIsGroupWinHandicap = "is_group_win_handicap"

	fieldGroupWinTeam         = "group_win_team"
	fieldGroupWinTeamHandicap = "group_win_team_handicap"
	fieldTotalWinTeam         = "total_win_team"
	fieldTotalWinTeamHandicap = "total_win_team_handicap"

	holeFieldPrefix = "hole:"
)

func holeField(holeNumber int) string {
	return holeFieldPrefix + strconv.Itoa(holeNumber)
}

// decodeHoleScores extracts hole number -> stroke count from raw hash fields.
func decodeHoleScores(fields map[string]string) (map[int]int, error) {
	holes := make(map[int]int)
	for field, raw := range fields {
		if !strings.HasPrefix(field, holeFieldPrefix) {
			continue
		}
		hole, err := strconv.Atoi(strings.TrimPrefix(field, holeFieldPrefix))
		if err != nil {
			return nil, fmt.Errorf("malformed hole field %q: %w", field, err)
		}
		score, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("malformed score for %q: %w", field, err)
		}
		holes[hole] = score
	}
	return holes, nil
}

// decodeAggregate builds a typed aggregate from raw hash fields. The
// participant ID comes from the key, not the hash.
func decodeAggregate(participantID uuid.UUID, fields map[string]string) (*models.ParticipantAggregate, error) {
	holes, err := decodeHoleScores(fields)
	if err != nil {
		return nil, err
	}

	agg := &models.ParticipantAggregate{
		ParticipantID:      participantID,
		TeamType:           models.TeamType(fields[fieldTeamType]),
		UserName:           fields[fieldUserName],
		GroupType:          intField(fields, fieldGroupType),
		Handicap:           intField(fields, fieldHandicap),
		SumScore:           intField(fields, fieldSumScore),
		HandicapScore:      intField(fields, fieldHandicapScore),
		LastHoleNumber:     intField(fields, fieldLastHoleNumber),
		LastScore:          intField(fields, fieldLastScore),
		HoleCount:          len(holes),
		IsGroupWin:         boolField(fields, fieldIsGroupWin),
		IsGroupWinHandicap: boolField(fields, fieldIsGroupWinHandicap),
	}
	if agg.TeamType == "" {
		agg.TeamType = models.TeamTypeNone
	}
	return agg, nil
}

func decodeEventAggregate(eventID uuid.UUID, fields map[string]string) *models.EventAggregate {
	return &models.EventAggregate{
		EventID:              eventID,
		GroupWinTeam:         models.WinningTeam(fields[fieldGroupWinTeam]),
		GroupWinTeamHandicap: models.WinningTeam(fields[fieldGroupWinTeamHandicap]),
		TotalWinTeam:         models.WinningTeam(fields[fieldTotalWinTeam]),
		TotalWinTeamHandicap: models.WinningTeam(fields[fieldTotalWinTeamHandicap]),
	}
}

func encodeEventAggregate(agg models.EventAggregate) map[string]string {
	return map[string]string{
		fieldGroupWinTeam:         string(agg.GroupWinTeam),
		fieldGroupWinTeamHandicap: string(agg.GroupWinTeamHandicap),
		fieldTotalWinTeam:         string(agg.TotalWinTeam),
		fieldTotalWinTeamHandicap: string(agg.TotalWinTeamHandicap),
	}
}

func encodeParticipantMeta(p models.Participant) map[string]string {
	return map[string]string{
		fieldGroupType: strconv.Itoa(p.GroupType),
		fieldTeamType:  string(p.TeamType),
		fieldUserName:  p.UserName,
		fieldHandicap:  strconv.Itoa(p.Handicap),
	}
}

func intField(fields map[string]string, name string) int {
	v, err := strconv.Atoi(fields[name])
	if err != nil {
		return 0
	}
	return v
}

func boolField(fields map[string]string, name string) bool {
	return fields[name] == "1" || fields[name] == "true"
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
