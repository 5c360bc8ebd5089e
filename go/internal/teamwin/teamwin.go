// Package teamwin computes team win/loss/draw outcomes from aggregated
// scores. Only participants on TEAM_A or TEAM_B take part; everyone else is
// ignored. All functions are pure computation over cache snapshots.
package teamwin

import (
	"github.com/google/uuid"

	"github.com/iNESlab/golbang-live/go/internal/models"
)

// GroupResult holds the per-member win flags for one group.
type GroupResult struct {
	// Win maps participant ID string -> is_group_win.
	Win map[string]bool
	// WinHandicap maps participant ID string -> is_group_win_handicap.
	WinHandicap map[string]bool
}

// EvaluateGroup compares the summed scores of the two teams within a single
// group. The team with the strictly lower sum wins; every member of that
// team gets the win flag. Equal sums are a draw and nobody gets it.
func EvaluateGroup(members []models.ParticipantAggregate) GroupResult {
	res := GroupResult{
		Win:         make(map[string]bool, len(members)),
		WinHandicap: make(map[string]bool, len(members)),
	}

	rawWinner := compare(teamSums(members, rawScore))
	handicapWinner := compare(teamSums(members, handicapScore))

	for _, m := range members {
		if m.TeamType != models.TeamTypeA && m.TeamType != models.TeamTypeB {
			continue
		}
		id := m.ParticipantID.String()
		res.Win[id] = winnerOf(m.TeamType) == rawWinner
		res.WinHandicap[id] = winnerOf(m.TeamType) == handicapWinner
	}
	return res
}

// EvaluateEvent derives the four event-level outcomes: which team won more
// groups, and which team has the lower whole-event total, each for raw and
// handicap scores. Recomputed from scratch on every score change that
// affects a team member; cost is bounded by the event's participant count.
func EvaluateEvent(eventID uuid.UUID, all []models.ParticipantAggregate) models.EventAggregate {
	agg := models.EventAggregate{EventID: eventID}

	totalA, totalB, any := teamSums(all, rawScore)
	if !any {
		// No team member in the whole event; every outcome stays unset.
		return agg
	}

	byGroup := make(map[int][]models.ParticipantAggregate)
	for _, a := range all {
		byGroup[a.GroupType] = append(byGroup[a.GroupType], a)
	}

	var rawWinsA, rawWinsB, hcWinsA, hcWinsB int
	for _, members := range byGroup {
		switch compare(teamSums(members, rawScore)) {
		case models.WinningTeamA:
			rawWinsA++
		case models.WinningTeamB:
			rawWinsB++
		}
		switch compare(teamSums(members, handicapScore)) {
		case models.WinningTeamA:
			hcWinsA++
		case models.WinningTeamB:
			hcWinsB++
		}
	}

	agg.GroupWinTeam = compareCounts(rawWinsA, rawWinsB)
	agg.GroupWinTeamHandicap = compareCounts(hcWinsA, hcWinsB)

	agg.TotalWinTeam = compare(totalA, totalB, true)
	hcA, hcB, _ := teamSums(all, handicapScore)
	agg.TotalWinTeamHandicap = compare(hcA, hcB, true)
	return agg
}

func rawScore(a models.ParticipantAggregate) int      { return a.SumScore }
func handicapScore(a models.ParticipantAggregate) int { return a.HandicapScore }

// teamSums sums the chosen score over each team's members. The third return
// reports whether any team member was present at all.
func teamSums(members []models.ParticipantAggregate, score func(models.ParticipantAggregate) int) (int, int, bool) {
	var sumA, sumB int
	any := false
	for _, m := range members {
		switch m.TeamType {
		case models.TeamTypeA:
			sumA += score(m)
			any = true
		case models.TeamTypeB:
			sumB += score(m)
			any = true
		}
	}
	return sumA, sumB, any
}

// compare returns the winning team for a pair of sums: lower wins, equal is
// a draw. When no team member has scored the result is the empty value.
func compare(sumA, sumB int, any bool) models.WinningTeam {
	if !any {
		return ""
	}
	switch {
	case sumA < sumB:
		return models.WinningTeamA
	case sumB < sumA:
		return models.WinningTeamB
	default:
		return models.WinningTeamDraw
	}
}

// compareCounts decides the group-win outcome: more groups won wins.
func compareCounts(winsA, winsB int) models.WinningTeam {
	switch {
	case winsA > winsB:
		return models.WinningTeamA
	case winsB > winsA:
		return models.WinningTeamB
	default:
		return models.WinningTeamDraw
	}
}

func winnerOf(t models.TeamType) models.WinningTeam {
	if t == models.TeamTypeA {
		return models.WinningTeamA
	}
	return models.WinningTeamB
}
