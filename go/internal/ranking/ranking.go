// Package ranking assigns tie-aware rank labels to participant aggregates.
// It is pure computation over a snapshot read from the score cache; it never
// mutates cache state.
package ranking

import (
	"sort"
	"strconv"

	"github.com/iNESlab/golbang-live/go/internal/models"
)

// Criterion selects which score a ranking pass orders by.
type Criterion int

const (
	// Raw ranks by sum_score.
	Raw Criterion = iota
	// Handicap ranks by handicap_score.
	Handicap
)

// ComputeRanks sorts the aggregates ascending by the chosen score (lower
// golf score is better) and assigns sports-convention rank labels: tied
// entries share a "T"-prefixed rank and the sequential rank keeps counting
// across the tie block, so [70 70 72 75] yields ["T1" "T1" "3" "4"].
//
// Participants with no recorded holes are not yet in contention and are
// excluded from the returned slice. The input is not modified.
func ComputeRanks(aggs []models.ParticipantAggregate, by Criterion) []models.ParticipantAggregate {
	ranked := make([]models.ParticipantAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.HoleCount == 0 {
			continue
		}
		ranked = append(ranked, agg)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return scoreOf(ranked[i], by) < scoreOf(ranked[j], by)
	})

	rank := 1
	tiedRank := 1
	for i := range ranked {
		if i > 0 && scoreOf(ranked[i], by) == scoreOf(ranked[i-1], by) {
			// Extends the current tie run; relabel the run's first entry if
			// it was still a plain rank.
			setLabel(&ranked[i-1], by, "T"+strconv.Itoa(tiedRank))
			setLabel(&ranked[i], by, "T"+strconv.Itoa(tiedRank))
		} else {
			tiedRank = rank
			setLabel(&ranked[i], by, strconv.Itoa(rank))
		}
		rank++
	}
	return ranked
}

func scoreOf(agg models.ParticipantAggregate, by Criterion) int {
	if by == Handicap {
		return agg.HandicapScore
	}
	return agg.SumScore
}

func setLabel(agg *models.ParticipantAggregate, by Criterion, label string) {
	if by == Handicap {
		agg.HandicapRank = label
	} else {
		agg.Rank = label
	}
}
