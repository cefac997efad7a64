package result

import (
	"sort"

	"github.com/volatiletech/null/v8"
)

// RankingPolicy is the tie-assignment rule applied to a ranked cohort.
// It is selected once at the system boundary; call sites must not diverge.
type RankingPolicy int

const (
	// PolicyCompetition gives tied rows the same rank and skips the next
	// rank ahead by the tie count (1,1,3). The canonical default.
	PolicyCompetition RankingPolicy = iota
	// PolicyDense gives tied rows the same rank and the next distinct row
	// the following rank (1,1,2).
	PolicyDense
)

// tied reports whether two results compare equal on the ranking key.
// GPA participates in the tie test together with total marks.
func tied(a, b Result) bool {
	return a.GPA == b.GPA && a.TotalMarks == b.TotalMarks
}

// AssignRanks orders results by GPA desc, total marks desc, student ID asc
// (the last key keeps the order deterministic for true ties) and assigns a
// rank to every row per the policy. Pure: operates on a copy and returns it;
// idempotent for unchanged input.
func AssignRanks(results []Result, policy RankingPolicy) []Result {
	ranked := make([]Result, len(results))
	copy(ranked, results)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].GPA != ranked[j].GPA {
			return ranked[i].GPA > ranked[j].GPA
		}
		if ranked[i].TotalMarks != ranked[j].TotalMarks {
			return ranked[i].TotalMarks > ranked[j].TotalMarks
		}
		return ranked[i].StudentID < ranked[j].StudentID
	})

	rank := 0
	for i := range ranked {
		if i == 0 || !tied(ranked[i], ranked[i-1]) {
			if policy == PolicyDense {
				rank++
			} else {
				rank = i + 1
			}
		}
		ranked[i].Rank = null.IntFrom(rank)
	}
	return ranked
}
