package scoring

import (
	"sort"

	"github.com/noah-isme/simulacro-api/internal/models"
)

// RankStudents orders entries and assigns 1-based positions. Entries without
// attempts go last; the rest sort by global score descending. Equal keys keep
// their input order.
func RankStudents(entries []models.RankingEntry) []models.RankingEntry {
	ranked := make([]models.RankingEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		iAttempted := ranked[i].TotalAttemptCount > 0
		jAttempted := ranked[j].TotalAttemptCount > 0
		if iAttempted != jAttempted {
			return iAttempted
		}
		return ranked[i].GlobalScore > ranked[j].GlobalScore
	})
	for i := range ranked {
		ranked[i].Position = i + 1
	}
	return ranked
}

// RankGroups orders institutions or campuses by average descending, stable on ties.
func RankGroups(groups []models.GroupRanking) []models.GroupRanking {
	ranked := make([]models.GroupRanking, len(groups))
	copy(ranked, groups)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Average > ranked[j].Average
	})
	for i := range ranked {
		ranked[i].Position = i + 1
	}
	return ranked
}

// Mean is the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
