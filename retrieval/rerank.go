package retrieval

import (
	"math"

	"github.com/sweetpotato0/health-agent/vector"
)

// mmrSelect picks up to k entries by Max Marginal Relevance: each round takes
// the entry with the best balance of query similarity and distance from the
// already-picked set. lambda 1.0 is pure relevance, 0.0 pure diversity.
func mmrSelect(queryVec []float32, entries []*vector.Entry, lambda float32, k int) []*vector.Entry {
	if len(entries) == 0 || k <= 0 {
		return nil
	}

	type item struct {
		entry *vector.Entry
		score float32
	}
	remaining := make([]item, len(entries))
	for i, e := range entries {
		remaining[i] = item{entry: e, score: vector.CosineSimilarity(queryVec, e.Vector)}
	}

	selected := make([]*vector.Entry, 0, k)
	for len(remaining) > 0 && len(selected) < k {
		bestIdx := -1
		bestScore := float32(math.Inf(-1))
		for idx, cand := range remaining {
			var diversityPenalty float32
			for _, picked := range selected {
				if len(cand.entry.Vector) == 0 || len(picked.Vector) != len(cand.entry.Vector) {
					continue
				}
				if sim := vector.CosineSimilarity(cand.entry.Vector, picked.Vector); sim > diversityPenalty {
					diversityPenalty = sim
				}
			}
			score := lambda*cand.score - (1-lambda)*diversityPenalty
			if score > bestScore {
				bestScore = score
				bestIdx = idx
			}
		}
		if bestIdx == -1 {
			break
		}
		selected = append(selected, remaining[bestIdx].entry)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}
