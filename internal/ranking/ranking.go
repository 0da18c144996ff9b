// Package ranking orders candidate passages by relevance to a question.
package ranking

import (
	"context"
	"sort"

	"offerdesk/internal/model"
)

// Ranker scores passages against query and returns at most topK of them,
// best first. Implementations must not drop provenance fields.
type Ranker interface {
	Rank(ctx context.Context, query string, passages []model.Passage, topK int) ([]model.Passage, error)
}

// sortAndCut orders by score, breaking ties by document and position so the
// result is deterministic.
func sortAndCut(passages []model.Passage, topK int) []model.Passage {
	sort.SliceStable(passages, func(i, j int) bool {
		a, b := passages[i], passages[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.ChunkIndex < b.ChunkIndex
	})
	if topK > 0 && topK < len(passages) {
		passages = passages[:topK]
	}
	return passages
}
