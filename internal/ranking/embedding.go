package ranking

import (
	"context"
	"fmt"
	"math"

	"offerdesk/internal/model"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingRanker scores passages by cosine similarity between the query
// embedding and each passage embedding. Passages stored without a vector are
// embedded on the fly.
type EmbeddingRanker struct {
	embedder  Embedder
	batchSize int
}

func NewEmbeddingRanker(embedder Embedder, batchSize int) *EmbeddingRanker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &EmbeddingRanker{embedder: embedder, batchSize: batchSize}
}

func (r *EmbeddingRanker) Rank(ctx context.Context, query string, passages []model.Passage, topK int) ([]model.Passage, error) {
	out := make([]model.Passage, len(passages))
	copy(out, passages)
	if len(out) == 0 {
		return out, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	vectors := make([][]float32, len(out))
	var missing []int
	for i := range out {
		vectors[i] = out[i].EmbeddingVector()
		if len(vectors[i]) == 0 {
			missing = append(missing, i)
		}
	}
	for start := 0; start < len(missing); start += r.batchSize {
		end := min(start+r.batchSize, len(missing))
		texts := make([]string, 0, end-start)
		for _, idx := range missing[start:end] {
			texts = append(texts, out[idx].Content)
		}
		batch, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed passages failed: %w", err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d want %d", len(batch), len(texts))
		}
		for j, idx := range missing[start:end] {
			vectors[idx] = batch[j]
		}
	}

	for i := range out {
		out[i].Score = CosineSimilarity(queryVec, vectors[i])
	}
	return sortAndCut(out, topK), nil
}

func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
