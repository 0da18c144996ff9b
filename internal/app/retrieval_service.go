package app

import (
	"context"
	"fmt"
	"strings"

	"offerdesk/internal/model"
	"offerdesk/internal/ranking"
	"offerdesk/internal/repository"
)

type RetrievalService struct {
	collections *repository.CollectionRepository
	chunks      *repository.ChunkRepository
	ranker      ranking.Ranker
	defaultTopK int
	maxTopK     int
}

func NewRetrievalService(
	collections *repository.CollectionRepository,
	chunks *repository.ChunkRepository,
	ranker ranking.Ranker,
	defaultTopK, maxTopK int,
) *RetrievalService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	if maxTopK < defaultTopK {
		maxTopK = defaultTopK
	}
	return &RetrievalService{
		collections: collections,
		chunks:      chunks,
		ranker:      ranker,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
	}
}

// AnswerContext gathers the ready chunks of the collection, scoped to the
// organization, and returns the topK most relevant to question with their
// provenance. A collection that exists but has no ready chunks yields
// ErrNoContent rather than ErrNotFound.
func (s *RetrievalService) AnswerContext(ctx context.Context, collectionToken string, orgID uint, question string, topK int) ([]model.Passage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}
	collection, err := findCollection(ctx, s.collections, collectionToken, orgID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.chunks.ListPassages(ctx, collection.Token, orgID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: collection has no processed documents", ErrNoContent)
	}

	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}
	ranked, err := s.ranker.Rank(ctx, question, candidates, topK)
	if err != nil {
		return nil, fmt.Errorf("rank passages failed: %w", err)
	}
	for i := range ranked {
		ranked[i].Embedding = ""
	}
	return ranked, nil
}

type Page struct {
	Limit  int
	Offset int
}

type ChunkPage struct {
	Items  []model.Passage `json:"items"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListChunks pages through the collection's ready chunks in document and
// position order. Limit defaults to 100 and is capped at 500.
func (s *RetrievalService) ListChunks(ctx context.Context, collectionToken string, orgID uint, page Page) (*ChunkPage, error) {
	collection, err := findCollection(ctx, s.collections, collectionToken, orgID)
	if err != nil {
		return nil, err
	}

	limit, offset := repository.ClampPage(page.Limit, page.Offset)
	items, total, err := s.chunks.PagePassages(ctx, collection.Token, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: collection has no processed documents", ErrNoContent)
	}
	if items == nil {
		items = []model.Passage{}
	}
	return &ChunkPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}
