package app

import (
	"context"
	"io"

	"offerdesk/internal/ai"
	"offerdesk/internal/comparison"
	"offerdesk/internal/model"
	"offerdesk/internal/offer"
)

type TextExtractor interface {
	Extract(ctx context.Context, r io.Reader, contentType, filename string) (string, error)
}

type ChunkEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type OfferExtractor interface {
	ExtractOffer(ctx context.Context, text string, catalog offer.Catalog) (*offer.RawOffer, error)
}

type JobPublisher interface {
	Publish(ctx context.Context, job model.DocumentJob) error
}

type ChatCompleter interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

type ComparisonCache interface {
	Get(ctx context.Context, collectionID uint) (*comparison.Matrix, bool, error)
	Set(ctx context.Context, collectionID uint, m *comparison.Matrix) error
	Invalidate(ctx context.Context, collectionID uint) error
}
