package app

import (
	"context"
	"fmt"

	"offerdesk/internal/comparison"
	"offerdesk/internal/offer"
	"offerdesk/internal/platform/logger"
	"offerdesk/internal/repository"
)

type ComparisonService struct {
	collections *repository.CollectionRepository
	documents   *repository.DocumentRepository
	offers      *repository.OfferRepository
	cache       ComparisonCache
	catalog     offer.Catalog
	log         *logger.Logger
}

func NewComparisonService(
	collections *repository.CollectionRepository,
	documents *repository.DocumentRepository,
	offers *repository.OfferRepository,
	cache ComparisonCache,
	catalog offer.Catalog,
	log *logger.Logger,
) *ComparisonService {
	if catalog == nil {
		catalog = offer.DefaultCatalog()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ComparisonService{
		collections: collections,
		documents:   documents,
		offers:      offers,
		cache:       cache,
		catalog:     catalog,
		log:         log.With("service", "ComparisonService"),
	}
}

// Compare builds the comparison matrix of the collection's extracted offers,
// one column per document. Matrices are served from the cache when present.
func (s *ComparisonService) Compare(ctx context.Context, collectionToken string, orgID uint) (*comparison.Matrix, error) {
	collection, err := findCollection(ctx, s.collections, collectionToken, orgID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		m, ok, err := s.cache.Get(ctx, collection.ID)
		if err != nil {
			s.log.Warn("read comparison cache failed", "collection_id", collection.ID, "error", err)
		} else if ok {
			return m, nil
		}
	}

	offers, err := s.offers.ListByCollectionID(ctx, collection.ID, orgID)
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 {
		return nil, fmt.Errorf("%w: no offers extracted yet", ErrNoContent)
	}

	docs, err := s.documents.ListByCollectionID(ctx, collection.ID)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Filename
	}

	records := make([]offer.Record, 0, len(offers))
	for _, o := range offers {
		sourceID := names[o.DocumentID]
		if sourceID == "" {
			sourceID = fmt.Sprintf("document-%d", o.DocumentID)
		}
		rec, err := offerToRecord(o, sourceID)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	m, err := comparison.Build(records, s.catalog)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, collection.ID, m); err != nil {
			s.log.Warn("write comparison cache failed", "collection_id", collection.ID, "error", err)
		}
	}
	return m, nil
}
