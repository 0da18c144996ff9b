package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"offerdesk/internal/model"
)

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) WithTx(tx *gorm.DB) *OfferRepository {
	return &OfferRepository{db: tx}
}

// Upsert inserts the offer or replaces the one already extracted from the
// same document.
func (r *OfferRepository) Upsert(ctx context.Context, o *model.Offer) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"issuer", "fields", "unparsed", "premium_total", "insured_amount",
			"currency", "period_from", "period_to", "source_text", "updated_at",
		}),
	}).Create(o).Error
	if err != nil {
		return fmt.Errorf("upsert offer failed: %w", err)
	}
	return nil
}

func (r *OfferRepository) GetByDocumentID(ctx context.Context, documentID uint) (*model.Offer, error) {
	var o model.Offer
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get offer failed: %w", err)
	}
	return &o, nil
}

// ListByCollectionID returns the collection's offers in document order.
func (r *OfferRepository) ListByCollectionID(ctx context.Context, collectionID, orgID uint) ([]model.Offer, error) {
	var list []model.Offer
	err := r.db.WithContext(ctx).
		Where("collection_id = ? AND org_id = ?", collectionID, orgID).
		Order("document_id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list offers failed: %w", err)
	}
	return list, nil
}

func (r *OfferRepository) DeleteByDocumentID(ctx context.Context, documentID uint) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.Offer{}).Error; err != nil {
		return fmt.Errorf("delete offer failed: %w", err)
	}
	return nil
}
