package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"offerdesk/internal/model"
)

type CollectionRepository struct {
	db *gorm.DB
}

func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func (r *CollectionRepository) WithTx(tx *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: tx}
}

func (r *CollectionRepository) Create(ctx context.Context, collection *model.Collection) error {
	if err := r.db.WithContext(ctx).Create(collection).Error; err != nil {
		return fmt.Errorf("create collection failed: %w", err)
	}
	return nil
}

func (r *CollectionRepository) GetByTokenAndOrgID(ctx context.Context, token string, orgID uint) (*model.Collection, error) {
	var collection model.Collection
	if err := r.db.WithContext(ctx).Where("token = ? AND org_id = ?", token, orgID).First(&collection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get collection failed: %w", err)
	}
	return &collection, nil
}

func (r *CollectionRepository) GetByID(ctx context.Context, id uint) (*model.Collection, error) {
	var collection model.Collection
	if err := r.db.WithContext(ctx).First(&collection, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get collection failed: %w", err)
	}
	return &collection, nil
}

func (r *CollectionRepository) ListByOrgID(ctx context.Context, orgID uint) ([]model.Collection, error) {
	var list []model.Collection
	if err := r.db.WithContext(ctx).Where("org_id = ?", orgID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list collections failed: %w", err)
	}
	return list, nil
}
