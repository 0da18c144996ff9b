package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"offerdesk/internal/model"
)

type ShareReferenceRepository struct {
	db *gorm.DB
}

func NewShareReferenceRepository(db *gorm.DB) *ShareReferenceRepository {
	return &ShareReferenceRepository{db: db}
}

func (r *ShareReferenceRepository) Create(ctx context.Context, share *model.ShareReference) error {
	if err := r.db.WithContext(ctx).Create(share).Error; err != nil {
		return fmt.Errorf("create share reference failed: %w", err)
	}
	return nil
}

func (r *ShareReferenceRepository) GetByToken(ctx context.Context, token string) (*model.ShareReference, error) {
	var share model.ShareReference
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&share).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get share reference failed: %w", err)
	}
	return &share, nil
}

// CacheCollectionToken stores an inferred collection token. Only an unresolved
// reference is updated, so a token written by a concurrent resolver is kept.
// It reports whether this call wrote the token.
func (r *ShareReferenceRepository) CacheCollectionToken(ctx context.Context, id uint, collectionToken string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ShareReference{}).
		Where("id = ? AND collection_token = ?", id, "").
		Update("collection_token", collectionToken)
	if res.Error != nil {
		return false, fmt.Errorf("cache share collection token failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
