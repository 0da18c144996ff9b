package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"offerdesk/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) WithTx(tx *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByIDAndOrgID(ctx context.Context, id, orgID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ? AND org_id = ?", id, orgID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// LockByID reads the document with a row lock held until the surrounding
// transaction ends. Use on a repository bound with WithTx.
func (r *DocumentRepository) LockByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&doc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) MarkReady(ctx context.Context, id uint, chunkCount int) error {
	err := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{"ready": true, "chunk_count": chunkCount}).Error
	if err != nil {
		return fmt.Errorf("mark document ready failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListByCollectionID(ctx context.Context, collectionID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.WithContext(ctx).Where("collection_id = ?", collectionID).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) DeleteByID(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

// CollectionMatch is the number of referenced documents found in one collection.
type CollectionMatch struct {
	Token   string
	Matches int64
}

// CountMatchesByCollection counts, per collection of the organization, the
// documents whose normalized filename is in filenames or whose id is in ids.
// Results are ordered by match count, highest first.
func (r *DocumentRepository) CountMatchesByCollection(ctx context.Context, orgID uint, filenames []string, ids []uint) ([]CollectionMatch, error) {
	if len(filenames) == 0 && len(ids) == 0 {
		return nil, nil
	}

	q := r.db.WithContext(ctx).
		Table("documents").
		Select("collections.token AS token, COUNT(documents.id) AS matches").
		Joins("JOIN collections ON collections.id = documents.collection_id").
		Where("documents.org_id = ? AND collections.org_id = ?", orgID, orgID)

	switch {
	case len(filenames) > 0 && len(ids) > 0:
		q = q.Where("(documents.filename IN ? OR documents.id IN ?)", filenames, ids)
	case len(filenames) > 0:
		q = q.Where("documents.filename IN ?", filenames)
	default:
		q = q.Where("documents.id IN ?", ids)
	}

	var matches []CollectionMatch
	if err := q.Group("collections.token").Order("matches DESC, token ASC").Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("count document matches failed: %w", err)
	}
	return matches, nil
}
