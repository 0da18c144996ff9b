package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"offerdesk/internal/model"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *ChunkRepository) WithTx(tx *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&chunks, 200).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocumentID(ctx context.Context, documentID uint) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListByDocumentID(ctx context.Context, documentID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("chunk_index ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by document failed: %w", err)
	}
	return chunks, nil
}

// passagesQuery joins chunks to ready documents of one collection inside one
// organization. The org filter is applied on both documents and collections.
func (r *ChunkRepository) passagesQuery(ctx context.Context, collectionToken string, orgID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("chunks").
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Joins("JOIN collections ON collections.id = documents.collection_id").
		Where("collections.token = ? AND collections.org_id = ? AND documents.org_id = ?", collectionToken, orgID, orgID).
		Where("documents.ready = ?", true)
}

// ListPassages returns every chunk of the collection with its provenance,
// ordered by document and position.
func (r *ChunkRepository) ListPassages(ctx context.Context, collectionToken string, orgID uint) ([]model.Passage, error) {
	var passages []model.Passage
	err := r.passagesQuery(ctx, collectionToken, orgID).
		Select("chunks.id AS chunk_id, chunks.document_id, documents.filename, chunks.chunk_index, chunks.content, chunks.embedding").
		Order("chunks.document_id ASC, chunks.chunk_index ASC").
		Scan(&passages).Error
	if err != nil {
		return nil, fmt.Errorf("list passages failed: %w", err)
	}
	return passages, nil
}

// PagePassages returns one page of the collection's chunks and the total count.
func (r *ChunkRepository) PagePassages(ctx context.Context, collectionToken string, orgID uint, limit, offset int) ([]model.Passage, int64, error) {
	limit, offset = ClampPage(limit, offset)

	var total int64
	if err := r.passagesQuery(ctx, collectionToken, orgID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count passages failed: %w", err)
	}

	var passages []model.Passage
	err := r.passagesQuery(ctx, collectionToken, orgID).
		Select("chunks.id AS chunk_id, chunks.document_id, documents.filename, chunks.chunk_index, chunks.content").
		Order("chunks.document_id ASC, chunks.chunk_index ASC").
		Limit(limit).
		Offset(offset).
		Scan(&passages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("page passages failed: %w", err)
	}
	return passages, total, nil
}

// ClampPage applies the default and maximum page size.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
