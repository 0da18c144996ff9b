package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"offerdesk/internal/chunking"
	"offerdesk/internal/model"
	"offerdesk/internal/offer"
	"offerdesk/internal/pkg/filename"
	"offerdesk/internal/pkg/pdfextract"
	"offerdesk/internal/platform/blob"
	"offerdesk/internal/platform/logger"
	"offerdesk/internal/repository"
)

const embeddingBatchSize = 10 // DashScope and similar APIs often limit batch size

type DocumentOptions struct {
	Chunking       chunking.Options
	ReembedTimeout time.Duration
	MaxFiles       int
	MaxFileBytes   int64
}

// DocumentDeps are the collaborators of DocumentService. Embedder, Offers,
// Jobs and Cache are optional.
type DocumentDeps struct {
	DB          *gorm.DB
	Collections *repository.CollectionRepository
	Documents   *repository.DocumentRepository
	Chunks      *repository.ChunkRepository
	OfferRepo   *repository.OfferRepository
	Blobs       blob.Store
	Extractor   TextExtractor
	Embedder    ChunkEmbedder
	Offers      OfferExtractor
	Jobs        JobPublisher
	Cache       ComparisonCache
	Catalog     offer.Catalog
	Log         *logger.Logger
}

type DocumentService struct {
	DocumentDeps
	opts DocumentOptions
	log  *logger.Logger
}

func NewDocumentService(deps DocumentDeps, opts DocumentOptions) (*DocumentService, error) {
	if err := opts.Chunking.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if deps.Catalog == nil {
		deps.Catalog = offer.DefaultCatalog()
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentService{
		DocumentDeps: deps,
		opts:         opts,
		log:          log.With("service", "DocumentService"),
	}, nil
}

type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

type UploadInput struct {
	OrgID  uint
	UserID uint
	Name   string
	Files  []UploadFile
}

type UploadResult struct {
	Collection model.Collection `json:"collection"`
	Documents  []model.Document `json:"documents"`
}

// Upload stores the files as one new collection and schedules chunking and
// offer extraction for each document.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.OrgID == 0 || len(input.Files) == 0 {
		return nil, ErrInvalidInput
	}
	if s.opts.MaxFiles > 0 && len(input.Files) > s.opts.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload", ErrInvalidInput, s.opts.MaxFiles)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Offers " + time.Now().Format("2006-01-02 15:04")
	}

	collection := model.Collection{
		Token:     uuid.NewString(),
		OrgID:     input.OrgID,
		Name:      name,
		CreatedBy: input.UserID,
	}

	taken := make(map[string]bool, len(input.Files))
	docs := make([]model.Document, 0, len(input.Files))
	var stored []string
	cleanup := func() {
		for _, key := range stored {
			if err := s.Blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
				s.log.Warn("remove orphan blob failed", "key", key, "error", err)
			}
		}
	}

	for _, f := range input.Files {
		if s.opts.MaxFileBytes > 0 && f.Size > s.opts.MaxFileBytes {
			cleanup()
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidInput, f.Name, s.opts.MaxFileBytes)
		}
		safe := filename.Unique(f.Name, taken)
		key := collection.Token + "/" + safe
		if err := s.Blobs.Put(ctx, key, f.Content, f.ContentType); err != nil {
			cleanup()
			return nil, fmt.Errorf("store %s failed: %w", safe, err)
		}
		stored = append(stored, key)
		docs = append(docs, model.Document{
			OrgID:        input.OrgID,
			Filename:     safe,
			OriginalName: f.Name,
			StorageKey:   key,
			ContentType:  f.ContentType,
			SizeBytes:    f.Size,
		})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Collections.WithTx(tx).Create(ctx, &collection); err != nil {
			return err
		}
		documents := s.Documents.WithTx(tx)
		for i := range docs {
			docs[i].CollectionID = collection.ID
			if err := documents.Create(ctx, &docs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	s.log.Info("collection uploaded", "collection_id", collection.ID, "documents", len(docs))
	for _, d := range docs {
		s.schedule(ctx, model.JobReembed, d.ID)
		if s.Offers != nil {
			s.schedule(ctx, model.JobExtractOffer, d.ID)
		}
	}

	// inline jobs may have updated readiness
	fresh, err := s.Documents.ListByCollectionID(ctx, collection.ID)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Collection: collection, Documents: fresh}, nil
}

// schedule publishes a job, or runs it in the request when no queue is
// configured or publishing fails. Job errors leave the document not ready and
// are only logged.
func (s *DocumentService) schedule(ctx context.Context, kind string, documentID uint) {
	job := model.DocumentJob{Kind: kind, DocumentID: documentID, EnqueuedAt: time.Now()}
	if s.Jobs != nil {
		err := s.Jobs.Publish(ctx, job)
		if err == nil {
			return
		}
		s.log.Warn("publish job failed, running inline", "kind", kind, "document_id", documentID, "error", err)
	}
	if err := s.HandleJob(ctx, job); err != nil {
		s.log.Error("inline job failed", "kind", kind, "document_id", documentID, "error", err)
	}
}

// HandleJob runs one queued document job.
func (s *DocumentService) HandleJob(ctx context.Context, job model.DocumentJob) error {
	switch job.Kind {
	case model.JobReembed:
		_, err := s.Reembed(ctx, job.DocumentID)
		return err
	case model.JobExtractOffer:
		_, err := s.ExtractOffer(ctx, job.DocumentID)
		return err
	default:
		return fmt.Errorf("%w: unknown job kind %q", ErrInvalidInput, job.Kind)
	}
}

type ReembedResult struct {
	DocumentID uint `json:"document_id"`
	ChunkCount int  `json:"chunk_count"`
}

// Reembed replaces the chunk set of a document with chunks computed from its
// stored file. The old set is deleted and the new one inserted in one
// transaction holding the document row lock; on any error, including the
// deadline passing before commit, the previous chunks stay in place.
func (s *DocumentService) Reembed(ctx context.Context, documentID uint) (*ReembedResult, error) {
	if documentID == 0 {
		return nil, ErrInvalidInput
	}
	if s.opts.ReembedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ReembedTimeout)
		defer cancel()
	}

	doc, err := s.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, documentID)
	}

	text, err := s.readText(ctx, doc)
	if err != nil {
		return nil, err
	}

	segments, err := chunking.Split(text, s.opts.Chunking)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	chunks := make([]model.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = model.Chunk{
			DocumentID:  doc.ID,
			ChunkIndex:  seg.Index,
			Content:     seg.Text,
			StartOffset: seg.Start,
			EndOffset:   seg.End,
			Length:      seg.Length,
		}
	}
	if err := s.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.Documents.WithTx(tx).LockByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("%w: document %d", ErrNotFound, doc.ID)
		}
		chunkRepo := s.Chunks.WithTx(tx)
		if err := chunkRepo.DeleteByDocumentID(ctx, doc.ID); err != nil {
			return err
		}
		if err := chunkRepo.CreateBatch(ctx, chunks); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reembed document %d aborted before commit: %w", doc.ID, err)
		}
		return s.Documents.WithTx(tx).MarkReady(ctx, doc.ID, len(chunks))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("document chunked", "document_id", doc.ID, "chunks", len(chunks), "runes", len([]rune(text)))
	return &ReembedResult{DocumentID: doc.ID, ChunkCount: len(chunks)}, nil
}

// ReembedForOrg re-embeds a document after checking it belongs to orgID.
func (s *DocumentService) ReembedForOrg(ctx context.Context, orgID, documentID uint) (*ReembedResult, error) {
	if _, err := s.GetDocument(ctx, orgID, documentID); err != nil {
		return nil, err
	}
	return s.Reembed(ctx, documentID)
}

func (s *DocumentService) embedChunks(ctx context.Context, chunks []model.Chunk) error {
	if s.Embedder == nil || len(chunks) == 0 {
		return nil
	}
	for start := 0; start < len(chunks); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		vectors, err := s.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks failed: %w", err)
		}
		if len(vectors) != len(texts) {
			return errors.New("embedding count mismatch")
		}
		for i, v := range vectors {
			chunks[start+i].SetEmbedding(v)
		}
	}
	return nil
}

// readText loads the stored file and extracts its text. A missing or
// unreadable file is reported as ErrNotFound.
func (s *DocumentService) readText(ctx context.Context, doc *model.Document) (string, error) {
	rc, err := s.Blobs.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return "", fmt.Errorf("%w: file of document %d: %w", ErrNotFound, doc.ID, err)
		}
		return "", err
	}
	defer rc.Close()

	text, err := s.Extractor.Extract(ctx, rc, doc.ContentType, doc.Filename)
	if err != nil {
		if errors.Is(err, pdfextract.ErrUnsupported) {
			return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return "", fmt.Errorf("%w: extract document %d: %w", ErrNotFound, doc.ID, err)
	}
	return text, nil
}

// ExtractOffer reads the document, asks the offer extractor for its fields
// and stores the normalized offer, replacing an earlier extraction. The offer
// is written under the document row lock and only if the document still
// exists.
func (s *DocumentService) ExtractOffer(ctx context.Context, documentID uint) (*model.Offer, error) {
	if s.Offers == nil {
		return nil, fmt.Errorf("%w: offer extraction is not configured", ErrInvalidInput)
	}
	doc, err := s.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, documentID)
	}

	text, err := s.readText(ctx, doc)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document %d has no text", ErrNoContent, documentID)
	}

	raw, err := s.Offers.ExtractOffer(ctx, text, s.Catalog)
	if err != nil {
		return nil, fmt.Errorf("extract offer from document %d failed: %w", documentID, err)
	}
	rec := offer.NormalizeRecord(*raw, s.Catalog)
	rec.SourceText = text

	row, err := recordToOffer(rec, doc)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.Documents.WithTx(tx).LockByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("%w: document %d was deleted during extraction", ErrNotFound, doc.ID)
		}
		return s.OfferRepo.WithTx(tx).Upsert(ctx, row)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, doc.CollectionID)

	s.log.Info("offer extracted", "document_id", doc.ID, "issuer", rec.Issuer, "fields", len(rec.Fields), "unparsed", len(rec.Unparsed))
	return row, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, orgID, documentID uint) (*model.Document, error) {
	if orgID == 0 || documentID == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.Documents.GetByIDAndOrgID(ctx, documentID, orgID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, documentID)
	}
	return doc, nil
}

// ListDocuments returns the documents of a collection of the organization.
func (s *DocumentService) ListDocuments(ctx context.Context, collectionToken string, orgID uint) ([]model.Document, error) {
	collection, err := findCollection(ctx, s.Collections, collectionToken, orgID)
	if err != nil {
		return nil, err
	}
	return s.Documents.ListByCollectionID(ctx, collection.ID)
}

// Delete removes a document with its chunks and offer, then its file.
func (s *DocumentService) Delete(ctx context.Context, orgID, documentID uint) error {
	doc, err := s.GetDocument(ctx, orgID, documentID)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Documents.WithTx(tx).LockByID(ctx, doc.ID); err != nil {
			return err
		}
		if err := s.Chunks.WithTx(tx).DeleteByDocumentID(ctx, doc.ID); err != nil {
			return err
		}
		if err := s.OfferRepo.WithTx(tx).DeleteByDocumentID(ctx, doc.ID); err != nil {
			return err
		}
		return s.Documents.WithTx(tx).DeleteByID(ctx, doc.ID)
	})
	if err != nil {
		return err
	}

	if err := s.Blobs.Delete(ctx, doc.StorageKey); err != nil {
		s.log.Warn("delete document file failed", "document_id", doc.ID, "error", err)
	}
	s.invalidate(ctx, doc.CollectionID)
	return nil
}

func (s *DocumentService) invalidate(ctx context.Context, collectionID uint) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, collectionID); err != nil {
		s.log.Warn("invalidate comparison cache failed", "collection_id", collectionID, "error", err)
	}
}

func findCollection(ctx context.Context, repo *repository.CollectionRepository, token string, orgID uint) (*model.Collection, error) {
	token = strings.TrimSpace(token)
	if token == "" || orgID == 0 {
		return nil, ErrInvalidInput
	}
	collection, err := repo.GetByTokenAndOrgID(ctx, token, orgID)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, fmt.Errorf("%w: collection", ErrNotFound)
	}
	return collection, nil
}
