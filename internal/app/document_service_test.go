package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"offerdesk/internal/model"
	"offerdesk/internal/offer"
)

func TestUploadNormalizesAndDeduplicatesNames(t *testing.T) {
	env := newEnv(t)

	res := env.upload(t, 1,
		textFile("Piedāvājums BALTA.txt", baltaOffer),
		textFile("Piedāvājums BALTA.txt", baltaOffer),
		textFile("../if offer.txt", ifOffer),
	)

	require.Len(t, res.Documents, 3)
	assert.NotEmpty(t, res.Collection.Token)
	assert.Equal(t, "Piedavajums_BALTA.txt", res.Documents[0].Filename)
	assert.Equal(t, "Piedavajums_BALTA-2.txt", res.Documents[1].Filename)
	assert.Equal(t, "if_offer.txt", res.Documents[2].Filename)
	assert.Equal(t, "Piedāvājums BALTA.txt", res.Documents[0].OriginalName)

	for _, d := range res.Documents {
		assert.True(t, d.Ready, "%s should be chunked inline", d.Filename)
		assert.Positive(t, d.ChunkCount)
		assert.Len(t, env.chunkTexts(t, d.ID), d.ChunkCount)
	}
}

func TestUploadRejectsEmptyInput(t *testing.T) {
	env := newEnv(t)

	_, err := env.documents.Upload(context.Background(), UploadInput{OrgID: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.documents.Upload(context.Background(), UploadInput{Files: []UploadFile{textFile("a.txt", "x")}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadPublishesJobsWhenQueueConfigured(t *testing.T) {
	jobs := &recordingPublisher{}
	env := newEnv(t, withJobs(jobs))

	res := env.upload(t, 1, textFile("balta.txt", baltaOffer))

	require.Len(t, jobs.jobs, 2)
	assert.Equal(t, model.JobReembed, jobs.jobs[0].Kind)
	assert.Equal(t, model.JobExtractOffer, jobs.jobs[1].Kind)
	assert.Equal(t, res.Documents[0].ID, jobs.jobs[0].DocumentID)
	assert.False(t, res.Documents[0].Ready)

	require.NoError(t, env.documents.HandleJob(context.Background(), jobs.jobs[0]))
	doc, err := env.documents.GetDocument(context.Background(), 1, res.Documents[0].ID)
	require.NoError(t, err)
	assert.True(t, doc.Ready)
}

func TestHandleJobRejectsUnknownKind(t *testing.T) {
	env := newEnv(t)
	err := env.documents.HandleJob(context.Background(), model.DocumentJob{Kind: "bogus", DocumentID: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReembedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	doc := env.upload(t, 1, textFile("balta.txt", strings.Repeat(baltaOffer+"\n\n", 3))).Documents[0]

	first, err := env.documents.Reembed(ctx, doc.ID)
	require.NoError(t, err)
	before := env.chunkTexts(t, doc.ID)

	second, err := env.documents.Reembed(ctx, doc.ID)
	require.NoError(t, err)
	after := env.chunkTexts(t, doc.ID)

	assert.Equal(t, first.ChunkCount, second.ChunkCount)
	assert.Greater(t, len(before), 1)
	assert.Equal(t, before, after)
}

func TestReembedFailureKeepsPreviousChunks(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	doc := env.upload(t, 1, textFile("balta.txt", baltaOffer)).Documents[0]
	before := env.chunkTexts(t, doc.ID)
	require.NotEmpty(t, before)

	// New content so a partial write would be visible.
	require.NoError(t, env.blobs.Put(ctx, doc.StorageKey, strings.NewReader(ifOffer), "text/plain"))

	failInsert := errors.New("insert chunks failed")
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:fail_chunks", func(tx *gorm.DB) {
		if tx.Statement.Table == "chunks" {
			_ = tx.AddError(failInsert)
		}
	}))

	_, err := env.documents.Reembed(ctx, doc.ID)
	require.ErrorIs(t, err, failInsert)

	assert.Equal(t, before, env.chunkTexts(t, doc.ID))
	stored, err := env.documents.GetDocument(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Ready)
	assert.Equal(t, len(before), stored.ChunkCount)
}

func TestReembedMissingFileIsNotFound(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	doc := env.upload(t, 1, textFile("balta.txt", baltaOffer)).Documents[0]
	require.NoError(t, env.blobs.Delete(ctx, doc.StorageKey))

	_, err := env.documents.Reembed(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.documents.Reembed(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReembedForOrgChecksOwnership(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	doc := env.upload(t, 1, textFile("balta.txt", baltaOffer)).Documents[0]

	_, err := env.documents.ReembedForOrg(ctx, 2, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := env.documents.ReembedForOrg(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, res.DocumentID)
}

func TestEmptyDocumentIsReadyWithoutChunks(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	res := env.upload(t, 1, textFile("empty.txt", ""))

	doc := res.Documents[0]
	assert.True(t, doc.Ready)
	assert.Zero(t, doc.ChunkCount)

	_, err := env.retrieval.AnswerContext(ctx, res.Collection.Token, 1, "theft", 0)
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = env.documents.ExtractOffer(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestDeleteRemovesChunksOfferAndFile(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	res := env.upload(t, 1, textFile("balta.txt", baltaOffer), textFile("if.txt", ifOffer))
	doc := res.Documents[0]

	assert.ErrorIs(t, env.documents.Delete(ctx, 2, doc.ID), ErrNotFound)
	require.NoError(t, env.documents.Delete(ctx, 1, doc.ID))

	assert.Empty(t, env.chunkTexts(t, doc.ID))
	o, err := env.offerRepo.GetByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, o)
	_, err = env.blobs.Open(ctx, doc.StorageKey)
	assert.Error(t, err)
	assert.Contains(t, env.cache.invalidated, res.Collection.ID)

	docs, err := env.documents.ListDocuments(ctx, res.Collection.Token, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "if.txt", docs[0].Filename)
}

func TestExtractOfferStoresNormalizedOffer(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	doc := env.upload(t, 1, textFile("balta.txt", baltaOffer)).Documents[0]

	row, err := env.offerRepo.GetByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "BALTA", row.Issuer)
	require.NotNil(t, row.PremiumTotal)
	assert.InDelta(t, 850.0, *row.PremiumTotal, 0.001)
	assert.Equal(t, "EUR", row.Currency)

	rec, err := offerToRecord(*row, doc.Filename)
	require.NoError(t, err)
	assert.Equal(t, true, rec.Fields.Get("theft"))
	assert.Equal(t, false, rec.Fields.Get("glass"))
	assert.Equal(t, 150.0, rec.Fields.Get("deductible"))
	assert.Equal(t, "Europe", rec.Fields.Get("territory"))
	assert.Nil(t, rec.Fields.Get("fire"), "absent fields stay unknown")
}

type deletingOfferExtractor struct {
	lineOfferExtractor
	onExtract func()
}

func (e deletingOfferExtractor) ExtractOffer(ctx context.Context, text string, catalog offer.Catalog) (*offer.RawOffer, error) {
	e.onExtract()
	return e.lineOfferExtractor.ExtractOffer(ctx, text, catalog)
}

func TestExtractOfferSkipsDocumentDeletedMeanwhile(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	doc := env.upload(t, 1, textFile("balta.txt", baltaOffer)).Documents[0]

	env.documents.Offers = deletingOfferExtractor{onExtract: func() {
		require.NoError(t, env.documents.Delete(ctx, 1, doc.ID))
	}}

	_, err := env.documents.ExtractOffer(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	row, err := env.offerRepo.GetByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestConcurrentReembedsKeepContiguousIndexes(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	doc := env.upload(t, 1, textFile("balta.txt", strings.Repeat(baltaOffer+"\n\n", 4))).Documents[0]

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.documents.Reembed(ctx, doc.ID)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	chunks, err := env.chunkRepo.ListByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}

	stored, err := env.documents.GetDocument(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), stored.ChunkCount)
}
