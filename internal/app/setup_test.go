package app

import (
	"bufio"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"offerdesk/internal/ai"
	"offerdesk/internal/chunking"
	"offerdesk/internal/comparison"
	"offerdesk/internal/model"
	"offerdesk/internal/offer"
	"offerdesk/internal/pkg/pdfextract"
	"offerdesk/internal/platform/blob"
	"offerdesk/internal/ranking"
	"offerdesk/internal/repository"
	"offerdesk/internal/testutil"
)

// lineOfferExtractor reads "key: value" lines. issuer, premium and currency
// go to the pricing block, everything else into the field map.
type lineOfferExtractor struct{}

func (lineOfferExtractor) ExtractOffer(_ context.Context, text string, _ offer.Catalog) (*offer.RawOffer, error) {
	raw := &offer.RawOffer{Fields: map[string]any{}}
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.ToLower(key))
		value = strings.TrimSpace(value)
		switch key {
		case "issuer":
			raw.Issuer = value
		case "premium":
			raw.PremiumTotal = value
		case "currency":
			raw.Currency = value
		default:
			raw.Fields[key] = value
		}
	}
	return raw, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []model.DocumentJob
}

func (p *recordingPublisher) Publish(_ context.Context, job model.DocumentJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

type memoryCache struct {
	mu          sync.Mutex
	matrices    map[uint]*comparison.Matrix
	sets        int
	invalidated []uint
}

func newMemoryCache() *memoryCache {
	return &memoryCache{matrices: map[uint]*comparison.Matrix{}}
}

func (c *memoryCache) Get(_ context.Context, id uint) (*comparison.Matrix, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.matrices[id]
	return m, ok, nil
}

func (c *memoryCache) Set(_ context.Context, id uint, m *comparison.Matrix) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matrices[id] = m
	c.sets++
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.matrices, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type fakeChat struct {
	answer   string
	messages []ai.ChatMessage
}

func (f *fakeChat) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	f.messages = messages
	return f.answer, nil
}

type testEnv struct {
	db         *gorm.DB
	blobs      *blob.Local
	cache      *memoryCache
	documents  *DocumentService
	shares     *ShareService
	retrieval  *RetrievalService
	comparison *ComparisonService
	chunkRepo  *repository.ChunkRepository
	offerRepo  *repository.OfferRepository
	shareRepo  *repository.ShareReferenceRepository
}

type envOption func(*DocumentDeps)

func withJobs(p JobPublisher) envOption {
	return func(d *DocumentDeps) { d.Jobs = p }
}

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	blobs, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	collections := repository.NewCollectionRepository(db)
	documents := repository.NewDocumentRepository(db)
	chunks := repository.NewChunkRepository(db)
	offers := repository.NewOfferRepository(db)
	shares := repository.NewShareReferenceRepository(db)
	cache := newMemoryCache()

	deps := DocumentDeps{
		DB:          db,
		Collections: collections,
		Documents:   documents,
		Chunks:      chunks,
		OfferRepo:   offers,
		Blobs:       blobs,
		Extractor:   pdfextract.New(),
		Offers:      lineOfferExtractor{},
		Cache:       cache,
	}
	for _, o := range opts {
		o(&deps)
	}
	docService, err := NewDocumentService(deps, DocumentOptions{
		Chunking: chunking.Options{ChunkSize: 200, Overlap: 40},
	})
	require.NoError(t, err)

	return &testEnv{
		db:         db,
		blobs:      blobs,
		cache:      cache,
		documents:  docService,
		shares:     NewShareService(shares, collections, documents, nil),
		retrieval:  NewRetrievalService(collections, chunks, ranking.NewLexicalRanker(), 5, 50),
		comparison: NewComparisonService(collections, documents, offers, cache, nil, nil),
		chunkRepo:  chunks,
		offerRepo:  offers,
		shareRepo:  shares,
	}
}

// textFile is an upload of plain text under name.
func textFile(name, content string) UploadFile {
	return UploadFile{
		Name:        name,
		ContentType: "text/plain; charset=utf-8",
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	}
}

func (e *testEnv) upload(t *testing.T, orgID uint, files ...UploadFile) *UploadResult {
	t.Helper()
	res, err := e.documents.Upload(context.Background(), UploadInput{OrgID: orgID, UserID: 1, Name: "test", Files: files})
	require.NoError(t, err)
	return res
}

func (e *testEnv) chunkTexts(t *testing.T, documentID uint) []string {
	t.Helper()
	chunks, err := e.chunkRepo.ListByDocumentID(context.Background(), documentID)
	require.NoError(t, err)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

const baltaOffer = `Issuer: BALTA
Premium: 850,00 EUR
Theft: yes
Glass: no
Deductible: 150 EUR
Territory: Eiropa

The insurer covers damage to the vehicle caused by collision, fire and natural disasters.
Theft of the vehicle is covered when the vehicle was locked and the alarm was active.
Glass breakage is excluded from this offer and can be added for an extra premium.
Roadside assistance is available across the Baltic States around the clock.`

const ifOffer = `Issuer: IF
Premium: 910 EUR
Theft: no
Glass: yes

Glass breakage cover without deductible. Replacement vehicle for up to seven days.
Territory of cover is the whole of Europe including Green Card countries.`
