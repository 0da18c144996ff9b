package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerdesk/internal/ai"
	"offerdesk/internal/app"
	"offerdesk/internal/chunking"
	"offerdesk/internal/pkg/pdfextract"
	"offerdesk/internal/platform/blob"
	"offerdesk/internal/ranking"
	"offerdesk/internal/repository"
	"offerdesk/internal/testutil"
	"offerdesk/internal/transport/http/handler"
	"offerdesk/internal/transport/http/response"
)

const testSecret = "router-test-secret"

type staticChat struct{}

func (staticChat) Complete(_ context.Context, _ []ai.ChatMessage) (string, error) {
	return "Theft is covered [1].", nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	blobs, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	collections := repository.NewCollectionRepository(db)
	documents := repository.NewDocumentRepository(db)
	chunks := repository.NewChunkRepository(db)
	offers := repository.NewOfferRepository(db)

	docs, err := app.NewDocumentService(app.DocumentDeps{
		DB:          db,
		Collections: collections,
		Documents:   documents,
		Chunks:      chunks,
		OfferRepo:   offers,
		Blobs:       blobs,
		Extractor:   pdfextract.New(),
	}, app.DocumentOptions{Chunking: chunking.Options{ChunkSize: 300, Overlap: 50}})
	require.NoError(t, err)

	retrieval := app.NewRetrievalService(collections, chunks, ranking.NewLexicalRanker(), 5, 50)
	qa := app.NewQAService(retrieval, staticChat{})
	comparison := app.NewComparisonService(collections, documents, offers, nil, nil, nil)
	shares := app.NewShareService(repository.NewShareReferenceRepository(db), collections, documents, nil)
	auth := app.NewAuthService(db, repository.NewUserRepository(db), repository.NewOrganizationRepository(db), testSecret, time.Hour)

	router := gin.New()
	Register(router.Group("/api/v1"), testSecret, Handlers{
		Auth:        handler.NewAuthHandler(auth),
		Collections: handler.NewCollectionHandler(docs, retrieval, qa, comparison),
		Documents:   handler.NewDocumentHandler(docs),
		Shares:      handler.NewShareHandler(shares, retrieval, qa, comparison),
	})
	return router
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, router *gin.Engine, req *nethttp.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func jsonRequest(t *testing.T, method, path string, body any) *nethttp.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func register(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	status, env := do(t, router, jsonRequest(t, nethttp.MethodPost, "/api/v1/auth/register", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}), "")
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func uploadRequest(t *testing.T, files map[string]string) *nethttp.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Kasko 2026"))
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/collections", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func upload(t *testing.T, router *gin.Engine, token string, files map[string]string) string {
	t.Helper()
	status, env := do(t, router, uploadRequest(t, files), token)
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var data app.UploadResult
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Collection.Token
}

const offerText = "Issuer: BALTA\nTheft: yes\n\nTheft of the vehicle is covered when the alarm was active."

func TestCollectionRoutes(t *testing.T) {
	router := newTestRouter(t)
	token := register(t, router, "anna")
	collection := upload(t, router, token, map[string]string{"balta.txt": offerText})

	status, env := do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/collections/"+collection+"/chunks?limit=1000", nil), token)
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var page app.ChunkPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 500, page.Limit)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "balta.txt", page.Items[0].Filename)

	status, env = do(t, router, jsonRequest(t, nethttp.MethodPost, "/api/v1/collections/"+collection+"/ask", gin.H{"question": "is theft covered"}), token)
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var answer app.AskResult
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.Equal(t, "Theft is covered [1].", answer.Answer)
	require.Len(t, answer.Citations, 1)

	status, env = do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/collections/"+collection+"/comparison", nil), token)
	assert.Equal(t, nethttp.StatusUnprocessableEntity, status)
	assert.Equal(t, response.CodeNoContent, env.Code)

	status, env = do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/collections/missing/chunks", nil), token)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, response.CodeNotFound, env.Code)

	status, _ = do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/collections/"+collection+"/chunks?limit=abc", nil), token)
	assert.Equal(t, nethttp.StatusBadRequest, status)
}

func TestCollectionsAreScopedToOrganization(t *testing.T) {
	router := newTestRouter(t)
	anna := register(t, router, "anna")
	juris := register(t, router, "juris")
	collection := upload(t, router, anna, map[string]string{"balta.txt": offerText})

	status, env := do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/collections/"+collection+"/chunks", nil), juris)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, response.CodeNotFound, env.Code)

	status, env = do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/collections/"+collection+"/chunks", nil), "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, response.CodeUnauthorized, env.Code)
}

func TestEmptyCollectionIsStillProcessing(t *testing.T) {
	router := newTestRouter(t)
	token := register(t, router, "anna")
	collection := upload(t, router, token, map[string]string{"empty.txt": ""})

	status, env := do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/collections/"+collection+"/chunks", nil), token)
	assert.Equal(t, nethttp.StatusUnprocessableEntity, status)
	assert.Equal(t, response.CodeNoContent, env.Code)
}

func TestPublicShareRoutes(t *testing.T) {
	router := newTestRouter(t)
	token := register(t, router, "anna")
	first := upload(t, router, token, map[string]string{"balta.txt": offerText, "if.txt": offerText})
	upload(t, router, token, map[string]string{"balta.txt": offerText, "if.txt": offerText})
	upload(t, router, token, map[string]string{"ergo.txt": offerText})

	// Both collections hold both files.
	status, env := do(t, router, jsonRequest(t, nethttp.MethodPost, "/api/v1/shares", gin.H{
		"documents": []gin.H{{"filename": "balta.txt"}, {"filename": "if.txt"}},
	}), token)
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var ambiguousShare struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ambiguousShare))

	status, env = do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/public/shares/"+ambiguousShare.Token+"/chunks", nil), "")
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, response.CodeConflict, env.Code)
	var conflict struct {
		Candidates []string `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &conflict))
	assert.Len(t, conflict.Candidates, 2)
	assert.Contains(t, conflict.Candidates, first)

	status, env = do(t, router, jsonRequest(t, nethttp.MethodPost, "/api/v1/shares", gin.H{
		"documents": []gin.H{{"filename": "ergo.txt"}},
	}), token)
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var share struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &share))

	status, env = do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/public/shares/"+share.Token+"/chunks", nil), "")
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	var page app.ChunkPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.NotEmpty(t, page.Items)
	assert.Equal(t, "ergo.txt", page.Items[0].Filename)

	status, env = do(t, router, httptest.NewRequest(nethttp.MethodGet, "/api/v1/public/shares/unknown/chunks", nil), "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, response.CodeNotFound, env.Code)
}
