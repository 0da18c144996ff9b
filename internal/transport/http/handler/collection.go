package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"offerdesk/internal/app"
	"offerdesk/internal/transport/http/response"
)

type CollectionHandler struct {
	documents  *app.DocumentService
	retrieval  *app.RetrievalService
	qa         *app.QAService
	comparison *app.ComparisonService
}

type AskRequest struct {
	Question string `json:"question" binding:"required,max=2000"`
	TopK     int    `json:"top_k" binding:"min=0,max=500"`
}

func NewCollectionHandler(documents *app.DocumentService, retrieval *app.RetrievalService, qa *app.QAService, comparison *app.ComparisonService) *CollectionHandler {
	return &CollectionHandler{documents: documents, retrieval: retrieval, qa: qa, comparison: comparison}
}

// Upload accepts a multipart form with one or more "files" parts and an
// optional "name", and creates a collection from them.
func (h *CollectionHandler) Upload(c *gin.Context) {
	userID, orgID, ok := principal(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["files[]"]
	}
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing files")
		return
	}

	files := make([]app.UploadFile, 0, len(headers))
	var opened []io.Closer
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read file "+fh.Filename)
			return
		}
		opened = append(opened, f)
		files = append(files, app.UploadFile{
			Name:        fh.Filename,
			ContentType: contentType(fh),
			Size:        fh.Size,
			Content:     f,
		})
	}

	name := ""
	if values := form.Value["name"]; len(values) > 0 {
		name = values[0]
	}
	result, err := h.documents.Upload(c.Request.Context(), app.UploadInput{
		OrgID:  orgID,
		UserID: userID,
		Name:   name,
		Files:  files,
	})
	if err != nil {
		writeError(c, err, "upload failed")
		return
	}
	response.OK(c, result)
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (h *CollectionHandler) ListDocuments(c *gin.Context) {
	_, orgID, ok := principal(c)
	if !ok {
		return
	}
	docs, err := h.documents.ListDocuments(c.Request.Context(), c.Param("token"), orgID)
	if err != nil {
		writeError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *CollectionHandler) ListChunks(c *gin.Context) {
	_, orgID, ok := principal(c)
	if !ok {
		return
	}
	listChunks(c, h.retrieval, c.Param("token"), orgID)
}

func (h *CollectionHandler) Ask(c *gin.Context) {
	_, orgID, ok := principal(c)
	if !ok {
		return
	}
	ask(c, h.qa, c.Param("token"), orgID)
}

func (h *CollectionHandler) Comparison(c *gin.Context) {
	_, orgID, ok := principal(c)
	if !ok {
		return
	}
	compare(c, h.comparison, c.Param("token"), orgID)
}

func listChunks(c *gin.Context, retrieval *app.RetrievalService, token string, orgID uint) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid offset")
		return
	}
	page, err := retrieval.ListChunks(c.Request.Context(), token, orgID, app.Page{Limit: limit, Offset: offset})
	if err != nil {
		writeError(c, err, "list chunks failed")
		return
	}
	response.OK(c, page)
}

func ask(c *gin.Context, qa *app.QAService, token string, orgID uint) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := qa.Ask(c.Request.Context(), app.AskInput{
		CollectionToken: token,
		OrgID:           orgID,
		Question:        req.Question,
		TopK:            req.TopK,
	})
	if err != nil {
		writeError(c, err, "ask failed")
		return
	}
	response.OK(c, result)
}

func compare(c *gin.Context, comparison *app.ComparisonService, token string, orgID uint) {
	m, err := comparison.Compare(c.Request.Context(), token, orgID)
	if err != nil {
		writeError(c, err, "build comparison failed")
		return
	}
	response.OK(c, m)
}
