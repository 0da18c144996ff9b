package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"offerdesk/internal/app"
	"offerdesk/internal/transport/http/response"
)

type DocumentHandler struct {
	documents *app.DocumentService
}

func NewDocumentHandler(documents *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Reembed rebuilds the document's chunks synchronously.
func (h *DocumentHandler) Reembed(c *gin.Context) {
	_, orgID, ok := principal(c)
	if !ok {
		return
	}
	docID, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	result, err := h.documents.ReembedForOrg(c.Request.Context(), orgID, docID)
	if err != nil {
		writeError(c, err, "reembed failed")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	_, orgID, ok := principal(c)
	if !ok {
		return
	}
	docID, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	if err := h.documents.Delete(c.Request.Context(), orgID, docID); err != nil {
		writeError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": docID})
}
