package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"offerdesk/internal/app"
	"offerdesk/internal/model"
	"offerdesk/internal/transport/http/response"
)

type ShareHandler struct {
	shares     *app.ShareService
	retrieval  *app.RetrievalService
	qa         *app.QAService
	comparison *app.ComparisonService
}

type CreateShareRequest struct {
	CollectionToken string              `json:"collection_token" binding:"max=64"`
	Documents       []model.DocumentRef `json:"documents" binding:"max=100"`
}

func NewShareHandler(shares *app.ShareService, retrieval *app.RetrievalService, qa *app.QAService, comparison *app.ComparisonService) *ShareHandler {
	return &ShareHandler{shares: shares, retrieval: retrieval, qa: qa, comparison: comparison}
}

func (h *ShareHandler) Create(c *gin.Context) {
	userID, orgID, ok := principal(c)
	if !ok {
		return
	}
	var req CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	share, err := h.shares.Create(c.Request.Context(), app.CreateShareInput{
		OrgID:           orgID,
		UserID:          userID,
		CollectionToken: req.CollectionToken,
		Documents:       req.Documents,
	})
	if err != nil {
		writeError(c, err, "create share failed")
		return
	}
	response.OK(c, share)
}

// resolve maps the share token in the path to its collection, writing the
// error response itself.
func (h *ShareHandler) resolve(c *gin.Context) (*app.ResolvedShare, bool) {
	resolved, err := h.shares.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err, "resolve share failed")
		return nil, false
	}
	return resolved, true
}

func (h *ShareHandler) Chunks(c *gin.Context) {
	resolved, ok := h.resolve(c)
	if !ok {
		return
	}
	listChunks(c, h.retrieval, resolved.Collection.Token, resolved.Share.OrgID)
}

func (h *ShareHandler) Ask(c *gin.Context) {
	resolved, ok := h.resolve(c)
	if !ok {
		return
	}
	ask(c, h.qa, resolved.Collection.Token, resolved.Share.OrgID)
}

func (h *ShareHandler) Comparison(c *gin.Context) {
	resolved, ok := h.resolve(c)
	if !ok {
		return
	}
	compare(c, h.comparison, resolved.Collection.Token, resolved.Share.OrgID)
}
