package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"offerdesk/internal/app"
	"offerdesk/internal/transport/http/middleware"
	"offerdesk/internal/transport/http/response"
)

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}

func getOrgIDFromContext(c *gin.Context) (uint, bool) {
	orgIDAny, exists := c.Get(middleware.ContextOrgIDKey)
	if !exists {
		return 0, false
	}
	orgID, ok := orgIDAny.(uint)
	return orgID, ok && orgID != 0
}

// principal returns the caller's user and organization, writing a 401 when
// the token payload lacks them.
func principal(c *gin.Context) (userID, orgID uint, ok bool) {
	userID, userOK := getUserIDFromContext(c)
	orgID, orgOK := getOrgIDFromContext(c)
	if !userOK || !orgOK {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return 0, 0, false
	}
	return userID, orgID, true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	s := c.Param(key)
	u, err := strconv.ParseUint(s, 10, 64)
	return uint(u), err
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, key string) (int, error) {
	s := c.Query(key)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// writeError maps service errors to the response envelope. Anything
// unrecognised is a 500 with fallback as the message.
func writeError(c *gin.Context, err error, fallback string) {
	var ambiguous *app.AmbiguousError
	switch {
	case errors.As(err, &ambiguous):
		response.ErrorWithData(c, http.StatusConflict, response.CodeConflict,
			"documents match more than one collection", gin.H{"candidates": ambiguous.Tokens, "matches": ambiguous.Matches})
	case errors.Is(err, app.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "not found")
	case errors.Is(err, app.ErrNoContent):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeNoContent, "documents still processing")
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
