package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dto"
	"github.com/gin-gonic/gin"
)

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorConflict), errors.Is(err, common.ErrorBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func messageOf(err error) string {
	switch {
	case errors.Is(err, common.ErrorAlreadyFavorited):
		return common.ErrorAlreadyFavorited.Error()
	case errors.Is(err, common.ErrorNotFavorited):
		return common.ErrorNotFavorited.Error()
	}
	return err.Error()
}

// fail writes err as {"message": ...}. Internal errors are logged and
// hidden from the client.
func (h *handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	msg := messageOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
			"error", err,
		)
		msg = "something went wrong, please try again later"
	}
	abort(c, status, msg)
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, dto.Message{Message: msg})
}

// int64Param reads a positive integer path parameter.
func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		abort(c, http.StatusNotFound, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}

// cursorQuery reads the optional keyset cursor. Missing means the first page.
func cursorQuery(c *gin.Context) (int64, bool) {
	raw := c.Query("cursor")
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		abort(c, http.StatusBadRequest, "cursor must be a non-negative integer")
		return 0, false
	}
	return v, true
}
