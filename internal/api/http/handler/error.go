package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studydesk/studydesk-server/internal/model"
)

// handleError translates domain errors into HTTP responses. Unexpected
// failures become an opaque 500; the detail is logged server-side only.
func (h *Auth) handleError(c *gin.Context, err error) {
	var rateErr *model.RateLimitError
	if errors.As(err, &rateErr) {
		seconds := int(rateErr.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": rateErr.Error()})
		return
	}

	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		status := http.StatusUnauthorized
		if authErr.Code == model.CodeEmailTaken {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": authErr.Message, "code": authErr.Code})
		return
	}

	var valErr *model.ValidationError
	if errors.As(err, &valErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Message, "field": valErr.Field})
		return
	}

	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}

	h.logger.Error("Auth handler: unexpected error",
		"path", c.Request.URL.Path,
		"error", err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
