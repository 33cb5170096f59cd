package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/pushp314/connectly-backend/pkg/errors"
	"github.com/pushp314/connectly-backend/pkg/logger"
)

// respondError maps typed service errors onto stable HTTP codes. Untyped
// errors are logged and collapsed to a 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	logger.Error().Err(err).
		Str("path", c.Request.URL.Path).
		Msg("unhandled service error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
