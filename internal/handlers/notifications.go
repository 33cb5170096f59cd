package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNotificationCounts GET /notifications/counts
// The badge payload the client polls; commercial is a breakdown of
// unread, total is unread + pending.
func (h *ChatHandler) GetNotificationCounts(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	counts, err := h.svc.ComputeCounts(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}
