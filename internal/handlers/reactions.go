package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ToggleReaction POST /chat/messages/:id/reactions
func (h *ChatHandler) ToggleReaction(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	messageID := c.Param("id")

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	summaries, err := h.svc.ToggleReaction(messageID, userID, req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reactions": summaries})
}

// GetReactions GET /chat/messages/:id/reactions
func (h *ChatHandler) GetReactions(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	messageID := c.Param("id")

	summaries, err := h.svc.GetReactions(messageID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reactions": summaries})
}
