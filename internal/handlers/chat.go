package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/connectly-backend/internal/models"
	"github.com/pushp314/connectly-backend/internal/services"
)

// ChatHandler translates the conversation RPC surface onto the façade.
// It is constructed once per process and passed by reference; there is no
// package-level service singleton.
type ChatHandler struct {
	svc *services.ConversationService
}

func NewChatHandler(svc *services.ConversationService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// GetConversations GET /chat/conversations
func (h *ChatHandler) GetConversations(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	inbox, err := h.svc.GetConversations(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, inbox)
}

// CreateConversation POST /chat/conversations
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req struct {
		ParticipantIDs []string `json:"participantIds" binding:"required"`
		Name           string   `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.svc.CreateConversation(c.Request.Context(), userID, req.ParticipantIDs, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.IsRequest {
		c.JSON(http.StatusOK, gin.H{"isRequest": true})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": result.Conversation})
}

// GetMessages GET /chat/conversations/:id/messages?page=&limit=
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Param("id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.svc.GetMessages(conversationID, userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages, "page": page})
}

// SendMessage POST /chat/conversations/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Param("id")

	var req struct {
		Content   string  `json:"content" binding:"required"`
		Type      string  `json:"type"`
		ReplyToID *string `json:"replyToId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msgType, ok := models.NormalizeMessageType(req.Type)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown message type"})
		return
	}

	msg, err := h.svc.SendMessage(conversationID, userID, req.Content, msgType, req.ReplyToID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// UpdateMessage PUT /chat/messages/:id
func (h *ChatHandler) UpdateMessage(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	messageID := c.Param("id")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := h.svc.UpdateMessage(messageID, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// ToggleFavorite POST /chat/conversations/:id/favorite
func (h *ChatHandler) ToggleFavorite(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Param("id")

	participant, err := h.svc.ToggleFavorite(conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"isFavorite": participant.IsFavorite})
}

// MuteConversation POST /chat/conversations/:id/mute
func (h *ChatHandler) MuteConversation(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Param("id")

	var req struct {
		Until *time.Time `json:"until"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.svc.MuteConversation(conversationID, userID, req.Until); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mutedUntil": req.Until})
}

// MarkRead POST /chat/conversations/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Param("id")

	if err := h.svc.MarkRead(conversationID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}

// DeleteConversation DELETE /chat/conversations/:id
// Soft leave: only the caller's participant row is removed.
func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Param("id")

	if err := h.svc.DeleteConversation(conversationID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation removed"})
}
