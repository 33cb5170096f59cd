package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListRequests GET /chat/requests
func (h *ChatHandler) ListRequests(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	requests, err := h.svc.ListRequests(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// SendMessageRequest POST /chat/requests
func (h *ChatHandler) SendMessageRequest(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req struct {
		RecipientID string `json:"recipientId" binding:"required"`
		Message     string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	request, err := h.svc.SendMessageRequest(userID, req.RecipientID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"request": request})
}

// AcceptRequest POST /chat/requests/:id/accept
func (h *ChatHandler) AcceptRequest(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	requestID := c.Param("id")

	conv, err := h.svc.AcceptRequest(requestID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// RejectRequest POST /chat/requests/:id/reject
func (h *ChatHandler) RejectRequest(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	requestID := c.Param("id")

	if err := h.svc.RejectRequest(requestID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request rejected"})
}
