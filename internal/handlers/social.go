package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/connectly-backend/internal/services"
)

// SocialHandler proxies the external social-graph collaborator.
type SocialHandler struct {
	svc *services.ConversationService
}

func NewSocialHandler(svc *services.ConversationService) *SocialHandler {
	return &SocialHandler{svc: svc}
}

// GetFriends GET /social/friends
func (h *SocialHandler) GetFriends(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	friends, err := h.svc.GetFriends(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// CheckMutualFollow GET /social/mutual/:targetId
func (h *SocialHandler) CheckMutualFollow(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	targetID := c.Param("targetId")

	mutual, err := h.svc.CheckMutualFollow(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mutual": mutual})
}
