package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/connectly-backend/internal/handlers"
	"github.com/pushp314/connectly-backend/internal/middleware"
)

func RegisterChatRoutes(r gin.IRouter, h *handlers.ChatHandler) {
	chat := r.Group("/chat")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.GET("/conversations", h.GetConversations)
		chat.POST("/conversations", middleware.ChatRateLimit(), h.CreateConversation)
		chat.GET("/conversations/:id/messages", h.GetMessages)
		chat.POST("/conversations/:id/messages", middleware.ChatRateLimit(), h.SendMessage)
		chat.POST("/conversations/:id/favorite", h.ToggleFavorite)
		chat.POST("/conversations/:id/mute", h.MuteConversation)
		chat.POST("/conversations/:id/read", h.MarkRead)
		chat.DELETE("/conversations/:id", h.DeleteConversation)

		chat.PUT("/messages/:id", middleware.ChatRateLimit(), h.UpdateMessage)
		chat.POST("/messages/:id/reactions", h.ToggleReaction)
		chat.GET("/messages/:id/reactions", h.GetReactions)

		chat.GET("/requests", h.ListRequests)
		chat.POST("/requests", middleware.RequestRateLimit(), h.SendMessageRequest)
		chat.POST("/requests/:id/accept", h.AcceptRequest)
		chat.POST("/requests/:id/reject", h.RejectRequest)
	}
}
