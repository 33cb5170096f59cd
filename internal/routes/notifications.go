package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/connectly-backend/internal/handlers"
	"github.com/pushp314/connectly-backend/internal/middleware"
)

func RegisterNotificationRoutes(r gin.IRouter, h *handlers.ChatHandler) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	{
		notifications.GET("/counts", h.GetNotificationCounts)
	}
}
