package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/connectly-backend/internal/handlers"
	"github.com/pushp314/connectly-backend/internal/middleware"
)

func RegisterSocialRoutes(r gin.IRouter, h *handlers.SocialHandler) {
	social := r.Group("/social")
	social.Use(middleware.AuthMiddleware())
	{
		social.GET("/friends", h.GetFriends)
		social.GET("/mutual/:targetId", h.CheckMutualFollow)
	}
}
