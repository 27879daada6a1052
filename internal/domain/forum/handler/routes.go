package handler

import (
	"hobby_forum/internal/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册 /forum 下的路由
func RegisterRoutes(r *gin.RouterGroup, h *ForumHandler, jwtSecret string) {
	g := r.Group("/forum")

	// 公开读取
	g.GET("/feed", h.GetFeed)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/posts/:id/comments", h.ListComments)

	// 需要登录
	auth := g.Group("")
	auth.Use(middleware.AuthMiddleware(jwtSecret))
	{
		auth.POST("/votes", h.CastVote)
		auth.POST("/posts", h.CreatePost)
		auth.DELETE("/posts/:id", h.DeletePost)
		auth.POST("/posts/:id/comments", h.AddComment)
		auth.DELETE("/comments/:id", h.DeleteComment)
	}

	// 版主
	mod := g.Group("")
	mod.Use(middleware.AuthMiddleware(jwtSecret), middleware.ModeratorMiddleware())
	{
		mod.PUT("/posts/:id/lock", h.SetLocked)
		mod.PUT("/posts/:id/pin", h.SetPinned)
	}
}
