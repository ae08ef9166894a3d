package api

import (
	"Regalo/internal/api/middleware"
	"Regalo/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		chatGroup := apiGroup.Group("/chat")
		{
			// 长连接在握手参数中自行鉴权
			chatGroup.GET("/ws", group.WSHandler.Connect)

			authGroup := chatGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/conversations", group.ChatHandler.CreateConversation)
				authGroup.GET("/conversations", group.ChatHandler.GetConversationList)
				authGroup.GET("/conversations/:conversation_id", group.ChatHandler.GetConversation)
				authGroup.GET("/conversations/:conversation_id/messages", group.ChatHandler.GetMessages)
				authGroup.POST("/conversations/:conversation_id/mark-all-read", group.ChatHandler.MarkAllAsRead)
				authGroup.GET("/conversations/:conversation_id/subscribe", group.ChatHandler.Subscribe)

				authGroup.POST("/messages", group.ChatHandler.SendMessage)
				authGroup.POST("/messages/mark-read", group.ChatHandler.MarkAsRead)
			}
		}
	}

	return r
}
