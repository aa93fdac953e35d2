package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/metrics"
	"github.com/tieubaoca/pdfchat-be/middleware"
	"github.com/tieubaoca/pdfchat-be/types"
)

type RouterConfig struct {
	JWTSecret      string
	RequestTimeout time.Duration
	StreamTimeout  time.Duration
	Logger         zerolog.Logger
}

func NewRouter(cfg RouterConfig, documents *DocumentHandler, chat *ChatHandler, ws *WSHandler) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
		cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader, StreamErrorTrailer},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, types.DataResponse{Status: true, Message: "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	requests := apiV1.Group("/", withTimeout(cfg.RequestTimeout))
	{
		requests.GET("/documents", documents.List)
		requests.GET("/documents/:id", documents.Get)
		requests.DELETE("/documents/:id", documents.Delete)
		requests.POST("/documents/:id/chats", documents.CreateChat)
		requests.GET("/documents/:id/chats", documents.ListChats)
		requests.GET("/chats/:chat_id/messages", documents.ListMessages)
		requests.POST("/query", chat.HandleQuery)
	}

	streams := apiV1.Group("/", withTimeout(cfg.StreamTimeout))
	{
		streams.POST("/documents", documents.Upload)
		streams.POST("/chat", chat.HandleChat)
		streams.GET("/chat/ws", ws.HandleChat)
	}
	return router
}

func withTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
