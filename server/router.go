package server

import (
	"time"

	httpHandler "shorts-publisher/interfaces/http"
	"shorts-publisher/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries what the callback server needs besides its handlers.
type RouterConfig struct {
	SecretKey    string
	AllowOrigins []string
}

// InitiateRouter builds the local callback server. tiktokAuthHandler and stream may be nil.
func InitiateRouter(
	cfg RouterConfig,
	healthHandler httpHandler.IHealthHandler,
	tiktokAuthHandler httpHandler.ITikTokAuthHandler,
	stream gin.HandlerFunc,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if len(cfg.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.StateHeader},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler.Healthz)

	if tiktokAuthHandler != nil {
		auth := router.Group("/auth/tiktok")
		auth.GET("", tiktokAuthHandler.Login)
		auth.GET("/callback", tiktokAuthHandler.Callback)
		auth.GET("/status", tiktokAuthHandler.Status)
		auth.POST("/tokens", middleware.RequireOAuthState(cfg.SecretKey), tiktokAuthHandler.SubmitTokens)
	}

	if stream != nil {
		router.GET("/publish/stream", stream)
	}
	return router
}
