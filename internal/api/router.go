package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/driftchat/drift/config"
	"github.com/driftchat/drift/internal/handler"
	"github.com/driftchat/drift/internal/ws"
	jwtmw "github.com/driftchat/drift/middleware/jwt"
	"github.com/driftchat/drift/utils/ratelimit"
)

// RegisterRoutes wires the service surface onto the gin engine.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	tokens *jwtmw.TokenManager,
	limiter ratelimit.Limiter,
	messageHandler *handler.MessageHandler,
	readHandler *handler.ReadHandler,
	wsHandler *ws.Handler,
) {
	r.Use(cors.Default())
	r.Use(TraceMiddleware())
	if cfg.RateLimit.MaxConcurrency > 0 {
		r.Use(MaxConcurrencyMiddleware(cfg.RateLimit.MaxConcurrency))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(tokens))
	api.Use(RateLimitMiddleware(limiter, cfg.RateLimit.APIPerMinute, time.Minute))
	{
		channels := api.Group("/channels/:id")
		{
			messages := channels.Group("/messages")
			messages.POST("", RateLimitMiddleware(limiter, cfg.RateLimit.MessagePerMinute, time.Minute), messageHandler.SendMessage)
			messages.GET("", messageHandler.ListMessages)
			messages.PATCH("/:messageId", messageHandler.UpdateMessage)

			channels.POST("/typing", messageHandler.NotifyTyping)
			channels.POST("/read", readHandler.MarkRead)
			channels.POST("/checkout", readHandler.CheckoutRead)
		}

		api.DELETE("/messages/:messageId", messageHandler.DeleteMessage)

		api.GET("/ws", wsHandler.Serve)
	}
}
