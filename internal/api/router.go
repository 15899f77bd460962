package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/handler"
	"github.com/jengzang/records-timeline-go/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, timelineHandler *handler.TimelineHandler, limiter *middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Records Timeline API is running",
		})
	})

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	{
		// 用户时间线接口
		users := api.Group("/users/:userId", middleware.Auth([]byte(cfg.JWTSecret), "userId"))
		{
			users.POST("/points", timelineHandler.IngestPoints)
			users.POST("/flush", timelineHandler.Flush)
			users.GET("/timeline", timelineHandler.GetTimeline)
			users.GET("/summary", timelineHandler.GetSummary)
			users.GET("/places", timelineHandler.GetPlaces)
			users.GET("/state", timelineHandler.GetUserState)
		}
	}

	return r
}
