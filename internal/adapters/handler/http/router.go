package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/handler/http/middleware"
)

// Pinger is the health probe of the record store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDependencies struct {
	HabitHandler    *HabitHandler
	CheckoffHandler *CheckoffHandler
	AnalysisHandler *AnalysisHandler
	Store           Pinger
	// Redis is optional; without it there is no rate limiting.
	Redis *redis.Client
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit int
	Logger    *zap.Logger
	StartTime time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	if deps.Redis != nil && deps.RateLimit > 0 {
		router.Use(middleware.RateLimiterMiddleware(deps.Redis, deps.RateLimit, time.Minute, logger))
	}

	router.GET("/health", func(c *gin.Context) {
		storeStatus := "connected"
		if deps.Store == nil || deps.Store.Ping(c.Request.Context()) != nil {
			storeStatus = "unreachable"
		}

		redisStatus := "disabled"
		if deps.Redis != nil {
			redisStatus = "connected"
			if deps.Redis.Ping(c.Request.Context()).Err() != nil {
				redisStatus = "unreachable"
			}
		}

		statusCode := http.StatusOK
		if storeStatus == "unreachable" || redisStatus == "unreachable" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status":   "ok",
			"database": storeStatus,
			"redis":    redisStatus,
			"uptime":   time.Since(deps.StartTime).String(),
		})
	})

	apiV1 := router.Group("/api/v1")
	deps.HabitHandler.RegisterRoutes(apiV1)
	deps.CheckoffHandler.RegisterRoutes(apiV1)
	deps.AnalysisHandler.RegisterRoutes(apiV1)

	return router
}
