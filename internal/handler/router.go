package handler

import (
	"net/http"
	"time"

	"demystifier-backend/internal/config"
	"demystifier-backend/internal/model"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(cfg *config.Config, geminiHandler *GeminiHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(RequestID())
	router.Use(AccessLog())
	router.Use(Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().Unix(),
		})
	})

	api := router.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(RateLimit(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))
	}
	api.Use(BodyLimit(bodyLimitFor(cfg.Upload.MaxFileBytes)))
	{
		// every method lands here so the handler can answer 405
		api.Any("/gemini", geminiHandler.Handle)
	}

	return router
}
