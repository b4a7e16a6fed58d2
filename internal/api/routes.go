package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/profithive/profithive-go/internal/api/handlers"
	"github.com/profithive/profithive-go/internal/database"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// SetupRoutes mounts the health check and the versioned API surface.
func SetupRoutes(router *gin.Engine, db *database.PostgresDB, redis *database.RedisClient, forecastHandler *handlers.ForecastHandler, cacheHandler *handlers.CacheHandler) {
	router.GET("/health", healthCheck(db, redis))

	v1 := router.Group("/api/v1")
	{
		forecasts := v1.Group("/forecasts")
		{
			forecasts.POST("", forecastHandler.GenerateForecast)
			forecasts.GET("/:seriesID/latest", forecastHandler.GetLatestForecast)
		}

		history := v1.Group("/history")
		{
			history.POST("/:seriesID", forecastHandler.RecordHistory)
		}

		cacheGroup := v1.Group("/cache")
		{
			cacheGroup.DELETE("", cacheHandler.ClearCache)
			cacheGroup.DELETE("/:key", cacheHandler.EvictEntry)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		if db == nil {
			response.Services.Database = "disabled"
		} else if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}

		if redis == nil {
			response.Services.Redis = "disabled"
		} else if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
