package routes

import (
	"github.com/gin-gonic/gin"

	"memetrader/internal/handlers"
	"memetrader/internal/middleware"
)

// SetupRouter wires the control API routes onto a gin engine.
func SetupRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	limiter := middleware.NewRateLimiter(10, 20)
	r.Use(limiter.Middleware())

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/positions", h.GetPositions)
		v1.GET("/summary", h.GetSummary)
		v1.GET("/endpoints", h.GetEndpoints)
		v1.POST("/validate", h.ValidateTokens)
		v1.POST("/emergency-stop", h.EmergencyStop)
	}

	return r
}
