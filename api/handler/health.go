package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joblens/harvester/engine"
	"github.com/joblens/harvester/models"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports lease utilisation and degrades status when > 80% of pages are active.
func Health(eng *engine.Engine, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := eng.Stats()

		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			LeaseStats: stats,
			Version:    "0.1.0",
		})
	}
}
