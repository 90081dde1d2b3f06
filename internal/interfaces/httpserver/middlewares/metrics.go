package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"jan-server/services/dm-api/internal/infrastructure/metrics"
)

// Gin context keys handlers set so request metrics and logs carry them.
const (
	ModelKey  = "model"
	StreamKey = "stream"
	GameIDKey = "game_id"
)

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		model := c.GetString(ModelKey)
		if model == "" {
			model = "none"
		}

		metrics.RecordRequest(c.Request.Method, endpoint, status, model, c.GetBool(StreamKey), duration)
		metrics.RecordUserAgent(c.Request.UserAgent())
	}
}
