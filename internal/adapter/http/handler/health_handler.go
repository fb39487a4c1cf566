package handler

import (
	"context"
	"net/http"
	"time"

	"consenthub/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const serviceVersion = "1.0.0"

// HealthCheck pings each dependency and reports per-dependency status.
// Any failing check degrades the service and flips the status code to 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		checks := make(map[string]string, len(checkers))
		for _, checker := range checkers {
			if err := checker.Ping(ctx); err != nil {
				checks[checker.Name()] = "unhealthy: " + err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			checks[checker.Name()] = "healthy"
		}

		c.JSON(code, gin.H{
			"service":   "consenthub",
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   serviceVersion,
			"checks":    checks,
		})
	}
}
