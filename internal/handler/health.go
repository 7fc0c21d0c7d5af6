package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gestionar/internal/cache"
	"gestionar/internal/ledger"
)

// Health returns a JSON health check response.
// Checks Redis connectivity and the upstream circuit breaker state; never
// exposes credentials or internals.
func Health(rdb *redis.Client, lg *ledger.Client, c *cache.Cache) gin.HandlerFunc {
	return func(gc *gin.Context) {
		ctx, cancel := context.WithTimeout(gc.Request.Context(), 3*time.Second)
		defer cancel()

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		breaker := lg.BreakerState().String()

		status := http.StatusOK
		if redisStatus != "connected" || breaker == "open" {
			status = http.StatusServiceUnavailable
		}

		gc.JSON(status, gin.H{
			"ok":             status == http.StatusOK,
			"redis":          redisStatus,
			"ledger_breaker": breaker,
			"cached_entries": c.Len(),
		})
	}
}
