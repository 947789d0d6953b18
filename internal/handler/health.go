package handler

import (
	"context"
	"net/http"
	"time"

	"sigir/internal/infra"
	"sigir/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports Postgres and Redis connectivity, the audit dead-letter
// backlog and the list cache breaker. Only Postgres and Redis decide the
// status code; a nil cache is reported as "disabled".
func Health(db *gorm.DB, rdb *redis.Client, cache *infra.ListaCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueCategorias); err == nil {
			dlq = n
		}

		cacheStatus := "disabled"
		if cache != nil {
			cacheStatus = cache.Estado().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
			"cache": cacheStatus,
			"dlq":   dlq,
		})
	}
}
