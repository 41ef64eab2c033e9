package batch

import (
	"time"

	"go-payroll/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rdb ...*redis.Client) {
	var redisClient *redis.Client
	if len(rdb) > 0 {
		redisClient = rdb[0]
	}

	batches := r.Group("/payroll-batches")
	batches.Use(middleware.TenantContext())
	heavy := middleware.RateLimitByCompany(rate.Every(2*time.Second), 3)
	{
		if redisClient != nil {
			batches.POST("", heavy, middleware.Idempotency(redisClient), handler.Process)
			batches.POST("/multi-entity", heavy, middleware.Idempotency(redisClient), handler.ProcessMultiEntity)
		} else {
			batches.POST("", heavy, handler.Process)
			batches.POST("/multi-entity", heavy, handler.ProcessMultiEntity)
		}
		batches.POST("/:id/rollback", handler.Rollback)
	}
}
