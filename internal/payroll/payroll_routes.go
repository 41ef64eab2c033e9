package payroll

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

	// mutating routes take the Idempotency-Key guard when redis is wired
	post := func(g *gin.RouterGroup, path string, handlers ...gin.HandlerFunc) {
		if redisClient != nil {
			handlers = append([]gin.HandlerFunc{middleware.Idempotency(redisClient)}, handlers...)
		}
		g.POST(path, handlers...)
	}

	runs := r.Group("/payroll-runs")
	runs.Use(middleware.TenantContext())
	{
		runs.GET("", handler.GetAll)
		runs.GET("/:id", handler.GetById)
		runs.GET("/:id/breakdown", handler.GetBreakdown)
		runs.GET("/:id/bank-files", handler.ListBankFiles)
		runs.GET("/:id/journal", handler.Journal)
		runs.GET("/:id/journal/export", handler.ExportJournal)
		runs.GET("/:id/reconcile", handler.Reconcile)

		post(runs, "", handler.Create)
		post(runs, "/:id/process", middleware.RateLimitByCompany(rate.Every(2*time.Second), 3), handler.Process)
		post(runs, "/:id/recalculate", middleware.RateLimitByCompany(rate.Every(2*time.Second), 3), handler.Recalculate)
		post(runs, "/:id/submit", handler.Submit)
		post(runs, "/:id/approve", handler.Approve)
		post(runs, "/:id/mark-paid", handler.MarkAsPaid)
		post(runs, "/:id/complete", handler.Complete)
		post(runs, "/:id/cancel", handler.Cancel)
		post(runs, "/:id/bank-files", handler.GenerateBankFile)
	}
}
