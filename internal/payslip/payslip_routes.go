package payslip

import (
	"go-payroll/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	public := r.Group("/payslips")
	public.POST("/:id/verify", middleware.RateLimitByIP(rate.Limit(2), 5), handler.Verify)

	payslips := r.Group("/payslips")
	payslips.Use(middleware.TenantContext())
	{
		payslips.POST("", handler.Create)
		payslips.POST("/calculate", handler.Calculate)
		payslips.GET("/:id", handler.GetByID)
		payslips.GET("/:id/history", handler.History)
		payslips.POST("/:id/regenerate", handler.Regenerate)
		payslips.POST("/:id/publish", handler.Publish)
	}
}
