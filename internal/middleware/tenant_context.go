package middleware

import (
	"net/http"

	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantContext reads the company and actor set by the upstream gateway.
// The engine trusts these headers and performs no authentication itself.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID := c.GetHeader("X-Company-ID")
		if _, err := uuid.Parse(companyID); err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_COMPANY_ID", "Header X-Company-ID is invalid", nil)
			c.Abort()
			return
		}

		actorID := c.GetHeader("X-Actor-ID")
		if _, err := uuid.Parse(actorID); err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_ACTOR_ID", "Header X-Actor-ID is invalid", nil)
			c.Abort()
			return
		}

		c.Set("company_id", companyID)
		c.Set("user_id", actorID)
		c.Set("user_id_validated", actorID)

		ctx := contextutil.WithUserID(c.Request.Context(), actorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
