package batch

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-payroll/internal/middleware"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/response"
)

type Handler struct {
	service Service
	rdb     *redis.Client
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func NewHandlerWithRedis(service Service, rdb *redis.Client) *Handler {
	return &Handler{service: service, rdb: rdb}
}

func getActorID(c *gin.Context) string {
	return c.GetString("user_id_validated")
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	if httpErr.Status >= http.StatusInternalServerError {
		contextutil.GetLogger(c.Request.Context(), zap.L()).Named("batch.handler").Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) releaseLock(c *gin.Context) {
	if h.rdb == nil {
		return
	}
	if lk := c.GetString(middleware.IdempotencyLockKey); lk != "" {
		h.rdb.Del(c.Request.Context(), lk)
	}
}

func (h *Handler) cache(c *gin.Context, resp any) {
	if h.rdb == nil {
		return
	}
	if ck := c.GetString(middleware.IdempotencyCacheKey); ck != "" {
		if payload, err := json.Marshal(resp); err == nil {
			_ = h.rdb.Set(c.Request.Context(), ck, payload, middleware.IdempotencyCacheTTL).Err()
		}
	}
}

func (h *Handler) Process(c *gin.Context) {
	defer h.releaseLock(c)

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp, err := h.service.Process(c.Request.Context(), c.GetString("company_id"), getActorID(c), req)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		if resp.Status == StatusFailed {
			response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, resp)
			return
		}
		h.writeServiceError(c, err)
		return
	}

	h.cache(c, resp)
	status := http.StatusCreated
	if resp.Status == StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	response.Success(c, status, resp, nil)
}

func (h *Handler) ProcessMultiEntity(c *gin.Context) {
	defer h.releaseLock(c)

	var req MultiEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp := h.service.ProcessMultiEntity(c.Request.Context(), getActorID(c), req)
	h.cache(c, resp)
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Rollback(c *gin.Context) {
	resp, err := h.service.Rollback(c.Request.Context(), c.GetString("company_id"), getActorID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
