package payroll

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-payroll/internal/bankfile"
	"go-payroll/internal/batch"
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
		contextutil.GetLogger(c.Request.Context(), zap.L()).Named("payroll.handler").Error("request failed",
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

func (h *Handler) Create(c *gin.Context) {
	defer h.releaseLock(c)

	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp, err := h.service.Create(c.Request.Context(), c.GetString("company_id"), getActorID(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.cache(c, resp)
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetAll(c *gin.Context) {
	var filterReq GetRunsFilterRequest
	if err := c.ShouldBindQuery(&filterReq); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp, err := h.service.GetAll(c.Request.Context(), c.GetString("company_id"), filterReq)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if pageSize < 1 {
		pageSize = 10
	}

	total := int64(len(resp))
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(resp) {
		start = len(resp)
	}
	if end > len(resp) {
		end = len(resp)
	}

	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, resp[start:end], &meta)
}

func (h *Handler) GetById(c *gin.Context) {
	resp, err := h.service.GetByID(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetBreakdown(c *gin.Context) {
	resp, err := h.service.GetBreakdown(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Process(c *gin.Context) {
	defer h.releaseLock(c)

	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp, err := h.service.Process(c.Request.Context(), c.GetString("company_id"), getActorID(c), c.Param("id"), req)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		if resp.Batch.BatchID != "" {
			response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, resp)
			return
		}
		h.writeServiceError(c, err)
		return
	}

	h.cache(c, resp)
	status := http.StatusOK
	if resp.Batch.Status == batch.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	response.Success(c, status, resp, nil)
}

// transition serves the body-less lifecycle actions.
func (h *Handler) transition(fn func(s Service, c *gin.Context, companyID, actorID, id string) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer h.releaseLock(c)

		resp, err := fn(h.service, c, c.GetString("company_id"), getActorID(c), c.Param("id"))
		if err != nil {
			h.writeServiceError(c, err)
			return
		}
		h.cache(c, resp)
		response.Success(c, http.StatusOK, resp, nil)
	}
}

func (h *Handler) Recalculate(c *gin.Context) {
	h.transition(func(s Service, c *gin.Context, companyID, actorID, id string) (any, error) {
		return s.Recalculate(c.Request.Context(), companyID, actorID, id)
	})(c)
}

func (h *Handler) Submit(c *gin.Context) {
	h.transition(func(s Service, c *gin.Context, companyID, actorID, id string) (any, error) {
		return s.Submit(c.Request.Context(), companyID, actorID, id)
	})(c)
}

func (h *Handler) Approve(c *gin.Context) {
	h.transition(func(s Service, c *gin.Context, companyID, actorID, id string) (any, error) {
		return s.Approve(c.Request.Context(), companyID, actorID, id)
	})(c)
}

func (h *Handler) MarkAsPaid(c *gin.Context) {
	h.transition(func(s Service, c *gin.Context, companyID, actorID, id string) (any, error) {
		return s.MarkAsPaid(c.Request.Context(), companyID, actorID, id)
	})(c)
}

func (h *Handler) Complete(c *gin.Context) {
	h.transition(func(s Service, c *gin.Context, companyID, actorID, id string) (any, error) {
		return s.Complete(c.Request.Context(), companyID, actorID, id)
	})(c)
}

func (h *Handler) Cancel(c *gin.Context) {
	defer h.releaseLock(c)

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), c.GetString("company_id"), getActorID(c), c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	h.cache(c, resp)
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GenerateBankFile(c *gin.Context) {
	defer h.releaseLock(c)

	var req bankfile.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
		return
	}

	resp, err := h.service.GenerateBankFile(c.Request.Context(), c.GetString("company_id"), getActorID(c), c.Param("id"), req)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		if len(resp.Rejected) > 0 {
			response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, resp.Rejected)
			return
		}
		h.writeServiceError(c, err)
		return
	}

	h.cache(c, resp)
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) ListBankFiles(c *gin.Context) {
	resp, err := h.service.ListBankFiles(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Journal(c *gin.Context) {
	resp, err := h.service.Journal(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ExportJournal(c *gin.Context) {
	export, err := h.service.ExportJournal(c.Request.Context(), c.GetString("company_id"), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Content)
}

func (h *Handler) Reconcile(c *gin.Context) {
	resp, err := h.service.Reconcile(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
