package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-payroll/internal/middleware"
	"go-payroll/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRequestID_PropagatesHeader(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ContextLogger(zap.NewNop()))
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = contextutil.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	_, err := uuid.Parse(w.Header().Get(middleware.RequestIDHeader))
	assert.NoError(t, err)
}

func TestTenantContext(t *testing.T) {
	r := gin.New()
	r.Use(middleware.TenantContext())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("company_id")+"|"+c.GetString("user_id_validated"))
	})

	companyID, actorID := uuid.New().String(), uuid.New().String()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Company-ID", companyID)
	req.Header.Set("X-Actor-ID", actorID)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, companyID+"|"+actorID, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Company-ID", "acme")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitByIP(t *testing.T) {
	r := gin.New()
	r.POST("/verify", middleware.RateLimitByIP(0.001, 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitByCompany_SeparateBuckets(t *testing.T) {
	r := gin.New()
	r.Use(middleware.TenantContext())
	r.POST("/batches", middleware.RateLimitByCompany(0.001, 1), func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func(companyID string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/batches", nil)
		req.Header.Set("X-Company-ID", companyID)
		req.Header.Set("X-Actor-ID", uuid.New().String())
		r.ServeHTTP(w, req)
		return w.Code
	}

	a, b := uuid.New().String(), uuid.New().String()
	assert.Equal(t, http.StatusCreated, send(a))
	assert.Equal(t, http.StatusTooManyRequests, send(a))
	assert.Equal(t, http.StatusCreated, send(b))
}

func idempotencyRouter(rdb *redis.Client) (*gin.Engine, *int) {
	calls := 0
	r := gin.New()
	r.Use(middleware.TenantContext())
	r.POST("/runs", middleware.Idempotency(rdb), func(c *gin.Context) {
		calls++
		c.Status(http.StatusCreated)
	})
	return r, &calls
}

func idempotentRequest(companyID, actorID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/runs", nil)
	req.Header.Set("X-Company-ID", companyID)
	req.Header.Set("X-Actor-ID", actorID)
	req.Header.Set("Idempotency-Key", "k1")
	return req
}

func TestIdempotency(t *testing.T) {
	companyID, actorID := uuid.New().String(), uuid.New().String()
	cacheKey := "idemp:/runs:" + companyID + ":" + actorID + ":k1"

	t.Run("first request acquires lock", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(true)
		r, calls := idempotencyRouter(rdb)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, idempotentRequest(companyID, actorID))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, *calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cached response is replayed", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).SetVal(`{"status":"APPROVED"}`)
		r, calls := idempotencyRouter(rdb)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, idempotentRequest(companyID, actorID))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "APPROVED")
		assert.Equal(t, 0, *calls)
	})

	t.Run("in-flight duplicate conflicts", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(false)
		r, calls := idempotencyRouter(rdb)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, idempotentRequest(companyID, actorID))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 0, *calls)
	})
}
