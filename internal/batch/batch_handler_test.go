package batch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-payroll/internal/batch"
	batcherrors "go-payroll/internal/batch/errors"
	"go-payroll/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type fakeBatchService struct {
	processFn     func(ctx context.Context, companyID, actorID string, req batch.Request) (batch.Result, error)
	multiEntityFn func(ctx context.Context, actorID string, req batch.MultiEntityRequest) []batch.EntityResult
	rollbackFn    func(ctx context.Context, companyID, actorID, batchID string) (batch.RollbackResponse, error)
}

func (f *fakeBatchService) Process(ctx context.Context, companyID, actorID string, req batch.Request) (batch.Result, error) {
	return f.processFn(ctx, companyID, actorID, req)
}

func (f *fakeBatchService) ProcessMultiEntity(ctx context.Context, actorID string, req batch.MultiEntityRequest) []batch.EntityResult {
	return f.multiEntityFn(ctx, actorID, req)
}

func (f *fakeBatchService) Rollback(ctx context.Context, companyID, actorID, batchID string) (batch.RollbackResponse, error) {
	return f.rollbackFn(ctx, companyID, actorID, batchID)
}

func (f *fakeBatchService) ExpireRecords(ctx context.Context) (int64, error) { return 0, nil }

func decode(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	assert.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestBatchHandler_Process(t *testing.T) {
	companyID := uuid.New().String()
	actorID := uuid.New().String()
	employeeID := uuid.New().String()

	t.Run("partial", func(t *testing.T) {
		svc := &fakeBatchService{
			processFn: func(ctx context.Context, cid, aid string, req batch.Request) (batch.Result, error) {
				assert.Equal(t, companyID, cid)
				assert.Equal(t, actorID, aid)
				assert.Equal(t, []string{employeeID}, req.EmployeeIDs)
				return batch.Result{Status: batch.StatusPartial, SuccessCount: 1, FailureCount: 1}, nil
			},
		}

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"employee_ids":["` + employeeID + `"],"period_start":"2024-05-01","period_end":"2024-05-31"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/payroll-batches", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("company_id", companyID)
		c.Set("user_id_validated", actorID)

		batch.NewHandler(svc).Process(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, decode(t, w.Body.Bytes()).Ok)
	})

	t.Run("aborted batch carries result", func(t *testing.T) {
		svc := &fakeBatchService{
			processFn: func(ctx context.Context, cid, aid string, req batch.Request) (batch.Result, error) {
				return batch.Result{Status: batch.StatusFailed, FailureCount: 1}, apperror.Wrap(context.DeadlineExceeded, apperror.CodeTransactionFailure, "rolled back", http.StatusInternalServerError)
			},
		}

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"employee_ids":["` + employeeID + `"],"period_start":"2024-05-01","period_end":"2024-05-31"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/payroll-batches", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		batch.NewHandler(svc).Process(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env := decode(t, w.Body.Bytes())
		assert.Equal(t, apperror.CodeTransactionFailure, env.Error.Code)
		var res batch.Result
		assert.NoError(t, json.Unmarshal(env.Error.Details, &res))
		assert.Equal(t, batch.StatusFailed, res.Status)
	})

	t.Run("missing employees", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/payroll-batches", strings.NewReader(`{"period_start":"2024-05-01","period_end":"2024-05-31"}`))
		c.Request.Header.Set("Content-Type", "application/json")

		batch.NewHandler(&fakeBatchService{}).Process(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBatchHandler_Rollback_Expired(t *testing.T) {
	id := uuid.New().String()
	svc := &fakeBatchService{
		rollbackFn: func(ctx context.Context, companyID, actorID, batchID string) (batch.RollbackResponse, error) {
			assert.Equal(t, id, batchID)
			return batch.RollbackResponse{}, batcherrors.ErrBatchNotFound
		},
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/payroll-batches/"+id+"/rollback", nil)
	c.Params = []gin.Param{{Key: "id", Value: id}}

	batch.NewHandler(svc).Rollback(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w.Body.Bytes())
	assert.Equal(t, "batch not found or rollback window expired", env.Error.Message)
}
