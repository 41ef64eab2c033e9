package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	batcherrors "go-payroll/internal/batch/errors"
	"go-payroll/internal/directory"
	directoryerrors "go-payroll/internal/directory/errors"
	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/payslip"
	payslipserrors "go-payroll/internal/payslip/errors"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/contextutil"
)

const dateLayout = "2006-01-02"

type Config struct {
	Timeout        time.Duration
	RollbackWindow time.Duration
	Workers        int
	EntityWorkers  int
	Now            func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Minute,
		RollbackWindow: 24 * time.Hour,
		Workers:        8,
		EntityWorkers:  4,
		Now:            time.Now,
	}
}

type Service interface {
	Process(ctx context.Context, companyID, actorID string, req Request) (Result, error)
	ProcessMultiEntity(ctx context.Context, actorID string, req MultiEntityRequest) []EntityResult
	Rollback(ctx context.Context, companyID, actorID, batchID string) (RollbackResponse, error)
	ExpireRecords(ctx context.Context) (int64, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	payslips  payslip.Repository
	directory directory.Repository
	pipeline  *payslip.Pipeline
	outbox    kafka.OutboxRepository
	locker    Locker
	cfg       Config
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	payslips payslip.Repository,
	dir directory.Repository,
	pipeline *payslip.Pipeline,
	outboxRepo kafka.OutboxRepository,
	locker Locker,
	cfg Config,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("batch.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("batch.service")
	}

	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RollbackWindow <= 0 {
		cfg.RollbackWindow = def.RollbackWindow
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.EntityWorkers <= 0 {
		cfg.EntityWorkers = def.EntityWorkers
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}

	return &service{
		db:        db,
		repo:      repo,
		payslips:  payslips,
		directory: dir,
		pipeline:  pipeline,
		outbox:    outboxRepo,
		locker:    locker,
		cfg:       cfg,
		logger:    l,
	}
}

// computed is one employee's slot in the fan-out. Exactly one of slip or
// failure is set once the slot has been processed.
type computed struct {
	employeeID string
	slip       *payslip.Payslip
	failure    *ItemError
}

// Process runs the pipeline for every requested employee and persists all
// resulting payslips in one transaction. Business failures skip the
// employee; anything else aborts the whole batch with status FAILED.
func (s *service) Process(ctx context.Context, companyID, actorID string, req Request) (Result, error) {
	rid := contextutil.GetRequestID(ctx)
	batchID := uuid.New()
	result := Result{
		BatchID:    batchID.String(),
		CompanyID:  companyID,
		PayslipIDs: []string{},
		Errors:     []ItemError{},
	}

	if _, err := uuid.Parse(companyID); err != nil {
		return result, apperror.InvalidField("company_id")
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return result, apperror.InvalidField("actor_id")
	}
	start, end, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return result, err
	}

	slots, ids := s.dedupe(req.EmployeeIDs)
	if len(slots) == 0 {
		return result, batcherrors.ErrEmptyEmployeeList
	}

	lock, err := s.locker.Obtain(ctx, lockKey(companyID, req.PeriodStart, req.PeriodEnd), s.cfg.Timeout+time.Minute)
	if err != nil {
		return result, err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release batch lock failed", zap.String("batch_id", batchID.String()), zap.Error(err))
		}
	}()

	bctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	s.logger.Info("batch started",
		zap.String("request_id", rid),
		zap.String("batch_id", batchID.String()),
		zap.String("company_id", companyID),
		zap.Int("employees", len(slots)),
	)

	if err := s.calculate(bctx, companyID, actor, req, ids, slots); err != nil {
		return s.fail(bctx, result, slots, err), s.failure(bctx, err)
	}

	committed, err := s.persist(bctx, companyID, actor, batchID, start, end, req, slots, &result)
	if err != nil {
		return s.fail(bctx, result, slots, err), s.failure(bctx, err)
	}

	s.logger.Info("batch finished",
		zap.String("request_id", rid),
		zap.String("batch_id", batchID.String()),
		zap.String("status", result.Status),
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailureCount),
		zap.Bool("committed", committed),
	)
	return result, nil
}

func (s *service) dedupe(employeeIDs []string) ([]*computed, []string) {
	seen := make(map[string]struct{}, len(employeeIDs))
	slots := make([]*computed, 0, len(employeeIDs))
	ids := make([]string, 0, len(employeeIDs))
	for _, raw := range employeeIDs {
		id := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		slot := &computed{employeeID: id}
		if _, err := uuid.Parse(id); err != nil {
			slot.failure = itemError(id, directoryerrors.ErrInvalidEmployeeID)
		} else {
			ids = append(ids, id)
		}
		slots = append(slots, slot)
	}
	return slots, ids
}

// calculate loads snapshots once and fans the pure pipeline out across
// employees. Only system errors are returned.
func (s *service) calculate(ctx context.Context, companyID string, actor uuid.UUID, req Request, ids []string, slots []*computed) error {
	snaps, err := s.directory.FindByEmployees(ctx, companyID, ids)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, slot := range slots {
		if slot.failure != nil {
			continue
		}
		slot := slot
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			snap, ok := snaps[slot.employeeID]
			if !ok {
				slot.failure = itemError(slot.employeeID, directoryerrors.ErrEmployeeNotFound)
				return nil
			}

			in := buildInput(slot.employeeID, req)
			if err := payslip.ResolvePriorYTD(gctx, s.payslips, &snap, &in); err != nil {
				return err
			}

			slip, err := s.pipeline.Calculate(snap, in, actor, s.cfg.Now())
			if err != nil {
				if isBusiness(err) {
					slot.failure = itemError(slot.employeeID, err)
					return nil
				}
				return err
			}
			slot.slip = slip
			return nil
		})
	}
	return g.Wait()
}

// persist stages every computed payslip in one transaction together with
// the batch record and its completion event.
func (s *service) persist(
	ctx context.Context,
	companyID string,
	actor, batchID uuid.UUID,
	start, end time.Time,
	req Request,
	slots []*computed,
	result *Result,
) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	qtx := s.payslips.WithTx(tx)
	for _, slot := range slots {
		if slot.slip == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		exists, err := qtx.ExistsActive(ctx, companyID, slot.employeeID, slot.slip.PeriodStart, slot.slip.PeriodEnd)
		if err != nil {
			return false, err
		}
		if exists {
			slot.failure = itemError(slot.employeeID, payslipserrors.ErrPayslipExists)
			slot.slip = nil
			continue
		}

		slot.slip.BatchID = &batchID
		if err := qtx.Create(ctx, slot.slip); err != nil {
			if errors.Is(err, payslipserrors.ErrPayslipExists) {
				slot.failure = itemError(slot.employeeID, err)
				slot.slip = nil
				continue
			}
			return false, err
		}
	}

	summarize(result, slots)
	if result.SuccessCount == 0 {
		// nothing to keep; the transaction rolls back with the defer
		result.Status = StatusFailed
		return false, nil
	}

	now := s.cfg.Now().UTC()
	expires := now.Add(s.cfg.RollbackWindow)
	rec := &Record{
		ID:           batchID,
		CompanyID:    uuid.MustParse(companyID),
		PeriodStart:  start,
		PeriodEnd:    end,
		Status:       RecordCommitted,
		PayslipIDs:   result.PayslipIDs,
		Errors:       result.Errors,
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
		TotalAmount:  decimal.RequireFromString(result.TotalAmount),
		CreatedBy:    actor,
		CommittedAt:  now,
		ExpiresAt:    expires,
	}
	if req.PayrollRunID != "" {
		runID := uuid.MustParse(req.PayrollRunID)
		rec.PayrollRunID = &runID
	}
	if err := s.repo.WithTx(tx).Create(ctx, rec); err != nil {
		return false, err
	}

	if s.outbox != nil {
		event, err := kafka.NewOutboxEvent(ctx, "payroll_batch", batchID.String(), "payroll.batch.completed", events.PayrollBatchCompletedTopic, events.PayrollBatchCompletedEvent{
			EventType:    "payroll.batch.completed",
			BatchID:      batchID.String(),
			CompanyID:    companyID,
			Status:       result.Status,
			SuccessCount: result.SuccessCount,
			FailureCount: result.FailureCount,
			TotalAmount:  result.TotalAmount,
			PayslipIDs:   result.PayslipIDs,
			OccurredAt:   now,
		})
		if err != nil {
			return false, err
		}
		if err := s.outbox.WithTx(tx).Create(ctx, event); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	exp := expires.Format(time.RFC3339)
	result.ExpiresAt = &exp
	return true, nil
}

// fail rewrites the result of an aborted batch: nothing was persisted, so
// no payslip counts as a success.
func (s *service) fail(ctx context.Context, result Result, slots []*computed, cause error) Result {
	result.Status = StatusFailed
	result.SuccessCount = 0
	result.PayslipIDs = []string{}
	result.TotalAmount = "0"
	result.Totals = nil
	result.ExpiresAt = nil

	errs := []ItemError{}
	for _, slot := range slots {
		if slot.failure != nil {
			errs = append(errs, *slot.failure)
		}
	}
	code := apperror.CodeTransactionFailure
	message := "batch aborted: " + cause.Error()
	if ctx.Err() != nil {
		message = batcherrors.ErrBatchTimeout.Message
	}
	errs = append(errs, ItemError{Code: code, Message: message})
	result.Errors = errs
	result.FailureCount = len(slots)

	s.logger.Error("batch failed",
		zap.String("batch_id", result.BatchID),
		zap.String("company_id", result.CompanyID),
		zap.Error(cause),
	)
	return result
}

func (s *service) failure(ctx context.Context, cause error) error {
	if ctx.Err() != nil {
		return batcherrors.ErrBatchTimeout
	}
	return apperror.Wrap(cause, apperror.CodeTransactionFailure, apperror.ErrTransactionFailed.Message, apperror.ErrTransactionFailed.HTTPStatus)
}

// ProcessMultiEntity runs one independent batch per organization. One
// organization failing never affects another.
func (s *service) ProcessMultiEntity(ctx context.Context, actorID string, req MultiEntityRequest) []EntityResult {
	results := make([]EntityResult, len(req.Entities))

	var g errgroup.Group
	g.SetLimit(s.cfg.EntityWorkers)
	for i, entity := range req.Entities {
		i, entity := i, entity
		g.Go(func() error {
			res, err := s.Process(ctx, entity.CompanyID, actorID, entity.Request)
			results[i] = EntityResult{CompanyID: entity.CompanyID, Result: &res}
			if err != nil {
				results[i].Error = itemError("", err)
				if res.Status != StatusFailed {
					results[i].Result = nil
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Rollback soft-voids every payslip of a committed batch inside its own
// transaction. Unknown, expired and already rolled back batches all report
// ErrBatchNotFound.
func (s *service) Rollback(ctx context.Context, companyID, actorID, batchID string) (RollbackResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	if _, err := uuid.Parse(batchID); err != nil {
		return RollbackResponse{}, batcherrors.ErrInvalidBatchID
	}
	if _, err := uuid.Parse(companyID); err != nil {
		return RollbackResponse{}, apperror.InvalidField("company_id")
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return RollbackResponse{}, apperror.InvalidField("actor_id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RollbackResponse{}, err
	}
	defer tx.Rollback()

	now := s.cfg.Now().UTC()
	qtx := s.repo.WithTx(tx)

	rec, err := qtx.FindRollbackable(ctx, companyID, batchID, now)
	if err != nil {
		return RollbackResponse{}, err
	}

	// amendments carry the batch id but are not in rec.PayslipIDs
	voided, err := s.payslips.WithTx(tx).VoidByBatch(ctx, companyID, rec.ID.String(), fmt.Sprintf("batch %s rolled back", batchID), now)
	if err != nil {
		s.logger.Error("rollback void payslips failed", zap.String("request_id", rid), zap.String("batch_id", batchID), zap.Error(err))
		return RollbackResponse{}, err
	}

	ok, err := qtx.MarkRolledBack(ctx, companyID, batchID, actor, now)
	if err != nil {
		return RollbackResponse{}, err
	}
	if !ok {
		return RollbackResponse{}, batcherrors.ErrBatchNotFound
	}

	if err := tx.Commit(); err != nil {
		return RollbackResponse{}, apperror.Wrap(err, apperror.CodeTransactionFailure, apperror.ErrTransactionFailed.Message, apperror.ErrTransactionFailed.HTTPStatus)
	}

	s.logger.Info("batch rolled back",
		zap.String("request_id", rid),
		zap.String("batch_id", batchID),
		zap.Int64("voided", voided),
	)
	return RollbackResponse{
		BatchID:      batchID,
		Status:       RecordRolledBack,
		VoidedCount:  voided,
		RolledBackAt: now.Format(time.RFC3339),
	}, nil
}

func (s *service) ExpireRecords(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireBefore(ctx, s.cfg.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("batch records expired", zap.Int64("count", n))
	}
	return n, nil
}

func summarize(result *Result, slots []*computed) {
	total := decimal.Zero
	totals := map[string]decimal.Decimal{}
	for _, slot := range slots {
		switch {
		case slot.slip != nil:
			result.SuccessCount++
			result.PayslipIDs = append(result.PayslipIDs, slot.slip.ID.String())
			total = total.Add(slot.slip.NetPay)
			totals[slot.slip.Currency] = totals[slot.slip.Currency].Add(slot.slip.NetPay)
		case slot.failure != nil:
			result.FailureCount++
			result.Errors = append(result.Errors, *slot.failure)
		}
	}

	result.TotalAmount = total.String()
	result.Totals = make(map[string]string, len(totals))
	for cur, v := range totals {
		result.Totals[cur] = v.StringFixed(2)
	}

	switch {
	case result.FailureCount == 0:
		result.Status = StatusSuccess
	case result.SuccessCount == 0:
		result.Status = StatusFailed
	default:
		result.Status = StatusPartial
	}
}

func buildInput(employeeID string, req Request) payslip.Input {
	in := payslip.Input{
		EmployeeID:   employeeID,
		PayrollRunID: req.PayrollRunID,
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		PayDate:      req.PayDate,
	}
	if extra, ok := req.Inputs[employeeID]; ok {
		in.OvertimeHours = extra.OvertimeHours
		in.OvertimeMultiplier = extra.OvertimeMultiplier
		in.Bonuses = extra.Bonuses
		in.Allowances = extra.Allowances
		in.Deductions = extra.Deductions
	}
	return in
}

func parsePeriod(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, batcherrors.ErrInvalidPeriod
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil || end.Before(start) {
		return time.Time{}, time.Time{}, batcherrors.ErrInvalidPeriod
	}
	return start, end, nil
}

// isBusiness reports whether err is a per-employee failure the batch can
// skip past.
func isBusiness(err error) bool {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus < http.StatusInternalServerError
	}
	return false
}

func itemError(employeeID string, err error) *ItemError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return &ItemError{EmployeeID: employeeID, Code: appErr.Code, Message: appErr.Message}
	}
	return &ItemError{EmployeeID: employeeID, Code: apperror.CodeInternalError, Message: err.Error()}
}
