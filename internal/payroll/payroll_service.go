package payroll

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-payroll/internal/bankfile"
	"go-payroll/internal/batch"
	"go-payroll/internal/ledger"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/payslip"
	payslipserrors "go-payroll/internal/payslip/errors"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/contextutil"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

type Service interface {
	Create(ctx context.Context, companyID, actorID string, req CreateRunRequest) (RunResponse, error)
	GetAll(ctx context.Context, companyID string, filter GetRunsFilterRequest) ([]RunResponse, error)
	GetByID(ctx context.Context, companyID, id string) (RunResponse, error)
	GetBreakdown(ctx context.Context, companyID, id string) (BreakdownResponse, error)
	Process(ctx context.Context, companyID, actorID, id string, req ProcessRequest) (ProcessResponse, error)
	Recalculate(ctx context.Context, companyID, actorID, id string) (RunResponse, error)
	Submit(ctx context.Context, companyID, actorID, id string) (RunResponse, error)
	Approve(ctx context.Context, companyID, actorID, id string) (ApproveResponse, error)
	MarkAsPaid(ctx context.Context, companyID, actorID, id string) (RunResponse, error)
	Complete(ctx context.Context, companyID, actorID, id string) (RunResponse, error)
	Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (RunResponse, error)
	GenerateBankFile(ctx context.Context, companyID, actorID, id string, req bankfile.GenerateRequest) (bankfile.Response, error)
	ListBankFiles(ctx context.Context, companyID, id string) ([]bankfile.Response, error)
	Journal(ctx context.Context, companyID, id string) (ledger.EntryResponse, error)
	ExportJournal(ctx context.Context, companyID, id, format string) (ledger.Export, error)
	Reconcile(ctx context.Context, companyID, id string) (ledger.ReconcileReport, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	payslips  payslip.Repository
	issuer    payslip.Service
	batches   batch.Service
	bankfiles bankfile.Service
	ledger    ledger.Service
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	payslips payslip.Repository,
	issuer payslip.Service,
	batches batch.Service,
	bankfiles bankfile.Service,
	ledgerService ledger.Service,
	now func() time.Time,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("payroll.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("payroll.service")
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		db:        db,
		repo:      repo,
		payslips:  payslips,
		issuer:    issuer,
		batches:   batches,
		bankfiles: bankfiles,
		ledger:    ledgerService,
		now:       now,
		logger:    l,
	}
}

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreateRunRequest) (RunResponse, error) {
	companyUUID, actor, err := parseIDs(companyID, actorID)
	if err != nil {
		return RunResponse{}, err
	}
	start, end, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return RunResponse{}, err
	}
	payDate := end
	if req.PayDate != "" {
		payDate, err = time.Parse(dateLayout, req.PayDate)
		if err != nil {
			return RunResponse{}, payrollerrors.ErrInvalidDateFormat
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Payroll %s to %s", start.Format(dateLayout), end.Format(dateLayout))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	exists, err := qtx.HasOpenRunForPeriod(ctx, companyID, start, end, nil)
	if err != nil {
		return RunResponse{}, err
	}
	if exists {
		return RunResponse{}, payrollerrors.ErrRunExists
	}

	now := s.now().UTC()
	run := &PayrollRun{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		Name:        name,
		PeriodStart: start,
		PeriodEnd:   end,
		PayDate:     payDate,
		Status:      StatusDraft,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := qtx.Create(ctx, run); err != nil {
		return RunResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return RunResponse{}, apperror.Wrap(err, apperror.CodeTransactionFailure, apperror.ErrTransactionFailed.Message, apperror.ErrTransactionFailed.HTTPStatus)
	}
	return MapToResponse(run), nil
}

func (s *service) GetAll(ctx context.Context, companyID string, filter GetRunsFilterRequest) ([]RunResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return nil, apperror.InvalidField("company_id")
	}
	q := RunQueryFilter{Status: strings.ToUpper(strings.TrimSpace(filter.Status))}
	if q.Status != "" && !validStatus(q.Status) {
		return nil, payrollerrors.ErrInvalidStatusFilter
	}
	var err error
	if q.From, err = parseOptionalDate(filter.From); err != nil {
		return nil, err
	}
	if q.To, err = parseOptionalDate(filter.To); err != nil {
		return nil, err
	}

	runs, err := s.repo.FindAllByCompany(ctx, companyID, q)
	if err != nil {
		return nil, err
	}
	out := make([]RunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, MapToResponse(&runs[i]))
	}
	return out, nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (RunResponse, error) {
	run, err := s.load(ctx, companyID, id)
	if err != nil {
		return RunResponse{}, err
	}
	return MapToResponse(run), nil
}

func (s *service) GetBreakdown(ctx context.Context, companyID, id string) (BreakdownResponse, error) {
	run, err := s.load(ctx, companyID, id)
	if err != nil {
		return BreakdownResponse{}, err
	}
	return toBreakdownResponse(run), nil
}

// Process calculates the requested employees into the run through one
// payroll batch. The run sits in PROCESSING meanwhile and lands in REVIEW
// when the batch kept at least one payslip; otherwise it returns to the
// status it came from with the failures logged.
func (s *service) Process(ctx context.Context, companyID, actorID, id string, req ProcessRequest) (ProcessResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	if _, _, err := parseIDs(companyID, actorID); err != nil {
		return ProcessResponse{}, err
	}
	run, err := s.load(ctx, companyID, id)
	if err != nil {
		return ProcessResponse{}, err
	}
	prior := run.Status
	if !CanTransition(prior, StatusProcessing) {
		return ProcessResponse{}, payrollerrors.ErrInvalidStatusTransition
	}

	claimed, err := s.repo.CompareAndSetStatus(ctx, companyID, id, []string{prior}, StatusProcessing, s.now().UTC())
	if err != nil {
		return ProcessResponse{}, err
	}
	if !claimed {
		return ProcessResponse{}, payrollerrors.ErrRunBusy
	}

	result, batchErr := s.batches.Process(ctx, companyID, actorID, batch.Request{
		EmployeeIDs:  req.EmployeeIDs,
		PayrollRunID: id,
		PeriodStart:  run.PeriodStart.Format(dateLayout),
		PeriodEnd:    run.PeriodEnd.Format(dateLayout),
		PayDate:      run.PayDate.Format(dateLayout),
		Inputs:       req.Inputs,
	})

	// the run must leave PROCESSING even when the caller has gone away
	fctx := context.WithoutCancel(ctx)
	next := StatusReview
	if batchErr != nil || result.Status == batch.StatusFailed {
		next = prior
	}

	updated, err := s.mutate(fctx, companyID, id, func(r *PayrollRun, now time.Time) error {
		if r.Status != StatusProcessing {
			return payrollerrors.ErrInvalidStatusTransition
		}
		r.Status = next
		if batchErr == nil && result.Status != batch.StatusFailed {
			batchID := uuid.MustParse(result.BatchID)
			r.LastBatchID = &batchID
		}
		for _, e := range result.Errors {
			r.Errors = append(r.Errors, Issue{
				Code:       e.Code,
				EmployeeID: e.EmployeeID,
				BatchID:    result.BatchID,
				Message:    e.Message,
				At:         now,
			})
		}
		if batchErr != nil {
			r.Errors = append(r.Errors, Issue{
				Code:    errorCode(batchErr),
				BatchID: result.BatchID,
				Message: batchErr.Error(),
				At:      now,
			})
		}
		return s.refresh(fctx, r, now)
	})
	if err != nil {
		s.logger.Error("finalize payroll run processing failed",
			zap.String("request_id", rid),
			zap.String("payroll_run_id", id),
			zap.Error(err),
		)
		return ProcessResponse{}, err
	}

	s.logger.Info("payroll run processed",
		zap.String("request_id", rid),
		zap.String("payroll_run_id", id),
		zap.String("batch_id", result.BatchID),
		zap.String("batch_status", result.Status),
		zap.String("run_status", updated.Status),
	)
	if batchErr != nil {
		return ProcessResponse{Run: MapToResponse(updated), Batch: result}, batchErr
	}
	return ProcessResponse{Run: MapToResponse(updated), Batch: result}, nil
}

func (s *service) Recalculate(ctx context.Context, companyID, actorID, id string) (RunResponse, error) {
	if _, _, err := parseIDs(companyID, actorID); err != nil {
		return RunResponse{}, err
	}
	run, err := s.mutate(ctx, companyID, id, func(r *PayrollRun, now time.Time) error {
		switch r.Status {
		case StatusDraft, StatusReview, StatusApproved:
		default:
			return payrollerrors.ErrInvalidStatusTransition
		}
		return s.refresh(ctx, r, now)
	})
	if err != nil {
		return RunResponse{}, err
	}
	return MapToResponse(run), nil
}

func (s *service) Submit(ctx context.Context, companyID, actorID, id string) (RunResponse, error) {
	if _, _, err := parseIDs(companyID, actorID); err != nil {
		return RunResponse{}, err
	}
	run, err := s.mutate(ctx, companyID, id, func(r *PayrollRun, now time.Time) error {
		if r.Status != StatusDraft {
			return payrollerrors.ErrInvalidStatusTransition
		}
		if err := s.refresh(ctx, r, now); err != nil {
			return err
		}
		if r.PayslipCount == 0 {
			return payrollerrors.ErrNoPayslips
		}
		r.Status = StatusReview
		return nil
	})
	if err != nil {
		return RunResponse{}, err
	}
	return MapToResponse(run), nil
}

// Approve issues the run's draft payslips and freezes the run. Approval is
// refused while any payslip still waits for a negative-net override.
func (s *service) Approve(ctx context.Context, companyID, actorID, id string) (ApproveResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	_, actor, err := parseIDs(companyID, actorID)
	if err != nil {
		return ApproveResponse{}, err
	}
	run, err := s.load(ctx, companyID, id)
	if err != nil {
		return ApproveResponse{}, err
	}
	if !CanTransition(run.Status, StatusApproved) {
		return ApproveResponse{}, payrollerrors.ErrInvalidStatusTransition
	}

	slips, err := s.payslips.FindActiveByRun(ctx, companyID, id)
	if err != nil {
		return ApproveResponse{}, err
	}
	if len(slips) == 0 {
		return ApproveResponse{}, payrollerrors.ErrNoPayslips
	}
	for _, p := range slips {
		if p.RequiresOverride && p.OverrideBy == nil {
			return ApproveResponse{}, payrollerrors.ErrOverridePending
		}
	}

	var issued int
	updated, err := s.mutateTx(ctx, companyID, id, func(tx *sql.Tx, r *PayrollRun, now time.Time) error {
		if !CanTransition(r.Status, StatusApproved) {
			return payrollerrors.ErrInvalidStatusTransition
		}
		n, err := s.issuer.IssueForRun(ctx, tx, companyID, actorID, id)
		if errors.Is(err, payslipserrors.ErrOverrideRequired) {
			return payrollerrors.ErrOverridePending
		}
		if err != nil {
			return err
		}
		issued = n

		r.Status = StatusApproved
		r.ApprovedBy = &actor
		r.ApprovedAt = &now
		return s.refreshTx(ctx, tx, r, now)
	})
	if err != nil {
		return ApproveResponse{}, err
	}

	s.logger.Info("payroll run approved",
		zap.String("request_id", rid),
		zap.String("payroll_run_id", id),
		zap.Int("issued_payslips", issued),
	)
	return ApproveResponse{Run: MapToResponse(updated), IssuedPayslips: issued}, nil
}

func (s *service) MarkAsPaid(ctx context.Context, companyID, actorID, id string) (RunResponse, error) {
	_, actor, err := parseIDs(companyID, actorID)
	if err != nil {
		return RunResponse{}, err
	}
	run, err := s.mutate(ctx, companyID, id, func(r *PayrollRun, now time.Time) error {
		if !CanTransition(r.Status, StatusPaid) {
			return payrollerrors.ErrInvalidStatusTransition
		}
		if r.BankFileCount == 0 {
			r.Warnings = append(r.Warnings, Issue{
				Code:    "NO_BANK_FILE",
				Message: "run marked paid without a generated bank file",
				At:      now,
			})
		}
		r.Status = StatusPaid
		r.PaidBy = &actor
		r.PaidAt = &now
		return nil
	})
	if err != nil {
		return RunResponse{}, err
	}
	return MapToResponse(run), nil
}

// Complete closes a paid run once its journal entry exists and reconciles
// with the payslips.
func (s *service) Complete(ctx context.Context, companyID, actorID, id string) (RunResponse, error) {
	if _, _, err := parseIDs(companyID, actorID); err != nil {
		return RunResponse{}, err
	}
	run, err := s.load(ctx, companyID, id)
	if err != nil {
		return RunResponse{}, err
	}
	if !CanTransition(run.Status, StatusCompleted) {
		return RunResponse{}, payrollerrors.ErrInvalidStatusTransition
	}

	entry, err := s.ledger.GenerateJournalEntry(ctx, companyID, id)
	if err != nil {
		return RunResponse{}, err
	}
	report, err := s.ledger.Reconcile(ctx, companyID, id)
	if err != nil {
		return RunResponse{}, err
	}
	if !report.Reconciled {
		s.logger.Warn("payroll run does not reconcile",
			zap.String("request_id", contextutil.GetRequestID(ctx)),
			zap.String("payroll_run_id", id),
			zap.Strings("issues", report.Issues),
		)
		return RunResponse{}, payrollerrors.ErrNotReconciled
	}

	updated, err := s.mutate(ctx, companyID, id, func(r *PayrollRun, now time.Time) error {
		if !CanTransition(r.Status, StatusCompleted) {
			return payrollerrors.ErrInvalidStatusTransition
		}
		number := entry.Number
		r.JournalEntryNumber = &number
		r.Status = StatusCompleted
		r.CompletedAt = &now
		return nil
	})
	if err != nil {
		return RunResponse{}, err
	}
	return MapToResponse(updated), nil
}

// Cancel voids every active payslip of the run together with the status
// change.
func (s *service) Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (RunResponse, error) {
	_, actor, err := parseIDs(companyID, actorID)
	if err != nil {
		return RunResponse{}, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return RunResponse{}, payrollerrors.ErrCancelReasonRequired
	}
	if _, err := uuid.Parse(id); err != nil {
		return RunResponse{}, payrollerrors.ErrInvalidRunID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	run, err := qtx.FindForUpdate(ctx, companyID, id)
	if err != nil {
		return RunResponse{}, err
	}
	if !CanTransition(run.Status, StatusCancelled) {
		return RunResponse{}, payrollerrors.ErrInvalidStatusTransition
	}

	ptx := s.payslips.WithTx(tx)
	slips, err := ptx.FindActiveByRun(ctx, companyID, id)
	if err != nil {
		return RunResponse{}, err
	}
	ids := make([]string, 0, len(slips))
	for _, p := range slips {
		ids = append(ids, p.ID.String())
	}

	now := s.now().UTC()
	voided, err := ptx.VoidMany(ctx, companyID, ids, "payroll run cancelled: "+reason, now)
	if err != nil {
		return RunResponse{}, err
	}

	run.Status = StatusCancelled
	run.CancelledBy = &actor
	run.CancelledAt = &now
	run.CancelReason = &reason
	run.UpdatedAt = now
	applySummary(run, Summarize(nil, now))
	if err := qtx.Update(ctx, run); err != nil {
		return RunResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return RunResponse{}, apperror.Wrap(err, apperror.CodeTransactionFailure, apperror.ErrTransactionFailed.Message, apperror.ErrTransactionFailed.HTTPStatus)
	}

	s.logger.Info("payroll run cancelled",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("payroll_run_id", id),
		zap.Int64("voided_payslips", voided),
	)
	return MapToResponse(run), nil
}

func (s *service) GenerateBankFile(ctx context.Context, companyID, actorID, id string, req bankfile.GenerateRequest) (bankfile.Response, error) {
	if _, _, err := parseIDs(companyID, actorID); err != nil {
		return bankfile.Response{}, err
	}
	run, err := s.load(ctx, companyID, id)
	if err != nil {
		return bankfile.Response{}, err
	}
	if run.Status != StatusApproved && run.Status != StatusPaid {
		return bankfile.Response{}, payrollerrors.ErrInvalidStatusTransition
	}

	resp, err := s.bankfiles.GenerateForRun(ctx, companyID, actorID, id, req)
	if err != nil {
		return resp, err
	}

	if _, err := s.mutate(ctx, companyID, id, func(r *PayrollRun, now time.Time) error {
		r.BankFileCount++
		for _, rej := range resp.Rejected {
			r.Warnings = append(r.Warnings, Issue{
				Code:       rej.Code,
				EmployeeID: rej.EmployeeID,
				Message:    fmt.Sprintf("%s: %s", rej.Field, rej.Message),
				At:         now,
			})
		}
		return nil
	}); err != nil {
		// the file is stored and announced already; only the counter lags
		s.logger.Warn("record bank file on payroll run failed",
			zap.String("request_id", contextutil.GetRequestID(ctx)),
			zap.String("payroll_run_id", id),
			zap.String("bank_file_id", resp.ID),
			zap.Error(err),
		)
	}
	return resp, nil
}

func (s *service) ListBankFiles(ctx context.Context, companyID, id string) ([]bankfile.Response, error) {
	if _, err := s.load(ctx, companyID, id); err != nil {
		return nil, err
	}
	return s.bankfiles.ListForRun(ctx, companyID, id)
}

// Journal returns the run's journal entry, generating it on first use.
func (s *service) Journal(ctx context.Context, companyID, id string) (ledger.EntryResponse, error) {
	run, err := s.loadSettled(ctx, companyID, id)
	if err != nil {
		return ledger.EntryResponse{}, err
	}
	entry, err := s.ledger.GenerateJournalEntry(ctx, companyID, id)
	if err != nil {
		return ledger.EntryResponse{}, err
	}
	if run.JournalEntryNumber == nil {
		if _, err := s.mutate(ctx, companyID, id, func(r *PayrollRun, now time.Time) error {
			number := entry.Number
			r.JournalEntryNumber = &number
			return nil
		}); err != nil {
			return ledger.EntryResponse{}, err
		}
	}
	return ledger.ToEntryResponse(*entry), nil
}

func (s *service) ExportJournal(ctx context.Context, companyID, id, format string) (ledger.Export, error) {
	if _, err := s.loadSettled(ctx, companyID, id); err != nil {
		return ledger.Export{}, err
	}
	return s.ledger.Export(ctx, companyID, id, format)
}

func (s *service) Reconcile(ctx context.Context, companyID, id string) (ledger.ReconcileReport, error) {
	if _, err := s.loadSettled(ctx, companyID, id); err != nil {
		return ledger.ReconcileReport{}, err
	}
	return s.ledger.Reconcile(ctx, companyID, id)
}

func (s *service) load(ctx context.Context, companyID, id string) (*PayrollRun, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return nil, apperror.InvalidField("company_id")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, payrollerrors.ErrInvalidRunID
	}
	return s.repo.FindByIDAndCompany(ctx, companyID, id)
}

// loadSettled admits runs whose payslips are issued.
func (s *service) loadSettled(ctx context.Context, companyID, id string) (*PayrollRun, error) {
	run, err := s.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	switch run.Status {
	case StatusApproved, StatusPaid, StatusCompleted:
		return run, nil
	}
	return nil, payrollerrors.ErrInvalidStatusTransition
}

// mutate applies fn to the locked run and saves it in one transaction.
func (s *service) mutate(ctx context.Context, companyID, id string, fn func(r *PayrollRun, now time.Time) error) (*PayrollRun, error) {
	return s.mutateTx(ctx, companyID, id, func(_ *sql.Tx, r *PayrollRun, now time.Time) error {
		return fn(r, now)
	})
}

// mutateTx is mutate for steps that write other tables in the same
// transaction as the run.
func (s *service) mutateTx(ctx context.Context, companyID, id string, fn func(tx *sql.Tx, r *PayrollRun, now time.Time) error) (*PayrollRun, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return nil, apperror.InvalidField("company_id")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, payrollerrors.ErrInvalidRunID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	run, err := qtx.FindForUpdate(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := fn(tx, run, now); err != nil {
		return nil, err
	}
	run.UpdatedAt = now
	if err := qtx.Update(ctx, run); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeTransactionFailure, apperror.ErrTransactionFailed.Message, apperror.ErrTransactionFailed.HTTPStatus)
	}
	return run, nil
}

// refresh recomputes totals and breakdowns from the run's active payslips.
func (s *service) refresh(ctx context.Context, r *PayrollRun, now time.Time) error {
	return s.refreshTx(ctx, nil, r, now)
}

// refreshTx recomputes the summary reading payslips through tx, so writes
// made earlier in the same transaction are visible.
func (s *service) refreshTx(ctx context.Context, tx *sql.Tx, r *PayrollRun, now time.Time) error {
	slips, err := s.payslips.WithTx(tx).FindActiveByRun(ctx, r.CompanyID.String(), r.ID.String())
	if err != nil {
		return err
	}
	applySummary(r, Summarize(slips, now))
	return nil
}

func applySummary(r *PayrollRun, sum Summary) {
	r.PayslipCount = sum.PayslipCount
	r.Currency = sum.Currency
	r.Totals = sum.Totals
	r.Breakdowns = sum.Breakdowns
	r.Warnings = keepRunWarnings(r.Warnings, sum.Warnings)
}

// keepRunWarnings replaces payslip-derived warnings and keeps the ones the
// run recorded itself.
func keepRunWarnings(existing, derived []Issue) []Issue {
	out := []Issue{}
	for _, w := range existing {
		if w.PayslipID == "" && w.Code != "MULTI_CURRENCY" {
			out = append(out, w)
		}
	}
	return append(out, derived...)
}

func parseIDs(companyID, actorID string) (uuid.UUID, uuid.UUID, error) {
	company, err := uuid.Parse(companyID)
	if err != nil {
		return uuid.Nil, uuid.Nil, apperror.InvalidField("company_id")
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, uuid.Nil, apperror.InvalidField("actor_id")
	}
	return company, actor, nil
}

func parsePeriod(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, payrollerrors.ErrInvalidDateFormat
	}
	end, err := time.Parse(dateLayout, rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, payrollerrors.ErrInvalidDateFormat
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, payrollerrors.ErrInvalidDateRange
	}
	return start, end, nil
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, payrollerrors.ErrInvalidDateFormat
	}
	return &t, nil
}

func errorCode(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return apperror.CodeInternalError
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(timestampLayout)
	return &v
}
