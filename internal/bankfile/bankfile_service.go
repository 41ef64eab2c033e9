package bankfile

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bankfileerrors "go-payroll/internal/bankfile/errors"
	"go-payroll/internal/directory"
	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/payslip"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/counter"
	"go-payroll/internal/shared/storage"
)

type Service interface {
	GenerateForRun(ctx context.Context, companyID, actorID, runID string, req GenerateRequest) (Response, error)
	ListForRun(ctx context.Context, companyID, runID string) ([]Response, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	payslips  payslip.Repository
	directory directory.Repository
	counters  counter.Repository
	store     storage.Storage
	outbox    kafka.OutboxRepository
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	payslips payslip.Repository,
	dir directory.Repository,
	counters counter.Repository,
	store storage.Storage,
	outboxRepo kafka.OutboxRepository,
	now func() time.Time,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("bankfile.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("bankfile.service")
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		db:        db,
		repo:      repo,
		payslips:  payslips,
		directory: dir,
		counters:  counters,
		store:     store,
		outbox:    outboxRepo,
		now:       now,
		logger:    l,
	}
}

// GenerateForRun pays the issued payslips of a run on the requested rail.
// The sequence number, the stored reference and the outbox event share one
// transaction; the artifact is uploaded before commit.
func (s *service) GenerateForRun(ctx context.Context, companyID, actorID, runID string, req GenerateRequest) (Response, error) {
	rid := contextutil.GetRequestID(ctx)

	gen, err := Lookup(req.Format)
	if err != nil {
		return Response{}, err
	}
	company, err := uuid.Parse(companyID)
	if err != nil {
		return Response{}, apperror.InvalidField("company_id")
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return Response{}, apperror.InvalidField("actor_id")
	}
	run, err := uuid.Parse(runID)
	if err != nil {
		return Response{}, apperror.InvalidField("payroll_run_id")
	}
	valueDate, err := time.Parse("2006-01-02", req.ValueDate)
	if err != nil {
		return Response{}, apperror.InvalidField("value_date")
	}

	slips, err := s.payslips.FindActiveByRun(ctx, companyID, runID)
	if err != nil {
		return Response{}, err
	}
	issued := make([]payslip.Payslip, 0, len(slips))
	employeeIDs := make([]string, 0, len(slips))
	for _, p := range slips {
		if p.Status != payslip.StatusIssued {
			continue
		}
		issued = append(issued, p)
		employeeIDs = append(employeeIDs, p.EmployeeID.String())
	}
	if len(issued) == 0 {
		return Response{}, bankfileerrors.ErrNoIssuedPayslips
	}

	snaps, err := s.directory.FindByEmployees(ctx, companyID, employeeIDs)
	if err != nil {
		return Response{}, err
	}
	payments, missing := buildPayments(issued, snaps, req.Reference)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Response{}, err
	}
	defer tx.Rollback()

	seq, err := s.counters.WithTx(tx).GetNextValue(ctx, companyID, counter.BankFileSequence)
	if err != nil {
		return Response{}, err
	}

	now := s.now().UTC()
	opts := req.options(seq, now, valueDate, currencyOf(issued))
	file, err := gen.Generate(payments, opts)
	file.Rejected = append(missing, file.Rejected...)
	if err != nil {
		return Response{Format: gen.Format(), PayrollRunID: runID, Rejected: file.Rejected}, err
	}

	uri, err := s.store.Put(ctx, fmt.Sprintf("%s/%s/%s", companyID, runID, file.Filename), file.ContentType, file.Content)
	if err != nil {
		return Response{}, apperror.Wrap(err, apperror.CodeServiceUnavailable, "artifact storage unavailable", http.StatusServiceUnavailable)
	}

	rec := &Record{
		ID:           uuid.New(),
		CompanyID:    company,
		PayrollRunID: run,
		Format:       file.Format,
		Sequence:     seq,
		Filename:     file.Filename,
		StorageURI:   uri,
		Currency:     opts.Currency,
		PaymentCount: file.Count,
		ControlSum:   file.ControlSum,
		Rejected:     file.Rejected,
		ValueDate:    valueDate,
		CreatedBy:    actor,
		CreatedAt:    now,
	}
	if err := s.repo.WithTx(tx).Create(ctx, rec); err != nil {
		return Response{}, err
	}

	event, err := kafka.NewOutboxEvent(ctx, "payroll_bank_file", rec.ID.String(), "bankfile.generated", events.BankFileGeneratedTopic, events.BankFileGeneratedEvent{
		EventType:     "bankfile.generated",
		BankFileID:    rec.ID.String(),
		PayrollRunID:  runID,
		CompanyID:     companyID,
		Format:        rec.Format,
		Filename:      rec.Filename,
		StorageURI:    uri,
		PaymentCount:  rec.PaymentCount,
		RejectedCount: len(rec.Rejected),
		ControlSum:    rec.ControlSum.StringFixed(2),
		OccurredAt:    now,
	})
	if err != nil {
		return Response{}, err
	}
	if err := s.outbox.WithTx(tx).Create(ctx, event); err != nil {
		return Response{}, err
	}

	if err := tx.Commit(); err != nil {
		return Response{}, apperror.Wrap(
			err,
			apperror.CodeTransactionFailure,
			apperror.ErrTransactionFailed.Message,
			apperror.ErrTransactionFailed.HTTPStatus,
		)
	}

	s.logger.Info("bank file generated",
		zap.String("request_id", rid),
		zap.String("payroll_run_id", runID),
		zap.String("format", rec.Format),
		zap.Int64("sequence", seq),
		zap.Int("payments", rec.PaymentCount),
		zap.Int("rejected", len(rec.Rejected)),
	)
	return toResponse(*rec), nil
}

func (s *service) ListForRun(ctx context.Context, companyID, runID string) ([]Response, error) {
	recs, err := s.repo.FindByRun(ctx, companyID, runID)
	if err != nil {
		return nil, err
	}
	out := make([]Response, 0, len(recs))
	for _, r := range recs {
		out = append(out, toResponse(r))
	}
	return out, nil
}

// buildPayments pairs each payslip's net pay with the employee's bank
// instruction. Employees unknown to the directory are rejected up front.
func buildPayments(slips []payslip.Payslip, snaps map[string]directory.CompensationSnapshot, reference string) ([]Payment, []Rejection) {
	payments := make([]Payment, 0, len(slips))
	missing := []Rejection{}
	for _, p := range slips {
		employeeID := p.EmployeeID.String()
		snap, ok := snaps[employeeID]
		if !ok {
			missing = append(missing, Rejection{
				PaymentID:  p.ID.String(),
				EmployeeID: employeeID,
				Code:       apperror.CodeFormatConstraint,
				Field:      "employee",
				Message:    "employee has no bank instruction in the directory",
			})
			continue
		}

		name := strings.TrimSpace(snap.BankAccountName)
		if name == "" {
			name = p.EmployeeName
		}
		payments = append(payments, Payment{
			PaymentID:     p.ID.String(),
			EmployeeID:    employeeID,
			Name:          name,
			Amount:        p.NetPay,
			Currency:      p.Currency,
			IBAN:          snap.IBAN,
			BIC:           snap.BIC,
			AccountNumber: snap.AccountNumber,
			RoutingNumber: snap.RoutingNumber,
			SortCode:      snap.SortCode,
			BankCode:      snap.BankCode,
			AccountType:   snap.AccountType,
			Reference:     reference,
		})
	}
	return payments, missing
}

// currencyOf is the run currency; mixed runs fall back to the first slip and
// the rail rejects the rest.
func currencyOf(slips []payslip.Payslip) string {
	if len(slips) == 0 {
		return ""
	}
	return strings.ToUpper(slips[0].Currency)
}

func (r GenerateRequest) options(seq int64, createdAt, valueDate time.Time, currency string) Options {
	return Options{
		CompanyName:           r.CompanyName,
		Reference:             r.Reference,
		Sequence:              seq,
		CreatedAt:             createdAt,
		ValueDate:             valueDate,
		Currency:              currency,
		DebtorIBAN:            r.DebtorIBAN,
		DebtorBIC:             r.DebtorBIC,
		OriginatorID:          r.OriginatorID,
		OriginatorRouting:     r.OriginatorRouting,
		DestinationRouting:    r.DestinationRouting,
		DestinationName:       r.DestinationName,
		ServiceUserNumber:     r.ServiceUserNumber,
		OriginatorSortCode:    r.OriginatorSortCode,
		OriginatorAccount:     r.OriginatorAccount,
		OriginatorAccountName: r.OriginatorAccountName,
		DebitAccount:          r.DebitAccount,
	}
}
