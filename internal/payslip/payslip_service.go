package payslip

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-payroll/internal/directory"
	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"
	payslipserrors "go-payroll/internal/payslip/errors"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/money"
	"go-payroll/internal/tax"
)

//go:generate mockgen -source=payslip_service.go -destination=mock/payslip_service_mock.go -package=mock
type Service interface {
	Preview(ctx context.Context, companyID, actorID string, req CalculateRequest) (PayslipResponse, error)
	Generate(ctx context.Context, companyID, actorID string, req CalculateRequest) (PayslipResponse, error)
	GetByID(ctx context.Context, companyID, id string) (PayslipResponse, error)
	History(ctx context.Context, companyID, id string) ([]HistoryItemResponse, error)
	Regenerate(ctx context.Context, companyID, actorID, id string, req RegenerateRequest) (PayslipResponse, error)
	Publish(ctx context.Context, companyID, actorID, id string, req PublishRequest) (PayslipResponse, error)
	IssueForRun(ctx context.Context, tx *sql.Tx, companyID, actorID, runID string) (int, error)
	Verify(ctx context.Context, id string, req VerifyRequest) (VerifyResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	directory directory.Repository
	pipeline  *Pipeline
	outbox    kafka.OutboxRepository
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	dir directory.Repository,
	pipeline *Pipeline,
	outboxRepo kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("payslip.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("payslip.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		directory: dir,
		pipeline:  pipeline,
		outbox:    outboxRepo,
		now:       time.Now,
		logger:    l,
	}
}

func (s *service) Preview(ctx context.Context, companyID, actorID string, req CalculateRequest) (PayslipResponse, error) {
	actor, err := parseIDs(companyID, actorID)
	if err != nil {
		return PayslipResponse{}, err
	}

	snap, err := s.directory.FindByEmployee(ctx, companyID, req.EmployeeID)
	if err != nil {
		return PayslipResponse{}, err
	}

	in := req.Input
	if err := ResolvePriorYTD(ctx, s.repo, snap, &in); err != nil {
		return PayslipResponse{}, err
	}

	slip, err := s.pipeline.Calculate(*snap, in, actor, s.now())
	if err != nil {
		return PayslipResponse{}, err
	}
	return MapToResponse(slip), nil
}

func (s *service) Generate(ctx context.Context, companyID, actorID string, req CalculateRequest) (PayslipResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	actor, err := parseIDs(companyID, actorID)
	if err != nil {
		return PayslipResponse{}, err
	}

	snap, err := s.directory.FindByEmployee(ctx, companyID, req.EmployeeID)
	if err != nil {
		return PayslipResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("generate payslip begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return PayslipResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	in := req.Input
	if err := ResolvePriorYTD(ctx, qtx, snap, &in); err != nil {
		return PayslipResponse{}, err
	}

	slip, err := s.pipeline.Calculate(*snap, in, actor, s.now())
	if err != nil {
		return PayslipResponse{}, err
	}

	exists, err := qtx.ExistsActive(ctx, companyID, req.EmployeeID, slip.PeriodStart, slip.PeriodEnd)
	if err != nil {
		return PayslipResponse{}, err
	}
	if exists {
		return PayslipResponse{}, payslipserrors.ErrPayslipExists
	}

	if err := qtx.Create(ctx, slip); err != nil {
		s.logger.Error("generate payslip persist failed", zap.String("request_id", rid), zap.Error(err))
		return PayslipResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("generate payslip commit failed", zap.String("request_id", rid), zap.Error(err))
		return PayslipResponse{}, apperror.Wrap(err, apperror.CodeTransactionFailure, apperror.ErrTransactionFailed.Message, apperror.ErrTransactionFailed.HTTPStatus)
	}

	s.logger.Info("payslip generated",
		zap.String("request_id", rid),
		zap.String("payslip_id", slip.ID.String()),
		zap.String("employee_id", slip.EmployeeID.String()),
		zap.Bool("requires_override", slip.RequiresOverride),
	)
	return MapToResponse(slip), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (PayslipResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return PayslipResponse{}, payslipserrors.ErrInvalidPayslipID
	}
	slip, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return PayslipResponse{}, err
	}
	return MapToResponse(slip), nil
}

func (s *service) History(ctx context.Context, companyID, id string) ([]HistoryItemResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, payslipserrors.ErrInvalidPayslipID
	}
	chain, err := s.repo.FindChain(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	resp := make([]HistoryItemResponse, len(chain))
	for i, p := range chain {
		resp[i] = HistoryItemResponse{
			ID:                 p.ID.String(),
			Version:            p.Version,
			Status:             p.Status,
			SupersedesID:       uuidPtrString(p.SupersedesID),
			RegenerationReason: p.RegenerationReason,
			NetPay:             money.Format(p.NetPay, p.Currency),
			GeneratedAt:        p.GeneratedAt.Format(time.RFC3339),
		}
	}
	return resp, nil
}

// Regenerate replays the stored input with corrections against a fresh
// Directory snapshot, voids the current version and writes version+1, all
// in one transaction.
func (s *service) Regenerate(ctx context.Context, companyID, actorID, id string, req RegenerateRequest) (PayslipResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return PayslipResponse{}, payslipserrors.ErrReasonRequired
	}
	actor, err := parseIDs(companyID, actorID)
	if err != nil {
		return PayslipResponse{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return PayslipResponse{}, payslipserrors.ErrInvalidPayslipID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("regenerate payslip begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return PayslipResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	old, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return PayslipResponse{}, err
	}
	if old.Status == StatusVoid {
		return PayslipResponse{}, payslipserrors.ErrPayslipVoid
	}

	snap, err := s.directory.FindByEmployee(ctx, companyID, old.EmployeeID.String())
	if err != nil {
		return PayslipResponse{}, err
	}

	in := applyCorrections(old.Input.Data(), req)
	next, err := s.pipeline.Calculate(*snap, in, actor, s.now())
	if err != nil {
		return PayslipResponse{}, err
	}

	next.Version = old.Version + 1
	next.SupersedesID = &old.ID
	next.RegenerationReason = &reason
	next.BatchID = old.BatchID
	if next.PayrollRunID == nil {
		next.PayrollRunID = old.PayrollRunID
	}
	next.Status = StatusDraft
	if old.Status == StatusIssued || old.Status == StatusAmended {
		next.Status = StatusAmended
	}

	voidReason := fmt.Sprintf("superseded by version %d: %s", next.Version, reason)
	ok, err := qtx.Void(ctx, companyID, old.ID.String(), old.Version, voidReason, s.now().UTC())
	if err != nil {
		return PayslipResponse{}, err
	}
	if !ok {
		return PayslipResponse{}, payslipserrors.ErrConcurrentAmendment
	}

	if err := qtx.Create(ctx, next); err != nil {
		if errors.Is(err, payslipserrors.ErrPayslipExists) {
			return PayslipResponse{}, payslipserrors.ErrConcurrentAmendment
		}
		s.logger.Error("regenerate payslip persist failed", zap.String("request_id", rid), zap.Error(err))
		return PayslipResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("regenerate payslip commit failed", zap.String("request_id", rid), zap.Error(err))
		return PayslipResponse{}, apperror.Wrap(err, apperror.CodeTransactionFailure, apperror.ErrTransactionFailed.Message, apperror.ErrTransactionFailed.HTTPStatus)
	}

	s.logger.Info("payslip regenerated",
		zap.String("request_id", rid),
		zap.String("payslip_id", next.ID.String()),
		zap.String("supersedes_id", old.ID.String()),
		zap.Int("version", next.Version),
	)
	return MapToResponse(next), nil
}

func (s *service) Publish(ctx context.Context, companyID, actorID, id string, req PublishRequest) (PayslipResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	actor, err := parseIDs(companyID, actorID)
	if err != nil {
		return PayslipResponse{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return PayslipResponse{}, payslipserrors.ErrInvalidPayslipID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PayslipResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	slip, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return PayslipResponse{}, err
	}
	switch slip.Status {
	case StatusDraft, StatusAmended:
	case StatusVoid:
		return PayslipResponse{}, payslipserrors.ErrPayslipVoid
	default:
		return PayslipResponse{}, payslipserrors.ErrInvalidStatusTransition
	}

	overrideReason := strings.TrimSpace(req.OverrideReason)
	if slip.RequiresOverride {
		if overrideReason == "" {
			return PayslipResponse{}, payslipserrors.ErrOverrideRequired
		}
		slip.OverrideReason = &overrideReason
		slip.OverrideBy = &actor
	}

	if err := s.issue(ctx, tx, slip, actor, s.now().UTC()); err != nil {
		s.logger.Error("issue payslip failed", zap.String("request_id", rid), zap.Error(err))
		return PayslipResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return PayslipResponse{}, apperror.Wrap(err, apperror.CodeTransactionFailure, apperror.ErrTransactionFailed.Message, apperror.ErrTransactionFailed.HTTPStatus)
	}

	if slip.OverrideReason != nil {
		s.logger.Warn("payslip published with negative net override",
			zap.String("request_id", rid),
			zap.String("payslip_id", slip.ID.String()),
			zap.String("override_by", actorID),
		)
	}
	return MapToResponse(slip), nil
}

// IssueForRun publishes every draft or amended payslip of a payroll run
// inside the caller's transaction. Nothing is issued while any of them still
// needs a negative-net override.
func (s *service) IssueForRun(ctx context.Context, tx *sql.Tx, companyID, actorID, runID string) (int, error) {
	actor, err := parseIDs(companyID, actorID)
	if err != nil {
		return 0, err
	}
	if _, err := uuid.Parse(runID); err != nil {
		return 0, payslipserrors.ErrInvalidInput
	}

	qtx := s.repo.WithTx(tx)
	slips, err := qtx.FindActiveByRun(ctx, companyID, runID)
	if err != nil {
		return 0, err
	}

	pending := make([]*Payslip, 0, len(slips))
	for i := range slips {
		slip := &slips[i]
		if slip.Status != StatusDraft && slip.Status != StatusAmended {
			continue
		}
		if slip.RequiresOverride && slip.OverrideBy == nil {
			return 0, payslipserrors.ErrOverrideRequired
		}
		pending = append(pending, slip)
	}

	now := s.now().UTC()
	for _, slip := range pending {
		if err := s.issue(ctx, tx, slip, actor, now); err != nil {
			return 0, err
		}
	}

	s.logger.Info("payroll run payslips issued",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("payroll_run_id", runID),
		zap.Int("issued", len(pending)),
	)
	return len(pending), nil
}

func (s *service) issue(ctx context.Context, tx *sql.Tx, slip *Payslip, actor uuid.UUID, now time.Time) error {
	slip.Status = StatusIssued
	slip.IssuedAt = &now
	slip.IssuedBy = &actor
	slip.UpdatedAt = now

	if err := s.repo.WithTx(tx).MarkIssued(ctx, slip); err != nil {
		return err
	}
	if s.outbox == nil {
		return nil
	}

	event, err := kafka.NewOutboxEvent(ctx, "payslip", slip.ID.String(), "payslip.issued", events.PayslipIssuedTopic, events.PayslipIssuedEvent{
		EventType:   "payslip.issued",
		PayslipID:   slip.ID.String(),
		Version:     slip.Version,
		CompanyID:   slip.CompanyID.String(),
		EmployeeID:  slip.EmployeeID.String(),
		PeriodStart: slip.PeriodStart.Format(dateLayout),
		PeriodEnd:   slip.PeriodEnd.Format(dateLayout),
		NetPay:      money.Format(slip.NetPay, slip.Currency),
		Currency:    slip.Currency,
		Overridden:  slip.OverrideReason != nil,
		IssuedBy:    actor.String(),
		OccurredAt:  now,
	})
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, event)
}

// Verify answers only valid/invalid with a reason; it never returns the
// payslip itself.
func (s *service) Verify(ctx context.Context, id string, req VerifyRequest) (VerifyResponse, error) {
	if strings.TrimSpace(req.Token) == "" {
		return VerifyResponse{}, payslipserrors.ErrTokenRequired
	}
	if _, err := uuid.Parse(id); err != nil {
		return VerifyResponse{Valid: false, Reason: "payslip not found"}, nil
	}

	slip, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, payslipserrors.ErrPayslipNotFound) {
		return VerifyResponse{Valid: false, Reason: "payslip not found"}, nil
	}
	if err != nil {
		return VerifyResponse{}, err
	}

	valid, reason := s.pipeline.Signer().Verify(slip, req.Token)
	return VerifyResponse{Valid: valid, Reason: reason}, nil
}

// ResolvePriorYTD fills in.PriorYTD from the latest active payslip in the
// same tax year when the caller did not supply one.
func ResolvePriorYTD(ctx context.Context, repo Repository, snap *directory.CompensationSnapshot, in *Input) error {
	if in.PriorYTD != nil {
		return nil
	}
	start, err := time.Parse(dateLayout, in.PeriodStart)
	if err != nil {
		// validation reports the bad date
		return nil
	}

	yearStart := tax.YearStart(snap.Country, start)
	ytd, err := repo.FindPriorYTD(ctx, snap.CompanyID.String(), snap.EmployeeID.String(), yearStart, start)
	if err != nil {
		return err
	}
	if ytd != nil {
		in.PriorYTD = ytd
	}
	return nil
}

func applyCorrections(in Input, req RegenerateRequest) Input {
	if req.OvertimeHours != nil {
		in.OvertimeHours = *req.OvertimeHours
	}
	if req.OvertimeMultiplier != nil {
		m := *req.OvertimeMultiplier
		in.OvertimeMultiplier = &m
	}
	if req.Bonuses != nil {
		in.Bonuses = *req.Bonuses
	}
	if req.Allowances != nil {
		in.Allowances = *req.Allowances
	}
	if req.Deductions != nil {
		in.Deductions = *req.Deductions
	}
	if req.PayDate != nil {
		in.PayDate = *req.PayDate
	}
	return in
}

func parseIDs(companyID, actorID string) (uuid.UUID, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return uuid.Nil, apperror.InvalidField("company_id")
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, apperror.InvalidField("actor_id")
	}
	return actor, nil
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
}

func MapToResponse(p *Payslip) PayslipResponse {
	cur := p.Currency
	resp := PayslipResponse{
		ID:               p.ID.String(),
		CompanyID:        p.CompanyID.String(),
		EmployeeID:       p.EmployeeID.String(),
		EmployeeName:     p.EmployeeName,
		PayrollRunID:     uuidPtrString(p.PayrollRunID),
		BatchID:          uuidPtrString(p.BatchID),
		PeriodStart:      p.PeriodStart.Format(dateLayout),
		PeriodEnd:        p.PeriodEnd.Format(dateLayout),
		PayDate:          p.PayDate.Format(dateLayout),
		Country:          p.Country,
		Currency:         cur,
		Status:           p.Status,
		Version:          p.Version,
		SupersedesID:     uuidPtrString(p.SupersedesID),
		GrossPay:         money.Format(p.GrossPay, cur),
		TaxableBase:      money.Format(p.TaxableBase, cur),
		TotalPreTax:      money.Format(p.TotalPreTax, cur),
		TotalTax:         money.Format(p.TotalTax, cur),
		TotalPostTax:     money.Format(p.TotalPostTax, cur),
		TotalDeductions:  money.Format(p.TotalDeductions, cur),
		TotalEmployer:    money.Format(p.TotalEmployer, cur),
		NetPay:           money.Format(p.NetPay, cur),
		TaxJurisdiction:  p.TaxJurisdiction,
		UsedFallback:     p.UsedFallback,
		RequiresOverride: p.RequiresOverride,
		Warnings:         p.Warnings,
		Signature:        p.Signature,
		YTD: YTDResponse{
			Gross:   money.Format(p.YTDGross, cur),
			Tax:     money.Format(p.YTDTax, cur),
			PreTax:  money.Format(p.YTDPreTax, cur),
			PostTax: money.Format(p.YTDPostTax, cur),
		},
	}
	if resp.Warnings == nil {
		resp.Warnings = []Warning{}
	}

	resp.Lines = make([]LineResponse, 0, len(p.Lines))
	for _, l := range sortedLines(p.Lines) {
		lr := LineResponse{
			Type:           l.LineType,
			Classification: l.Classification,
			Code:           l.Code,
			Label:          l.Label,
			Quantity:       l.Quantity.String(),
			Amount:         money.Format(l.Amount, cur),
			Taxable:        l.Taxable,
			PreTax:         l.PreTax,
			Jurisdiction:   l.Jurisdiction,
			Basis:          l.Basis,
		}
		if l.Rate != nil {
			v := l.Rate.String()
			lr.Rate = &v
		}
		trace := l.Trace.Data()
		if trace.Kind != "" {
			tr := &TraceResponse{Kind: string(trace.Kind), Formula: trace.Formula, TableVersion: trace.TableVersion}
			switch {
			case trace.Banded != nil:
				tr.Detail = trace.Banded
			case trace.Flat != nil:
				tr.Detail = trace.Flat
			case trace.Capped != nil:
				tr.Detail = trace.Capped
			default:
				tr.Detail = trace.Inputs
			}
			lr.Trace = tr
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}
