package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	ledgererrors "go-payroll/internal/ledger/errors"
	"go-payroll/internal/payslip"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/counter"
	"go-payroll/internal/shared/storage"
)

type Service interface {
	GenerateJournalEntry(ctx context.Context, companyID, runID string) (*JournalEntry, error)
	Reconcile(ctx context.Context, companyID, runID string) (ReconcileReport, error)
	Export(ctx context.Context, companyID, runID, format string) (Export, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	payslips payslip.Repository
	counters counter.Repository
	store    storage.Storage
	sf       *singleflight.Group
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	payslips payslip.Repository,
	counters counter.Repository,
	store storage.Storage,
	now func() time.Time,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("ledger.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.service")
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		db:       db,
		repo:     repo,
		payslips: payslips,
		counters: counters,
		store:    store,
		sf:       &singleflight.Group{},
		now:      now,
		logger:   l,
	}
}

// GenerateJournalEntry returns the run's journal entry, building and
// storing it on first use. Concurrent callers for the same run share one
// generation.
func (s *service) GenerateJournalEntry(ctx context.Context, companyID, runID string) (*JournalEntry, error) {
	company, err := uuid.Parse(companyID)
	if err != nil {
		return nil, apperror.InvalidField("company_id")
	}
	run, err := uuid.Parse(runID)
	if err != nil {
		return nil, apperror.InvalidField("payroll_run_id")
	}

	v, err, _ := s.sf.Do(companyID+":"+runID, func() (interface{}, error) {
		return s.generate(ctx, company, run)
	})
	if err != nil {
		return nil, err
	}
	return v.(*JournalEntry), nil
}

func (s *service) generate(ctx context.Context, company, run uuid.UUID) (*JournalEntry, error) {
	rid := contextutil.GetRequestID(ctx)
	companyID, runID := company.String(), run.String()

	existing, err := s.repo.FindByRun(ctx, companyID, runID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	slips, err := s.payslips.FindActiveByRun(ctx, companyID, runID)
	if err != nil {
		return nil, err
	}
	entry := Build(company, run, slips, "Payroll run "+runID[:8])
	if entry.PayslipCount == 0 {
		return nil, ledgererrors.ErrNoPayslips
	}
	if !entry.IsBalanced() {
		s.logger.Error("journal entry unbalanced",
			zap.String("request_id", rid),
			zap.String("payroll_run_id", runID),
			zap.Any("balances", toBalanceResponses(entry.Balances())),
		)
		return nil, ledgererrors.ErrJournalUnbalanced
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	seq, err := s.counters.WithTx(tx).GetNextValue(ctx, companyID, counter.JournalSequence)
	if err != nil {
		return nil, err
	}
	entry.Number = fmt.Sprintf("JE-%06d", seq)
	entry.CreatedAt = s.now().UTC()

	if err := s.repo.WithTx(tx).Create(ctx, &entry); err != nil {
		if errors.Is(err, ErrJournalExists) {
			_ = tx.Rollback()
			return s.repo.FindByRun(ctx, companyID, runID)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Wrap(
			err,
			apperror.CodeTransactionFailure,
			apperror.ErrTransactionFailed.Message,
			apperror.ErrTransactionFailed.HTTPStatus,
		)
	}

	s.logger.Info("journal entry generated",
		zap.String("request_id", rid),
		zap.String("payroll_run_id", runID),
		zap.String("number", entry.Number),
		zap.Int("lines", len(entry.Lines)),
	)
	return &entry, nil
}

// Reconcile checks the stored entry balances and still matches what the
// run's payslips post today. Problems are reported, never corrected.
func (s *service) Reconcile(ctx context.Context, companyID, runID string) (ReconcileReport, error) {
	report := ReconcileReport{
		PayrollRunID: runID,
		Balances:     []BalanceResponse{},
		Mismatches:   []Mismatch{},
		Issues:       []string{},
	}
	company, err := uuid.Parse(companyID)
	if err != nil {
		return report, apperror.InvalidField("company_id")
	}
	run, err := uuid.Parse(runID)
	if err != nil {
		return report, apperror.InvalidField("payroll_run_id")
	}

	stored, err := s.repo.FindByRun(ctx, companyID, runID)
	if err != nil {
		return report, err
	}
	slips, err := s.payslips.FindActiveByRun(ctx, companyID, runID)
	if err != nil {
		return report, err
	}
	expected := Build(company, run, slips, "")

	subject := expected
	if stored == nil {
		report.Issues = append(report.Issues, "no journal entry has been generated for this run")
	} else {
		subject = *stored
		report.EntryNumber = stored.Number
		report.Mismatches = compare(*stored, expected)
		if stored.PayslipCount != expected.PayslipCount {
			report.Issues = append(report.Issues, fmt.Sprintf(
				"journal covers %d payslips, run now has %d", stored.PayslipCount, expected.PayslipCount))
		}
	}

	report.Balances = toBalanceResponses(subject.Balances())
	report.Balanced = subject.IsBalanced()
	if !report.Balanced {
		report.Issues = append(report.Issues, "debits and credits do not balance")
	}
	if len(report.Mismatches) > 0 {
		report.Issues = append(report.Issues, "journal amounts differ from the run's payslips")
	}
	report.Reconciled = stored != nil && len(report.Issues) == 0

	if !report.Reconciled {
		s.logger.Warn("payroll run does not reconcile",
			zap.String("request_id", contextutil.GetRequestID(ctx)),
			zap.String("payroll_run_id", runID),
			zap.Strings("issues", report.Issues),
		)
	}
	return report, nil
}

// compare lists every (account, currency) whose net posting differs.
func compare(stored, expected JournalEntry) []Mismatch {
	net := func(e JournalEntry) map[postingKey]JournalLine {
		out := map[postingKey]JournalLine{}
		for _, l := range e.Lines {
			out[postingKey{account: l.AccountCode, currency: l.Currency}] = l
		}
		return out
	}
	got, want := net(stored), net(expected)

	seen := map[postingKey]struct{}{}
	keys := []postingKey{}
	for _, m := range []map[postingKey]JournalLine{got, want} {
		for k := range m {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sortPostings(keys)

	out := []Mismatch{}
	for _, k := range keys {
		g, w := got[k].Net(), want[k].Net()
		if g.Equal(w) {
			continue
		}
		out = append(out, Mismatch{
			AccountCode: k.account,
			Currency:    k.currency,
			Journal:     g.StringFixed(2),
			Payslips:    w.StringFixed(2),
		})
	}
	return out
}

func (s *service) Export(ctx context.Context, companyID, runID, format string) (Export, error) {
	exporter, err := ExporterFor(format)
	if err != nil {
		return Export{}, err
	}
	entry, err := s.GenerateJournalEntry(ctx, companyID, runID)
	if err != nil {
		return Export{}, err
	}
	out, err := exporter.Export(*entry)
	if err != nil {
		return Export{}, err
	}

	if s.store != nil {
		name := fmt.Sprintf("%s/%s/%s", companyID, runID, out.Filename)
		if _, err := s.store.Put(ctx, name, out.ContentType, out.Content); err != nil {
			s.logger.Warn("store journal export failed",
				zap.String("request_id", contextutil.GetRequestID(ctx)),
				zap.String("object", name),
				zap.Error(err),
			)
		}
	}
	return out, nil
}
