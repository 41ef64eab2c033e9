package ledger_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"go-payroll/internal/ledger"
	ledgererrors "go-payroll/internal/ledger/errors"
	"go-payroll/internal/payslip"
	"go-payroll/internal/shared/counter"
	"go-payroll/internal/shared/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type memLedgerRepository struct {
	entries map[string]ledger.JournalEntry
}

func (m *memLedgerRepository) WithTx(tx *sql.Tx) ledger.Repository { return m }

func (m *memLedgerRepository) Create(ctx context.Context, e *ledger.JournalEntry) error {
	key := e.PayrollRunID.String()
	if _, ok := m.entries[key]; ok {
		return ledger.ErrJournalExists
	}
	m.entries[key] = *e
	return nil
}

func (m *memLedgerRepository) FindByRun(ctx context.Context, companyID string, runID string) (*ledger.JournalEntry, error) {
	e, ok := m.entries[runID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

type runPayslips struct {
	payslip.Repository
	slips []payslip.Payslip
}

func (r *runPayslips) FindActiveByRun(ctx context.Context, companyID string, runID string) ([]payslip.Payslip, error) {
	return r.slips, nil
}

type fakeCounter struct{ last int64 }

func (f *fakeCounter) WithTx(tx *sql.Tx) counter.Repository { return f }

func (f *fakeCounter) GetNextValue(ctx context.Context, companyID string, counterType string) (int64, error) {
	f.last++
	return f.last, nil
}

type ledgerDeps struct {
	sqlMock  sqlmock.Sqlmock
	repo     *memLedgerRepository
	payslips *runPayslips
	store    *storage.Memory
	service  ledger.Service
}

func setupLedgerServiceTest(t *testing.T) *ledgerDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	deps := &ledgerDeps{
		sqlMock:  sqlMock,
		repo:     &memLedgerRepository{entries: map[string]ledger.JournalEntry{}},
		payslips: &runPayslips{},
		store:    storage.NewMemory(),
	}
	deps.service = ledger.NewService(db, deps.repo, deps.payslips, &fakeCounter{}, deps.store,
		func() time.Time { return payDate })
	return deps
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestLedgerService_GenerateJournalEntry(t *testing.T) {
	companyID := uuid.New().String()

	t.Run("stores the entry once per run", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		runID := uuid.New().String()
		deps.payslips.slips = []payslip.Payslip{gbpSlip()}
		expectTx(t, deps.sqlMock, true)

		first, err := deps.service.GenerateJournalEntry(context.Background(), companyID, runID)
		assert.NoError(t, err)
		assert.Equal(t, "JE-000001", first.Number)
		assert.True(t, first.IsBalanced())

		second, err := deps.service.GenerateJournalEntry(context.Background(), companyID, runID)
		assert.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("no active payslips", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		deps.payslips.slips = []payslip.Payslip{voidSlip()}

		_, err := deps.service.GenerateJournalEntry(context.Background(), companyID, uuid.New().String())
		assert.ErrorIs(t, err, ledgererrors.ErrNoPayslips)
	})

	t.Run("inconsistent payslip is refused", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		broken := gbpSlip()
		broken.NetPay = dec("2650.02")
		deps.payslips.slips = []payslip.Payslip{broken}

		_, err := deps.service.GenerateJournalEntry(context.Background(), companyID, uuid.New().String())
		assert.ErrorIs(t, err, ledgererrors.ErrJournalUnbalanced)
		assert.Empty(t, deps.repo.entries)
	})

	t.Run("invalid run id", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		_, err := deps.service.GenerateJournalEntry(context.Background(), companyID, "run-1")
		assert.Error(t, err)
	})
}

func TestLedgerService_Reconcile(t *testing.T) {
	companyID := uuid.New().String()

	t.Run("matching run reconciles", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		runID := uuid.New().String()
		deps.payslips.slips = []payslip.Payslip{gbpSlip(), usdSlip()}
		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.GenerateJournalEntry(context.Background(), companyID, runID)
		assert.NoError(t, err)

		report, err := deps.service.Reconcile(context.Background(), companyID, runID)
		assert.NoError(t, err)
		assert.True(t, report.Reconciled)
		assert.True(t, report.Balanced)
		assert.Empty(t, report.Mismatches)
		assert.Len(t, report.Balances, 2)
	})

	t.Run("tampered entry reports imbalance", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		runID := uuid.New().String()
		deps.payslips.slips = []payslip.Payslip{gbpSlip()}
		expectTx(t, deps.sqlMock, true)
		entry, err := deps.service.GenerateJournalEntry(context.Background(), companyID, runID)
		assert.NoError(t, err)

		stored := deps.repo.entries[runID]
		stored.Lines[0].Credit = stored.Lines[0].Credit.Add(dec("0.01"))
		deps.repo.entries[runID] = stored

		report, err := deps.service.Reconcile(context.Background(), companyID, runID)
		assert.NoError(t, err)
		assert.False(t, report.Reconciled)
		assert.False(t, report.Balanced)
		assert.Equal(t, entry.Number, report.EntryNumber)
		assert.Equal(t, "-0.01", report.Balances[0].Difference)
		assert.Len(t, report.Mismatches, 1)
		assert.Equal(t, ledger.AccountTaxPayable, report.Mismatches[0].AccountCode)
	})

	t.Run("payslips changed after posting", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		runID := uuid.New().String()
		deps.payslips.slips = []payslip.Payslip{gbpSlip()}
		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.GenerateJournalEntry(context.Background(), companyID, runID)
		assert.NoError(t, err)

		deps.payslips.slips = append(deps.payslips.slips, usdSlip())
		report, err := deps.service.Reconcile(context.Background(), companyID, runID)
		assert.NoError(t, err)
		assert.False(t, report.Reconciled)
		assert.True(t, report.Balanced)
		assert.Len(t, report.Mismatches, 3)
		assert.Contains(t, report.Issues, "journal covers 1 payslips, run now has 2")
	})

	t.Run("run without entry", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		deps.payslips.slips = []payslip.Payslip{gbpSlip()}

		report, err := deps.service.Reconcile(context.Background(), companyID, uuid.New().String())
		assert.NoError(t, err)
		assert.False(t, report.Reconciled)
		assert.True(t, report.Balanced)
		assert.Len(t, report.Issues, 1)
	})
}

func TestLedgerService_Export(t *testing.T) {
	companyID := uuid.New().String()
	deps := setupLedgerServiceTest(t)
	runID := uuid.New().String()
	deps.payslips.slips = []payslip.Payslip{gbpSlip()}
	expectTx(t, deps.sqlMock, true)

	out, err := deps.service.Export(context.Background(), companyID, runID, "CSV")
	assert.NoError(t, err)
	assert.Equal(t, "journal_JE-000001.csv", out.Filename)
	_, stored := deps.store.Get(companyID + "/" + runID + "/" + out.Filename)
	assert.True(t, stored)

	_, err = deps.service.Export(context.Background(), companyID, runID, "pdf")
	assert.ErrorIs(t, err, ledgererrors.ErrUnsupportedExport)
}
