package bankfile_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"go-payroll/internal/bankfile"
	bankfileerrors "go-payroll/internal/bankfile/errors"
	"go-payroll/internal/directory"
	dirmock "go-payroll/internal/directory/mock"
	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/payslip"
	"go-payroll/internal/shared/counter"
	"go-payroll/internal/shared/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type fakeBankFileRepository struct {
	created []bankfile.Record
}

func (f *fakeBankFileRepository) WithTx(tx *sql.Tx) bankfile.Repository { return f }

func (f *fakeBankFileRepository) Create(ctx context.Context, rec *bankfile.Record) error {
	f.created = append(f.created, *rec)
	return nil
}

func (f *fakeBankFileRepository) FindByRun(ctx context.Context, companyID string, runID string) ([]bankfile.Record, error) {
	return f.created, nil
}

// runPayslips serves FindActiveByRun only; the bank file service reads
// nothing else from the payslip store.
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

type fakeOutbox struct{ created []kafka.OutboxEvent }

func (f *fakeOutbox) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutbox) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.created = append(f.created, event)
	return nil
}

func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutbox) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

type bankFileDeps struct {
	sqlMock  sqlmock.Sqlmock
	dir      *dirmock.MockRepository
	repo     *fakeBankFileRepository
	payslips *runPayslips
	counter  *fakeCounter
	store    *storage.Memory
	outbox   *fakeOutbox
	service  bankfile.Service
}

func setupBankFileServiceTest(t *testing.T) *bankFileDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	deps := &bankFileDeps{
		sqlMock:  sqlMock,
		dir:      dirmock.NewMockRepository(gomock.NewController(t)),
		repo:     &fakeBankFileRepository{},
		payslips: &runPayslips{},
		counter:  &fakeCounter{last: 41},
		store:    storage.NewMemory(),
		outbox:   &fakeOutbox{},
	}
	deps.service = bankfile.NewService(db, deps.repo, deps.payslips, deps.dir, deps.counter, deps.store, deps.outbox,
		func() time.Time { return createdAt })
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

func issuedSlip(companyID uuid.UUID, status string, net string) payslip.Payslip {
	return payslip.Payslip{
		ID:           uuid.New(),
		CompanyID:    companyID,
		EmployeeID:   uuid.New(),
		EmployeeName: "Employee",
		Currency:     "GBP",
		Status:       status,
		NetPay:       amount(net),
	}
}

func bacsRequest() bankfile.GenerateRequest {
	return bankfile.GenerateRequest{
		Format:             "bacs",
		ValueDate:          "2024-05-31",
		Reference:          "MAY PAY",
		CompanyName:        "Acme Ltd",
		ServiceUserNumber:  "123456",
		OriginatorSortCode: "200000",
		OriginatorAccount:  "55779911",
	}
}

func TestBankFileService_GenerateForRun(t *testing.T) {
	companyID := uuid.New()
	actorID := uuid.New().String()
	runID := uuid.New().String()

	t.Run("pays issued payslips and records the file", func(t *testing.T) {
		deps := setupBankFileServiceTest(t)
		a := issuedSlip(companyID, payslip.StatusIssued, "2453.30")
		b := issuedSlip(companyID, payslip.StatusIssued, "2345.30")
		draft := issuedSlip(companyID, payslip.StatusDraft, "999.00")
		unknown := issuedSlip(companyID, payslip.StatusIssued, "100.00")
		deps.payslips.slips = []payslip.Payslip{a, b, draft, unknown}

		deps.dir.EXPECT().
			FindByEmployees(gomock.Any(), companyID.String(), []string{a.EmployeeID.String(), b.EmployeeID.String(), unknown.EmployeeID.String()}).
			Return(map[string]directory.CompensationSnapshot{
				a.EmployeeID.String(): {EmployeeID: a.EmployeeID, BankAccountName: "Jane Smith", SortCode: "40-47-84", AccountNumber: "70872490"},
				b.EmployeeID.String(): {EmployeeID: b.EmployeeID, BankAccountName: "John Doe", SortCode: "30-00-00", AccountNumber: "12345678"},
			}, nil)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.GenerateForRun(context.Background(), companyID.String(), actorID, runID, bacsRequest())
		assert.NoError(t, err)
		assert.Equal(t, bankfile.FormatBACS, resp.Format)
		assert.Equal(t, int64(42), resp.Sequence)
		assert.Equal(t, 2, resp.PaymentCount)
		assert.Equal(t, "4798.60", resp.ControlSum)
		assert.Len(t, resp.Rejected, 1)
		assert.Equal(t, unknown.ID.String(), resp.Rejected[0].PaymentID)
		assert.Equal(t, "employee", resp.Rejected[0].Field)

		name := fmt.Sprintf("%s/%s/%s", companyID, runID, resp.Filename)
		assert.Equal(t, "mem://"+name, resp.StorageURI)
		_, stored := deps.store.Get(name)
		assert.True(t, stored)

		assert.Len(t, deps.repo.created, 1)
		assert.Len(t, deps.outbox.created, 1)
		assert.Equal(t, events.BankFileGeneratedTopic, deps.outbox.created[0].Topic)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())

		listed, err := deps.service.ListForRun(context.Background(), companyID.String(), runID)
		assert.NoError(t, err)
		assert.Len(t, listed, 1)
		assert.Equal(t, resp.Sequence, listed[0].Sequence)
		assert.Equal(t, resp.StorageURI, listed[0].StorageURI)
	})

	t.Run("run without issued payslips", func(t *testing.T) {
		deps := setupBankFileServiceTest(t)
		deps.payslips.slips = []payslip.Payslip{issuedSlip(companyID, payslip.StatusDraft, "10.00")}

		_, err := deps.service.GenerateForRun(context.Background(), companyID.String(), actorID, runID, bacsRequest())
		assert.ErrorIs(t, err, bankfileerrors.ErrNoIssuedPayslips)
	})

	t.Run("unsupported format", func(t *testing.T) {
		deps := setupBankFileServiceTest(t)
		req := bacsRequest()
		req.Format = "FEDWIRE"

		_, err := deps.service.GenerateForRun(context.Background(), companyID.String(), actorID, runID, req)
		assert.ErrorIs(t, err, bankfileerrors.ErrUnsupportedFormat)
	})

	t.Run("no payment satisfies the rail rolls back", func(t *testing.T) {
		deps := setupBankFileServiceTest(t)
		a := issuedSlip(companyID, payslip.StatusIssued, "2453.30")
		deps.payslips.slips = []payslip.Payslip{a}

		deps.dir.EXPECT().
			FindByEmployees(gomock.Any(), companyID.String(), gomock.Any()).
			Return(map[string]directory.CompensationSnapshot{
				a.EmployeeID.String(): {EmployeeID: a.EmployeeID, BankAccountName: "Jane Smith", SortCode: "40-47-84"},
			}, nil)
		expectTx(t, deps.sqlMock, false)

		resp, err := deps.service.GenerateForRun(context.Background(), companyID.String(), actorID, runID, bacsRequest())
		assert.ErrorIs(t, err, bankfileerrors.ErrNoValidPayments)
		assert.Len(t, resp.Rejected, 1)
		assert.Equal(t, "account_number", resp.Rejected[0].Field)
		assert.Empty(t, deps.repo.created)
		assert.Empty(t, deps.outbox.created)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}
