package payslip_test

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"go-payroll/internal/directory"
	dirmock "go-payroll/internal/directory/mock"
	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/payslip"
	payslipserrors "go-payroll/internal/payslip/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

// memRepository keeps payslips in memory and enforces the one-active-row
// rule the database index provides.
type memRepository struct {
	mu        sync.Mutex
	items     map[uuid.UUID]payslip.Payslip
	staleVoid bool
}

func newMemRepository() *memRepository {
	return &memRepository{items: map[uuid.UUID]payslip.Payslip{}}
}

func (m *memRepository) WithTx(tx *sql.Tx) payslip.Repository { return m }

func (m *memRepository) Create(ctx context.Context, p *payslip.Payslip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.IsActive() && existing.CompanyID == p.CompanyID && existing.EmployeeID == p.EmployeeID &&
			existing.PeriodStart.Equal(p.PeriodStart) && existing.PeriodEnd.Equal(p.PeriodEnd) {
			return payslipserrors.ErrPayslipExists
		}
	}
	m.items[p.ID] = *p
	return nil
}

func (m *memRepository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*payslip.Payslip, error) {
	p, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CompanyID.String() != companyID {
		return nil, payslipserrors.ErrPayslipNotFound
	}
	return p, nil
}

func (m *memRepository) FindByID(ctx context.Context, id string) (*payslip.Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[uuid.MustParse(id)]
	if !ok {
		return nil, payslipserrors.ErrPayslipNotFound
	}
	return &p, nil
}

func (m *memRepository) FindChain(ctx context.Context, companyID string, id string) ([]payslip.Payslip, error) {
	root, err := m.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	chain := []payslip.Payslip{}
	for _, p := range m.items {
		if p.EmployeeID == root.EmployeeID && p.PeriodStart.Equal(root.PeriodStart) {
			chain = append(chain, p)
		}
	}
	sort.Slice(chain, func(i, j int) bool { return chain[i].Version < chain[j].Version })
	return chain, nil
}

func (m *memRepository) FindActiveByRun(ctx context.Context, companyID string, runID string) ([]payslip.Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []payslip.Payslip{}
	for _, p := range m.items {
		if p.IsActive() && p.PayrollRunID != nil && p.PayrollRunID.String() == runID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepository) ExistsActive(ctx context.Context, companyID string, employeeID string, periodStart, periodEnd time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.IsActive() && p.EmployeeID.String() == employeeID && p.PeriodStart.Equal(periodStart) && p.PeriodEnd.Equal(periodEnd) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepository) FindPriorYTD(ctx context.Context, companyID string, employeeID string, yearStart, before time.Time) (*payslip.YTD, error) {
	return nil, nil
}

func (m *memRepository) Void(ctx context.Context, companyID string, id string, version int, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[uuid.MustParse(id)]
	if !ok || m.staleVoid || p.Status == payslip.StatusVoid || p.Version != version {
		return false, nil
	}
	p.Status = payslip.StatusVoid
	p.VoidReason = &reason
	p.VoidedAt = &at
	m.items[p.ID] = p
	return true, nil
}

func (m *memRepository) VoidMany(ctx context.Context, companyID string, ids []string, reason string, at time.Time) (int64, error) {
	var n int64
	for _, id := range ids {
		p, err := m.FindByID(ctx, id)
		if err != nil {
			continue
		}
		ok, _ := m.Void(ctx, companyID, id, p.Version, reason, at)
		if ok {
			n++
		}
	}
	return n, nil
}

func (m *memRepository) VoidByBatch(ctx context.Context, companyID string, batchID string, reason string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.items {
		if p.BatchID == nil || p.BatchID.String() != batchID || p.Status == payslip.StatusVoid {
			continue
		}
		p.Status = payslip.StatusVoid
		p.VoidReason = &reason
		m.items[id] = p
		n++
	}
	return n, nil
}

func (m *memRepository) MarkIssued(ctx context.Context, p *payslip.Payslip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ID] = *p
	return nil
}

func (m *memRepository) active() []payslip.Payslip {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []payslip.Payslip{}
	for _, p := range m.items {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

type fakeOutboxRepository struct {
	created []kafka.OutboxEvent
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.created = append(f.created, event)
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

type payslipServiceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service payslip.Service
	repo    *memRepository
	outbox  *fakeOutboxRepository
	snap    directory.CompensationSnapshot
}

func setupPayslipServiceTest(t *testing.T) *payslipServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	ctrl := gomock.NewController(t)
	dir := dirmock.NewMockRepository(ctrl)
	snap := ukSnapshot()
	dir.EXPECT().
		FindByEmployee(gomock.Any(), snap.CompanyID.String(), snap.EmployeeID.String()).
		Return(&snap, nil).
		AnyTimes()

	repo := newMemRepository()
	outbox := &fakeOutboxRepository{}
	svc := payslip.NewService(db, repo, dir, newPipeline(t), outbox)

	return &payslipServiceDeps{db: db, sqlMock: sqlMock, service: svc, repo: repo, outbox: outbox, snap: snap}
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

func (d *payslipServiceDeps) generate(t *testing.T, actorID string) payslip.PayslipResponse {
	t.Helper()
	expectTx(t, d.sqlMock, true)
	resp, err := d.service.Generate(context.Background(), d.snap.CompanyID.String(), actorID, payslip.CalculateRequest{Input: inputFor(d.snap)})
	assert.NoError(t, err)
	return resp
}

func TestPayslipService_Generate(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()

		resp := deps.generate(t, actorID)

		assert.Equal(t, "3000.00", resp.GrossPay)
		assert.Equal(t, "2453.30", resp.NetPay)
		assert.Equal(t, payslip.StatusDraft, resp.Status)
		assert.Equal(t, 1, resp.Version)
		assert.Len(t, deps.repo.active(), 1)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("duplicate active period", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()

		deps.generate(t, actorID)
		expectTx(t, deps.sqlMock, false)
		_, err := deps.service.Generate(ctx, deps.snap.CompanyID.String(), actorID, payslip.CalculateRequest{Input: inputFor(deps.snap)})

		assert.ErrorIs(t, err, payslipserrors.ErrPayslipExists)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("preview does not persist", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()

		resp, err := deps.service.Preview(ctx, deps.snap.CompanyID.String(), actorID, payslip.CalculateRequest{Input: inputFor(deps.snap)})

		assert.NoError(t, err)
		assert.Equal(t, "2453.30", resp.NetPay)
		assert.Empty(t, deps.repo.active())
	})
}

func TestPayslipService_RegenerateChain(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New().String()
	deps := setupPayslipServiceTest(t)
	defer deps.db.Close()
	companyID := deps.snap.CompanyID.String()

	current := deps.generate(t, actorID)

	for i := 2; i <= 4; i++ {
		expectTx(t, deps.sqlMock, true)
		hours := dec("5")
		next, err := deps.service.Regenerate(ctx, companyID, actorID, current.ID, payslip.RegenerateRequest{
			Reason:        "overtime correction",
			OvertimeHours: &hours,
		})
		assert.NoError(t, err)
		assert.Equal(t, i, next.Version)
		assert.Equal(t, current.ID, *next.SupersedesID)
		assert.Equal(t, payslip.StatusDraft, next.Status)
		current = next
	}

	active := deps.repo.active()
	assert.Len(t, active, 1)
	assert.Equal(t, 4, active[0].Version)
	assert.Equal(t, "overtime correction", *active[0].RegenerationReason)

	history, err := deps.service.History(ctx, companyID, current.ID)
	assert.NoError(t, err)
	assert.Len(t, history, 4)
	for i, h := range history {
		assert.Equal(t, i+1, h.Version)
		if i < 3 {
			assert.Equal(t, payslip.StatusVoid, h.Status)
		}
	}
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayslipService_RegenerateFailures(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New().String()

	t.Run("reason required", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Regenerate(ctx, deps.snap.CompanyID.String(), actorID, uuid.New().String(), payslip.RegenerateRequest{Reason: "  "})

		assert.ErrorIs(t, err, payslipserrors.ErrReasonRequired)
	})

	t.Run("concurrent amendment", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()

		first := deps.generate(t, actorID)
		deps.repo.staleVoid = true
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Regenerate(ctx, deps.snap.CompanyID.String(), actorID, first.ID, payslip.RegenerateRequest{Reason: "fix"})

		assert.ErrorIs(t, err, payslipserrors.ErrConcurrentAmendment)
		assert.Len(t, deps.repo.active(), 1)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("voided version", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()

		first := deps.generate(t, actorID)
		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.Regenerate(ctx, deps.snap.CompanyID.String(), actorID, first.ID, payslip.RegenerateRequest{Reason: "fix"})
		assert.NoError(t, err)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.Regenerate(ctx, deps.snap.CompanyID.String(), actorID, first.ID, payslip.RegenerateRequest{Reason: "again"})

		assert.ErrorIs(t, err, payslipserrors.ErrPayslipVoid)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestPayslipService_Publish(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New().String()

	t.Run("issues and enqueues event", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()
		companyID := deps.snap.CompanyID.String()

		draft := deps.generate(t, actorID)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Publish(ctx, companyID, actorID, draft.ID, payslip.PublishRequest{})

		assert.NoError(t, err)
		assert.Equal(t, payslip.StatusIssued, resp.Status)
		assert.Len(t, deps.outbox.created, 1)
		assert.Equal(t, events.PayslipIssuedTopic, deps.outbox.created[0].Topic)
		assert.Equal(t, draft.ID, deps.outbox.created[0].AggregateID)

		expectTx(t, deps.sqlMock, true)
		amended, err := deps.service.Regenerate(ctx, companyID, actorID, draft.ID, payslip.RegenerateRequest{Reason: "late bonus"})
		assert.NoError(t, err)
		assert.Equal(t, payslip.StatusAmended, amended.Status)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.Publish(ctx, companyID, actorID, draft.ID, payslip.PublishRequest{})
		assert.ErrorIs(t, err, payslipserrors.ErrPayslipVoid)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative net requires override", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()
		companyID := deps.snap.CompanyID.String()

		in := inputFor(deps.snap)
		in.Deductions = []payslip.DeductionInput{{Code: "ADV", Label: "Salary advance", Amount: dec("4000")}}
		expectTx(t, deps.sqlMock, true)
		draft, err := deps.service.Generate(ctx, companyID, actorID, payslip.CalculateRequest{Input: in})
		assert.NoError(t, err)
		assert.True(t, draft.RequiresOverride)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.Publish(ctx, companyID, actorID, draft.ID, payslip.PublishRequest{})
		assert.ErrorIs(t, err, payslipserrors.ErrOverrideRequired)
		assert.Empty(t, deps.outbox.created)

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.Publish(ctx, companyID, actorID, draft.ID, payslip.PublishRequest{OverrideReason: "advance agreed with employee"})
		assert.NoError(t, err)
		assert.Equal(t, payslip.StatusIssued, resp.Status)

		stored, _ := deps.repo.FindByID(ctx, draft.ID)
		assert.Equal(t, "advance agreed with employee", *stored.OverrideReason)
		assert.Equal(t, actorID, stored.OverrideBy.String())
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("already issued", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()
		companyID := deps.snap.CompanyID.String()

		draft := deps.generate(t, actorID)
		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.Publish(ctx, companyID, actorID, draft.ID, payslip.PublishRequest{})
		assert.NoError(t, err)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.Publish(ctx, companyID, actorID, draft.ID, payslip.PublishRequest{})
		assert.ErrorIs(t, err, payslipserrors.ErrInvalidStatusTransition)
	})
}

func TestPayslipService_Verify(t *testing.T) {
	ctx := context.Background()
	deps := setupPayslipServiceTest(t)
	defer deps.db.Close()

	slip := deps.generate(t, uuid.New().String())

	t.Run("valid", func(t *testing.T) {
		resp, err := deps.service.Verify(ctx, slip.ID, payslip.VerifyRequest{Token: slip.Signature})
		assert.NoError(t, err)
		assert.True(t, resp.Valid)
		assert.Equal(t, payslip.ReasonSignatureValid, resp.Reason)
	})

	t.Run("wrong token", func(t *testing.T) {
		resp, err := deps.service.Verify(ctx, slip.ID, payslip.VerifyRequest{Token: "00"})
		assert.NoError(t, err)
		assert.False(t, resp.Valid)
	})

	t.Run("unknown payslip", func(t *testing.T) {
		resp, err := deps.service.Verify(ctx, uuid.New().String(), payslip.VerifyRequest{Token: slip.Signature})
		assert.NoError(t, err)
		assert.False(t, resp.Valid)
		assert.Equal(t, "payslip not found", resp.Reason)
	})

	t.Run("token required", func(t *testing.T) {
		_, err := deps.service.Verify(ctx, slip.ID, payslip.VerifyRequest{})
		assert.ErrorIs(t, err, payslipserrors.ErrTokenRequired)
	})
}

func (m *memRepository) attachToRun(id string, runID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.items[uuid.MustParse(id)]
	p.PayrollRunID = &runID
	m.items[p.ID] = p
}

// issueInTx runs IssueForRun inside a transaction it commits or rolls back
// depending on the outcome.
func (d *payslipServiceDeps) issueInTx(t *testing.T, ctx context.Context, actorID string, runID uuid.UUID) (int, error) {
	t.Helper()
	tx, err := d.db.BeginTx(ctx, nil)
	assert.NoError(t, err)
	n, err := d.service.IssueForRun(ctx, tx, d.snap.CompanyID.String(), actorID, runID.String())
	if err != nil {
		assert.NoError(t, tx.Rollback())
		return n, err
	}
	assert.NoError(t, tx.Commit())
	return n, nil
}

func TestPayslipService_IssueForRun(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New().String()

	t.Run("issues drafts of the run", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()
		runID := uuid.New()

		draft := deps.generate(t, actorID)
		deps.repo.attachToRun(draft.ID, runID)

		expectTx(t, deps.sqlMock, true)
		n, err := deps.issueInTx(t, ctx, actorID, runID)

		assert.NoError(t, err)
		assert.Equal(t, 1, n)
		stored, _ := deps.repo.FindByID(ctx, draft.ID)
		assert.Equal(t, payslip.StatusIssued, stored.Status)
		assert.Len(t, deps.outbox.created, 1)

		expectTx(t, deps.sqlMock, true)
		n, err = deps.issueInTx(t, ctx, actorID, runID)
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("pending override blocks the run", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()
		companyID := deps.snap.CompanyID.String()
		runID := uuid.New()

		in := inputFor(deps.snap)
		in.Deductions = []payslip.DeductionInput{{Code: "ADV", Label: "Salary advance", Amount: dec("4000")}}
		expectTx(t, deps.sqlMock, true)
		draft, err := deps.service.Generate(ctx, companyID, actorID, payslip.CalculateRequest{Input: in})
		assert.NoError(t, err)
		deps.repo.attachToRun(draft.ID, runID)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.issueInTx(t, ctx, actorID, runID)

		assert.ErrorIs(t, err, payslipserrors.ErrOverrideRequired)
		assert.Empty(t, deps.outbox.created)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("invalid run id", func(t *testing.T) {
		deps := setupPayslipServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.IssueForRun(ctx, nil, deps.snap.CompanyID.String(), actorID, "bad")
		assert.ErrorIs(t, err, payslipserrors.ErrInvalidInput)
	})
}

// ytdRepository records the window FindPriorYTD is asked for.
type ytdRepository struct {
	*memRepository
	yearStart time.Time
	before    time.Time
}

func (r *ytdRepository) FindPriorYTD(ctx context.Context, companyID string, employeeID string, yearStart, before time.Time) (*payslip.YTD, error) {
	r.yearStart = yearStart
	r.before = before
	return nil, nil
}

func TestResolvePriorYTD_TaxYearWindow(t *testing.T) {
	tests := []struct {
		country string
		want    time.Time
	}{
		{country: "GB", want: time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC)},
		{country: "UK", want: time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC)},
		{country: "RSA", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{country: "ZAF", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{country: "US", want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			repo := &ytdRepository{memRepository: newMemRepository()}
			snap := &directory.CompensationSnapshot{
				EmployeeID: uuid.New(),
				CompanyID:  uuid.New(),
				Country:    tt.country,
			}
			in := payslip.Input{PeriodStart: "2025-02-01", PeriodEnd: "2025-02-28"}

			err := payslip.ResolvePriorYTD(context.Background(), repo, snap, &in)

			assert.NoError(t, err)
			assert.Equal(t, tt.want, repo.yearStart)
			assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), repo.before)
		})
	}
}
