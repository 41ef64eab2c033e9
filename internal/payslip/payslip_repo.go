package payslip

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	payslipserrors "go-payroll/internal/payslip/errors"
	"go-payroll/internal/shared/connection"
	"go-payroll/internal/tenant"
)

const activePeriodConstraint = "uq_payslip_active_period"

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, p *Payslip) error
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Payslip, error)
	FindByID(ctx context.Context, id string) (*Payslip, error)
	FindChain(ctx context.Context, companyID string, id string) ([]Payslip, error)
	FindActiveByRun(ctx context.Context, companyID string, runID string) ([]Payslip, error)
	ExistsActive(ctx context.Context, companyID string, employeeID string, periodStart, periodEnd time.Time) (bool, error)
	FindPriorYTD(ctx context.Context, companyID string, employeeID string, yearStart, before time.Time) (*YTD, error)
	Void(ctx context.Context, companyID string, id string, version int, reason string, at time.Time) (bool, error)
	VoidMany(ctx context.Context, companyID string, ids []string, reason string, at time.Time) (int64, error)
	VoidByBatch(ctx context.Context, companyID string, batchID string, reason string, at time.Time) (int64, error)
	MarkIssued(ctx context.Context, p *Payslip) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return connection.GormConn(ctx, r.db, r.tx)
}

func (r *repository) Create(ctx context.Context, p *Payslip) error {
	err := r.conn(ctx).Create(p).Error
	if isActivePeriodViolation(err) {
		return payslipserrors.ErrPayslipExists
	}
	return err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Payslip, error) {
	var p Payslip
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payslipserrors.ErrPayslipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByID is unscoped; it serves the public verification path only.
func (r *repository) FindByID(ctx context.Context, id string) (*Payslip, error) {
	var p Payslip
	err := r.conn(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payslipserrors.ErrPayslipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindChain walks supersedes links in both directions from id and returns
// every version, oldest first.
func (r *repository) FindChain(ctx context.Context, companyID string, id string) ([]Payslip, error) {
	var chain []Payslip
	err := r.conn(ctx).Raw(`
		WITH RECURSIVE back AS (
			SELECT * FROM payslips WHERE id = ? AND company_id = ?
			UNION ALL
			SELECT p.* FROM payslips p JOIN back b ON p.id = b.supersedes_id
		), fwd AS (
			SELECT * FROM payslips WHERE id = ? AND company_id = ?
			UNION ALL
			SELECT p.* FROM payslips p JOIN fwd f ON p.supersedes_id = f.id
		)
		SELECT * FROM back
		UNION
		SELECT * FROM fwd
		ORDER BY version ASC
	`, id, companyID, id, companyID).Scan(&chain).Error
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, payslipserrors.ErrPayslipNotFound
	}
	return chain, nil
}

func (r *repository) FindActiveByRun(ctx context.Context, companyID string, runID string) ([]Payslip, error) {
	var slips []Payslip
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("payroll_run_id = ? AND status <> ?", runID, StatusVoid).
		Order("employee_name ASC, id ASC").
		Find(&slips).Error
	return slips, err
}

func (r *repository) ExistsActive(ctx context.Context, companyID string, employeeID string, periodStart, periodEnd time.Time) (bool, error) {
	var count int64
	err := r.conn(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ? AND period_start = ? AND period_end = ? AND status <> ?", employeeID, periodStart, periodEnd, StatusVoid).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindPriorYTD(ctx context.Context, companyID string, employeeID string, yearStart, before time.Time) (*YTD, error) {
	var p Payslip
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Select("ytd_gross", "ytd_tax", "ytd_pre_tax", "ytd_post_tax").
		Where("employee_id = ? AND status <> ? AND period_start >= ? AND period_end < ?", employeeID, StatusVoid, yearStart, before).
		Order("period_end DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ytd := p.YTD()
	return &ytd, nil
}

// Void flips one version to VOID only if it is still active at the given
// version. false means another writer got there first.
func (r *repository) Void(ctx context.Context, companyID string, id string, version int, reason string, at time.Time) (bool, error) {
	res := r.conn(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(companyID)).
		Where("id = ? AND version = ? AND status <> ?", id, version, StatusVoid).
		Updates(map[string]any{
			"status":      StatusVoid,
			"void_reason": reason,
			"voided_at":   at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) VoidMany(ctx context.Context, companyID string, ids []string, reason string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.conn(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(companyID)).
		Where("id IN ? AND status <> ?", ids, StatusVoid).
		Updates(map[string]any{
			"status":      StatusVoid,
			"void_reason": reason,
			"voided_at":   at,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}

// VoidByBatch voids every live version tagged with the batch, amendments
// included.
func (r *repository) VoidByBatch(ctx context.Context, companyID string, batchID string, reason string, at time.Time) (int64, error) {
	res := r.conn(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(companyID)).
		Where("batch_id = ? AND status <> ?", batchID, StatusVoid).
		Updates(map[string]any{
			"status":      StatusVoid,
			"void_reason": reason,
			"voided_at":   at,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkIssued(ctx context.Context, p *Payslip) error {
	return r.conn(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(p.CompanyID.String())).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":          p.Status,
			"issued_at":       p.IssuedAt,
			"issued_by":       p.IssuedBy,
			"override_reason": p.OverrideReason,
			"override_by":     p.OverrideBy,
			"updated_at":      p.UpdatedAt,
		}).Error
}

func isActivePeriodViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == activePeriodConstraint
	}
	return false
}
