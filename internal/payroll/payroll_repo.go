package payroll

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/connection"
	"go-payroll/internal/tenant"
)

type RunQueryFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, run *PayrollRun) error
	FindAllByCompany(ctx context.Context, companyID string, filter RunQueryFilter) ([]PayrollRun, error)
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*PayrollRun, error)
	FindForUpdate(ctx context.Context, companyID string, id string) (*PayrollRun, error)
	Update(ctx context.Context, run *PayrollRun) error
	CompareAndSetStatus(ctx context.Context, companyID string, id string, from []string, to string, at time.Time) (bool, error)
	HasOpenRunForPeriod(ctx context.Context, companyID string, periodStart, periodEnd time.Time, excludeID *string) (bool, error)
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

func (r *repository) Create(ctx context.Context, run *PayrollRun) error {
	return r.conn(ctx).Create(run).Error
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string, filter RunQueryFilter) ([]PayrollRun, error) {
	var runs []PayrollRun
	query := r.conn(ctx).
		Scopes(tenant.Scope(companyID))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("period_end >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("period_start <= ?", *filter.To)
	}
	err := query.Order("period_start DESC, created_at DESC").Find(&runs).Error
	return runs, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*PayrollRun, error) {
	return r.find(r.conn(ctx), companyID, id)
}

// FindForUpdate locks the row for the rest of the transaction.
func (r *repository) FindForUpdate(ctx context.Context, companyID string, id string) (*PayrollRun, error) {
	return r.find(r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), companyID, id)
}

func (r *repository) find(db *gorm.DB, companyID string, id string) (*PayrollRun, error) {
	var run PayrollRun
	err := db.
		Scopes(tenant.Scope(companyID)).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payrollerrors.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *repository) Update(ctx context.Context, run *PayrollRun) error {
	return r.conn(ctx).Save(run).Error
}

// CompareAndSetStatus moves the run to the target status only when it is
// currently in one of from. It reports whether the row changed.
func (r *repository) CompareAndSetStatus(ctx context.Context, companyID string, id string, from []string, to string, at time.Time) (bool, error) {
	res := r.conn(ctx).
		Model(&PayrollRun{}).
		Scopes(tenant.Scope(companyID)).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) HasOpenRunForPeriod(ctx context.Context, companyID string, periodStart, periodEnd time.Time, excludeID *string) (bool, error) {
	var count int64
	query := r.conn(ctx).
		Model(&PayrollRun{}).
		Scopes(tenant.Scope(companyID)).
		Where("status <> ?", StatusCancelled).
		Where("period_start = ? AND period_end = ?", periodStart, periodEnd)
	if excludeID != nil && *excludeID != "" {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}
