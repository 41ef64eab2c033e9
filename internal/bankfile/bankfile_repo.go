package bankfile

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"go-payroll/internal/shared/connection"
	"go-payroll/internal/tenant"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, rec *Record) error
	FindByRun(ctx context.Context, companyID string, runID string) ([]Record, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return connection.GormConn(ctx, r.db, r.tx)
}

func (r *repository) Create(ctx context.Context, rec *Record) error {
	return r.conn(ctx).Create(rec).Error
}

func (r *repository) FindByRun(ctx context.Context, companyID string, runID string) ([]Record, error) {
	var out []Record
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("payroll_run_id = ?", runID).
		Order("sequence ASC").
		Find(&out).Error
	return out, err
}
