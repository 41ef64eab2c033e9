package batch

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	batcherrors "go-payroll/internal/batch/errors"
	"go-payroll/internal/shared/connection"
	"go-payroll/internal/tenant"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, rec *Record) error
	FindRollbackable(ctx context.Context, companyID string, id string, now time.Time) (*Record, error)
	MarkRolledBack(ctx context.Context, companyID string, id string, actorID uuid.UUID, at time.Time) (bool, error)
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
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

// FindRollbackable returns the record only while it is committed and
// inside its rollback window. The row is locked for the caller's tx.
func (r *repository) FindRollbackable(ctx context.Context, companyID string, id string, now time.Time) (*Record, error) {
	var rec Record
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status = ? AND expires_at > ?", id, RecordCommitted, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, batcherrors.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) MarkRolledBack(ctx context.Context, companyID string, id string, actorID uuid.UUID, at time.Time) (bool, error) {
	res := r.conn(ctx).
		Model(&Record{}).
		Scopes(tenant.Scope(companyID)).
		Where("id = ? AND status = ?", id, RecordCommitted).
		Updates(map[string]any{
			"status":         RecordRolledBack,
			"rolled_back_at": at,
			"rolled_back_by": actorID,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.conn(ctx).
		Model(&Record{}).
		Where("status = ? AND expires_at <= ?", RecordCommitted, now).
		Updates(map[string]any{
			"status":     RecordExpired,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}
