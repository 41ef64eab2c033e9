package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"go-payroll/internal/shared/connection"
	"go-payroll/internal/tenant"
)

const runConstraint = "uq_journal_run"

// ErrJournalExists reports that another writer stored the run's entry first.
var ErrJournalExists = errors.New("journal entry already exists for payroll run")

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, e *JournalEntry) error
	FindByRun(ctx context.Context, companyID string, runID string) (*JournalEntry, error)
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

func (r *repository) Create(ctx context.Context, e *JournalEntry) error {
	err := r.conn(ctx).Create(e).Error
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == runConstraint {
		return ErrJournalExists
	}
	return err
}

// FindByRun returns nil without error when the run has no entry yet.
func (r *repository) FindByRun(ctx context.Context, companyID string, runID string) (*JournalEntry, error) {
	var e JournalEntry
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("payroll_run_id = ?", runID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
