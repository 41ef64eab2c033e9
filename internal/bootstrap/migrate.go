package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-payroll/internal/bankfile"
	"go-payroll/internal/batch"
	"go-payroll/internal/directory"
	"go-payroll/internal/ledger"
	"go-payroll/internal/payroll"
	"go-payroll/internal/payslip"
)

// Tables written through database/sql have no gorm model.
var rawSchema = []string{
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id uuid PRIMARY KEY,
		request_id text,
		aggregate_type text NOT NULL,
		aggregate_id uuid NOT NULL,
		event_type text NOT NULL,
		topic text NOT NULL,
		payload jsonb NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		retry_count int NOT NULL DEFAULT 0,
		next_retry_at timestamptz NOT NULL DEFAULT now(),
		error_message text,
		processed_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_pending ON outbox_events (status, next_retry_at)`,
	`CREATE TABLE IF NOT EXISTS company_counters (
		company_id uuid NOT NULL,
		counter_type text NOT NULL,
		last_value bigint NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (company_id, counter_type)
	)`,
}

// Migrate brings the schema up to date. It is safe to run on every start.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&directory.CompensationSnapshot{},
		&payslip.Payslip{},
		&payslip.PayslipLine{},
		&batch.Record{},
		&bankfile.Record{},
		&ledger.JournalEntry{},
		&payroll.PayrollRun{},
	)
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	for _, stmt := range rawSchema {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("raw schema: %w", err)
		}
	}
	zap.L().Named("bootstrap").Info("schema migrated")
	return nil
}
