package batch

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Result statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"
	StatusFailed  = "FAILED"
)

// Record statuses.
const (
	RecordCommitted  = "COMMITTED"
	RecordRolledBack = "ROLLED_BACK"
	RecordExpired    = "EXPIRED"
)

type ItemError struct {
	EmployeeID string `json:"employee_id,omitempty"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Record is the durable rollback handle of a committed batch.
type Record struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_batch_company_status,priority:1"`
	PayrollRunID *uuid.UUID `gorm:"type:uuid;index"`
	PeriodStart  time.Time  `gorm:"type:date;not null"`
	PeriodEnd    time.Time  `gorm:"type:date;not null"`

	Status       string                         `gorm:"type:varchar(20);not null;index:idx_batch_company_status,priority:2"`
	PayslipIDs   datatypes.JSONSlice[string]    `gorm:"type:jsonb;not null"`
	Errors       datatypes.JSONSlice[ItemError] `gorm:"type:jsonb"`
	SuccessCount int                            `gorm:"not null"`
	FailureCount int                            `gorm:"not null"`
	TotalAmount  decimal.Decimal                `gorm:"type:numeric(20,4);not null"`

	CreatedBy    uuid.UUID `gorm:"type:uuid;not null"`
	CommittedAt  time.Time `gorm:"not null"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	RolledBackAt *time.Time
	RolledBackBy *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Record) TableName() string {
	return "payroll_batches"
}
