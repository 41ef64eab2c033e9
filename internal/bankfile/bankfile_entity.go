package bankfile

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Record is the stored reference of a generated bank file.
type Record struct {
	ID           uuid.UUID                      `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID                      `gorm:"type:uuid;not null;index:idx_bank_file_run,priority:1"`
	PayrollRunID uuid.UUID                      `gorm:"type:uuid;not null;index:idx_bank_file_run,priority:2"`
	Format       string                         `gorm:"type:varchar(10);not null"`
	Sequence     int64                          `gorm:"not null"`
	Filename     string                         `gorm:"type:varchar(120);not null"`
	StorageURI   string                         `gorm:"type:text;not null"`
	Currency     string                         `gorm:"type:varchar(3);not null"`
	PaymentCount int                            `gorm:"not null"`
	ControlSum   decimal.Decimal                `gorm:"type:numeric(18,4);not null"`
	Rejected     datatypes.JSONSlice[Rejection] `gorm:"type:jsonb"`
	ValueDate    time.Time                      `gorm:"type:date;not null"`
	CreatedBy    uuid.UUID                      `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
}

func (Record) TableName() string {
	return "payroll_bank_files"
}
