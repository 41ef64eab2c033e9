package payroll

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusDraft      = "DRAFT"
	StatusProcessing = "PROCESSING"
	StatusReview     = "REVIEW"
	StatusApproved   = "APPROVED"
	StatusPaid       = "PAID"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// Breakdown dimensions.
const (
	ByCurrency   = "currency"
	ByCountry    = "country"
	ByDepartment = "department"
)

// transitions lists the statuses each status may move to.
var transitions = map[string][]string{
	StatusDraft:      {StatusProcessing, StatusReview, StatusCancelled},
	StatusProcessing: {StatusDraft, StatusReview},
	StatusReview:     {StatusProcessing, StatusApproved, StatusDraft, StatusCancelled},
	StatusApproved:   {StatusPaid, StatusCancelled},
	StatusPaid:       {StatusCompleted},
}

func validStatus(s string) bool {
	switch s {
	case StatusDraft, StatusProcessing, StatusReview, StatusApproved, StatusPaid, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a run may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Totals are money sums over a set of payslips in one currency.
type Totals struct {
	Gross      decimal.Decimal `json:"gross" gorm:"type:numeric(20,4);not null;default:0"`
	Net        decimal.Decimal `json:"net" gorm:"type:numeric(20,4);not null;default:0"`
	Tax        decimal.Decimal `json:"tax" gorm:"type:numeric(20,4);not null;default:0"`
	Employer   decimal.Decimal `json:"employer" gorm:"type:numeric(20,4);not null;default:0"`
	Deductions decimal.Decimal `json:"deductions" gorm:"type:numeric(20,4);not null;default:0"`
}

// EmployerCost is gross pay plus employer contributions.
func (t Totals) EmployerCost() decimal.Decimal {
	return t.Gross.Add(t.Employer)
}

type Breakdown struct {
	Dimension    string `json:"dimension"`
	Key          string `json:"key"`
	Currency     string `json:"currency"`
	PayslipCount int    `json:"payslip_count"`
	Totals
}

// Issue is one entry of the run's error or warning log.
type Issue struct {
	Code       string    `json:"code"`
	EmployeeID string    `json:"employee_id,omitempty"`
	PayslipID  string    `json:"payslip_id,omitempty"`
	BatchID    string    `json:"batch_id,omitempty"`
	Message    string    `json:"message"`
	At         time.Time `json:"at"`
}

// PayrollRun groups the payslips of one pay period. Payslips point at the
// run; the run only keeps aggregates and references.
type PayrollRun struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index:idx_run_company_status,priority:1"`
	Name        string    `gorm:"type:varchar(120);not null"`
	PeriodStart time.Time `gorm:"type:date;not null;index:idx_run_company_period"`
	PeriodEnd   time.Time `gorm:"type:date;not null;index:idx_run_company_period"`
	PayDate     time.Time `gorm:"type:date;not null"`
	Status      string    `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_run_company_status,priority:2"`

	PayslipCount int    `gorm:"not null;default:0"`
	Currency     string `gorm:"type:varchar(3)"`
	Totals       `gorm:"embedded;embeddedPrefix:total_"`
	Breakdowns   datatypes.JSONSlice[Breakdown] `gorm:"type:jsonb"`
	Errors       datatypes.JSONSlice[Issue]     `gorm:"type:jsonb"`
	Warnings     datatypes.JSONSlice[Issue]     `gorm:"type:jsonb"`

	LastBatchID        *uuid.UUID `gorm:"type:uuid"`
	BankFileCount      int        `gorm:"not null;default:0"`
	JournalEntryNumber *string    `gorm:"type:varchar(30)"`

	CreatedBy    uuid.UUID  `gorm:"type:uuid;not null"`
	ApprovedBy   *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt   *time.Time
	PaidBy       *uuid.UUID `gorm:"type:uuid"`
	PaidAt       *time.Time
	CompletedAt  *time.Time
	CancelledBy  *uuid.UUID `gorm:"type:uuid"`
	CancelledAt  *time.Time
	CancelReason *string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PayrollRun) TableName() string {
	return "payroll_runs"
}

// IsOpen reports whether the run still blocks another run on its period.
func (r PayrollRun) IsOpen() bool {
	return r.Status != StatusCancelled
}
