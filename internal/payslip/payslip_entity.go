package payslip

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"go-payroll/internal/tax"
)

const (
	StatusDraft   = "DRAFT"
	StatusIssued  = "ISSUED"
	StatusAmended = "AMENDED"
	StatusVoid    = "VOID"
)

const (
	LineEarning   = "EARNING"
	LineAllowance = "ALLOWANCE"
	LineDeduction = "DEDUCTION"
	LineTax       = "TAX"
	LineEmployer  = "EMPLOYER"
)

// Earning classifications.
const (
	ClassBase     = "BASE"
	ClassOvertime = "OVERTIME"
	ClassBonus    = "BONUS"
	ClassPension  = "PENSION"
)

const (
	WarnTaxableBaseClamped = "TAXABLE_BASE_CLAMPED"
	WarnTaxFallbackUsed    = "TAX_FALLBACK_USED"
	WarnNegativeNetPay     = "NEGATIVE_NET_PAY"
)

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type YTD struct {
	Gross   decimal.Decimal `json:"gross"`
	Tax     decimal.Decimal `json:"tax"`
	PreTax  decimal.Decimal `json:"pre_tax"`
	PostTax decimal.Decimal `json:"post_tax"`
}

func (y YTD) Add(o YTD) YTD {
	return YTD{
		Gross:   y.Gross.Add(o.Gross),
		Tax:     y.Tax.Add(o.Tax),
		PreTax:  y.PreTax.Add(o.PreTax),
		PostTax: y.PostTax.Add(o.PostTax),
	}
}

// Payslip is one employee's pay document for one period and version. Rows
// are never deleted; a regeneration voids the old row and links the new
// one through SupersedesID.
type Payslip struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_payslip_company_status"`
	EmployeeID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_payslip_active_period,where:status <> 'VOID'"`
	PayrollRunID *uuid.UUID `gorm:"type:uuid;index"`
	BatchID      *uuid.UUID `gorm:"type:uuid;index"`

	EmployeeName string `gorm:"type:varchar(150)"`
	Department   string `gorm:"type:varchar(120)"`

	PeriodStart time.Time `gorm:"type:date;not null;uniqueIndex:uq_payslip_active_period"`
	PeriodEnd   time.Time `gorm:"type:date;not null;uniqueIndex:uq_payslip_active_period"`
	PayDate     time.Time `gorm:"type:date;not null"`
	Country     string    `gorm:"type:varchar(3);not null"`
	Currency    string    `gorm:"type:varchar(3);not null"`
	Frequency   string    `gorm:"type:varchar(20);not null"`

	Status       string     `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_payslip_company_status"`
	Version      int        `gorm:"not null;default:1"`
	SupersedesID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`

	GrossPay        decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	TaxableBase     decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	TotalPreTax     decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	TotalTax        decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	TotalPostTax    decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	TotalDeductions decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	TotalEmployer   decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	NetPay          decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`

	YTDGross   decimal.Decimal `gorm:"column:ytd_gross;type:numeric(18,4);not null;default:0"`
	YTDTax     decimal.Decimal `gorm:"column:ytd_tax;type:numeric(18,4);not null;default:0"`
	YTDPreTax  decimal.Decimal `gorm:"column:ytd_pre_tax;type:numeric(18,4);not null;default:0"`
	YTDPostTax decimal.Decimal `gorm:"column:ytd_post_tax;type:numeric(18,4);not null;default:0"`

	TaxJurisdiction  string                       `gorm:"type:varchar(10)"`
	UsedFallback     bool                         `gorm:"not null;default:false"`
	Warnings         datatypes.JSONSlice[Warning] `gorm:"type:jsonb"`
	RequiresOverride bool                         `gorm:"not null;default:false"`
	Input            datatypes.JSONType[Input]    `gorm:"type:jsonb"`

	OverrideReason     *string    `gorm:"type:text"`
	OverrideBy         *uuid.UUID `gorm:"type:uuid"`
	RegenerationReason *string    `gorm:"type:text"`
	VoidReason         *string    `gorm:"type:text"`

	Signature   string `gorm:"type:varchar(64);not null"`
	GeneratedAt time.Time
	IssuedAt    *time.Time
	IssuedBy    *uuid.UUID `gorm:"type:uuid"`
	VoidedAt    *time.Time
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Lines []PayslipLine `gorm:"foreignKey:PayslipID"`
}

// PayslipLine holds earnings, allowances, deductions, taxes and employer
// contributions in one child table, distinguished by LineType.
type PayslipLine struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	PayslipID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	CompanyID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	Position       int              `gorm:"not null"`
	LineType       string           `gorm:"type:varchar(20);not null;index"`
	Classification string           `gorm:"type:varchar(20)"`
	Code           string           `gorm:"type:varchar(40);not null"`
	Label          string           `gorm:"type:varchar(120);not null"`
	Quantity       decimal.Decimal  `gorm:"type:numeric(18,4);not null;default:1"`
	Rate           *decimal.Decimal `gorm:"type:numeric(18,6)"`
	Amount         decimal.Decimal  `gorm:"type:numeric(18,4);not null;default:0"`

	Taxable         bool `gorm:"not null;default:false"`
	SocialEligible  bool `gorm:"not null;default:false"`
	PensionEligible bool `gorm:"not null;default:false"`
	PreTax          bool `gorm:"not null;default:false"`

	Jurisdiction string                        `gorm:"type:varchar(10)"`
	Basis        string                        `gorm:"type:varchar(30)"`
	TaxableBase  *decimal.Decimal              `gorm:"type:numeric(18,4)"`
	Trace        datatypes.JSONType[tax.Trace] `gorm:"type:jsonb"`

	CreatedAt time.Time
}

func (p *Payslip) LinesOf(lineType string) []PayslipLine {
	out := make([]PayslipLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		if l.LineType == lineType {
			out = append(out, l)
		}
	}
	return out
}

func (p *Payslip) YTD() YTD {
	return YTD{Gross: p.YTDGross, Tax: p.YTDTax, PreTax: p.YTDPreTax, PostTax: p.YTDPostTax}
}

func (p *Payslip) IsActive() bool {
	return p.Status != StatusVoid
}

func traceOf(t tax.Trace) datatypes.JSONType[tax.Trace] {
	return datatypes.NewJSONType(t)
}

func datatypesInput(in Input) datatypes.JSONType[Input] {
	return datatypes.NewJSONType(in)
}
