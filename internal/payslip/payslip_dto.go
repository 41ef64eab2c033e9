package payslip

import (
	"github.com/shopspring/decimal"
)

type BonusInput struct {
	Code       string          `json:"code" validate:"required,max=40"`
	Label      string          `json:"label" validate:"required,max=120"`
	Amount     decimal.Decimal `json:"amount"`
	NonTaxable bool            `json:"non_taxable"`
}

type AllowanceInput struct {
	Code            string          `json:"code" validate:"required,max=40"`
	Label           string          `json:"label" validate:"required,max=120"`
	Amount          decimal.Decimal `json:"amount"`
	Taxable         bool            `json:"taxable"`
	SocialEligible  bool            `json:"social_eligible"`
	PensionEligible bool            `json:"pension_eligible"`
}

type DeductionInput struct {
	Code   string          `json:"code" validate:"required,max=40"`
	Label  string          `json:"label" validate:"required,max=120"`
	Amount decimal.Decimal `json:"amount"`
	PreTax bool            `json:"pre_tax"`
}

// Input is everything beyond the Directory snapshot needed to compute a
// payslip. It is stored on the payslip so a regeneration can replay it.
type Input struct {
	EmployeeID         string           `json:"employee_id" validate:"required,uuid"`
	PayrollRunID       string           `json:"payroll_run_id,omitempty" validate:"omitempty,uuid"`
	PeriodStart        string           `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd          string           `json:"period_end" validate:"required,datetime=2006-01-02"`
	PayDate            string           `json:"pay_date" validate:"omitempty,datetime=2006-01-02"`
	OvertimeHours      decimal.Decimal  `json:"overtime_hours"`
	OvertimeMultiplier *decimal.Decimal `json:"overtime_multiplier,omitempty"`
	Bonuses            []BonusInput     `json:"bonuses" validate:"dive"`
	Allowances         []AllowanceInput `json:"allowances" validate:"dive"`
	Deductions         []DeductionInput `json:"deductions" validate:"dive"`
	PriorYTD           *YTD             `json:"prior_ytd,omitempty"`
}

type CalculateRequest struct {
	Input
}

// RegenerateRequest carries the mandatory reason and any corrections. A nil
// field keeps the stored value.
type RegenerateRequest struct {
	Reason             string            `json:"reason" binding:"required"`
	OvertimeHours      *decimal.Decimal  `json:"overtime_hours,omitempty"`
	OvertimeMultiplier *decimal.Decimal  `json:"overtime_multiplier,omitempty"`
	Bonuses            *[]BonusInput     `json:"bonuses,omitempty"`
	Allowances         *[]AllowanceInput `json:"allowances,omitempty"`
	Deductions         *[]DeductionInput `json:"deductions,omitempty"`
	PayDate            *string           `json:"pay_date,omitempty"`
}

type PublishRequest struct {
	OverrideReason string `json:"override_reason"`
}

type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

type VerifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

type LineResponse struct {
	Type           string         `json:"type"`
	Classification string         `json:"classification,omitempty"`
	Code           string         `json:"code"`
	Label          string         `json:"label"`
	Quantity       string         `json:"quantity"`
	Rate           *string        `json:"rate,omitempty"`
	Amount         string         `json:"amount"`
	Taxable        bool           `json:"taxable"`
	PreTax         bool           `json:"pre_tax"`
	Jurisdiction   string         `json:"jurisdiction,omitempty"`
	Basis          string         `json:"basis,omitempty"`
	Trace          *TraceResponse `json:"trace,omitempty"`
}

type TraceResponse struct {
	Kind         string `json:"kind"`
	Formula      string `json:"formula"`
	TableVersion string `json:"table_version,omitempty"`
	Detail       any    `json:"detail,omitempty"`
}

type PayslipResponse struct {
	ID               string         `json:"id"`
	CompanyID        string         `json:"company_id"`
	EmployeeID       string         `json:"employee_id"`
	EmployeeName     string         `json:"employee_name"`
	PayrollRunID     *string        `json:"payroll_run_id,omitempty"`
	BatchID          *string        `json:"batch_id,omitempty"`
	PeriodStart      string         `json:"period_start"`
	PeriodEnd        string         `json:"period_end"`
	PayDate          string         `json:"pay_date"`
	Country          string         `json:"country"`
	Currency         string         `json:"currency"`
	Status           string         `json:"status"`
	Version          int            `json:"version"`
	SupersedesID     *string        `json:"supersedes_id,omitempty"`
	GrossPay         string         `json:"gross_pay"`
	TaxableBase      string         `json:"taxable_base"`
	TotalPreTax      string         `json:"total_pre_tax"`
	TotalTax         string         `json:"total_tax"`
	TotalPostTax     string         `json:"total_post_tax"`
	TotalDeductions  string         `json:"total_deductions"`
	TotalEmployer    string         `json:"total_employer"`
	NetPay           string         `json:"net_pay"`
	YTD              YTDResponse    `json:"ytd"`
	TaxJurisdiction  string         `json:"tax_jurisdiction"`
	UsedFallback     bool           `json:"used_fallback"`
	RequiresOverride bool           `json:"requires_override"`
	Warnings         []Warning      `json:"warnings"`
	Signature        string         `json:"signature"`
	Lines            []LineResponse `json:"lines"`
}

type YTDResponse struct {
	Gross   string `json:"gross"`
	Tax     string `json:"tax"`
	PreTax  string `json:"pre_tax"`
	PostTax string `json:"post_tax"`
}

type HistoryItemResponse struct {
	ID                 string  `json:"id"`
	Version            int     `json:"version"`
	Status             string  `json:"status"`
	SupersedesID       *string `json:"supersedes_id,omitempty"`
	RegenerationReason *string `json:"regeneration_reason,omitempty"`
	NetPay             string  `json:"net_pay"`
	GeneratedAt        string  `json:"generated_at"`
}
