package batch

import (
	"github.com/shopspring/decimal"

	"go-payroll/internal/payslip"
)

// EmployeeInput carries the per-employee variable pay for a batch.
type EmployeeInput struct {
	OvertimeHours      decimal.Decimal          `json:"overtime_hours"`
	OvertimeMultiplier *decimal.Decimal         `json:"overtime_multiplier,omitempty"`
	Bonuses            []payslip.BonusInput     `json:"bonuses"`
	Allowances         []payslip.AllowanceInput `json:"allowances"`
	Deductions         []payslip.DeductionInput `json:"deductions"`
}

type Request struct {
	EmployeeIDs  []string                 `json:"employee_ids" binding:"required,min=1"`
	PayrollRunID string                   `json:"payroll_run_id" binding:"omitempty,uuid"`
	PeriodStart  string                   `json:"period_start" binding:"required,datetime=2006-01-02"`
	PeriodEnd    string                   `json:"period_end" binding:"required,datetime=2006-01-02"`
	PayDate      string                   `json:"pay_date" binding:"omitempty,datetime=2006-01-02"`
	Inputs       map[string]EmployeeInput `json:"inputs"`
}

type Result struct {
	BatchID      string            `json:"batch_id"`
	CompanyID    string            `json:"company_id"`
	Status       string            `json:"status"`
	SuccessCount int               `json:"success_count"`
	FailureCount int               `json:"failure_count"`
	TotalAmount  string            `json:"total_amount"`
	Totals       map[string]string `json:"totals_by_currency,omitempty"`
	PayslipIDs   []string          `json:"payslip_ids"`
	Errors       []ItemError       `json:"errors"`
	ExpiresAt    *string           `json:"expires_at,omitempty"`
}

type EntityRequest struct {
	CompanyID string `json:"company_id" binding:"required,uuid"`
	Request
}

type MultiEntityRequest struct {
	Entities []EntityRequest `json:"entities" binding:"required,min=1,dive"`
}

type EntityResult struct {
	CompanyID string     `json:"company_id"`
	Result    *Result    `json:"result,omitempty"`
	Error     *ItemError `json:"error,omitempty"`
}

type RollbackResponse struct {
	BatchID      string `json:"batch_id"`
	Status       string `json:"status"`
	VoidedCount  int64  `json:"voided_count"`
	RolledBackAt string `json:"rolled_back_at"`
}
