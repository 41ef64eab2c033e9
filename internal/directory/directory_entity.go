package directory

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go-payroll/internal/tax"
)

// CompensationSnapshot is the Employee Directory's read model of one
// employee's pay configuration. The engine never writes it.
type CompensationSnapshot struct {
	EmployeeID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID      uuid.UUID `gorm:"type:uuid;index"`
	EmployeeNumber string    `gorm:"column:employee_number"`
	FullName       string    `gorm:"column:full_name"`
	Department     string    `gorm:"column:department_name"`

	Country      string          `gorm:"column:country"`
	Currency     string          `gorm:"column:currency"`
	BaseSalary   decimal.Decimal `gorm:"type:numeric(18,4);column:base_salary"`
	PayFrequency string          `gorm:"column:pay_frequency"`
	WeeklyHours  decimal.Decimal `gorm:"type:numeric(6,2);column:weekly_hours"`

	TaxCode      string `gorm:"column:tax_code"`
	FilingStatus string `gorm:"column:filing_status"`
	State        string `gorm:"column:tax_state"`
	Age          int    `gorm:"column:age"`
	NICategory   string `gorm:"column:ni_category"`
	ExemptSocial bool   `gorm:"column:exempt_social"`

	PensionEmployeePct decimal.Decimal `gorm:"type:numeric(6,3);column:pension_employee_pct"`
	PensionEmployerPct decimal.Decimal `gorm:"type:numeric(6,3);column:pension_employer_pct"`

	BankAccountName string `gorm:"column:bank_account_name"`
	IBAN            string `gorm:"column:iban"`
	BIC             string `gorm:"column:bic"`
	AccountNumber   string `gorm:"column:account_number"`
	RoutingNumber   string `gorm:"column:routing_number"`
	SortCode        string `gorm:"column:sort_code"`
	BankCode        string `gorm:"column:bank_code"`
	AccountType     string `gorm:"column:account_type"`
}

func (CompensationSnapshot) TableName() string {
	return "employee_compensation_snapshots"
}

func (s CompensationSnapshot) TaxContext() tax.Context {
	return tax.Context{
		Currency:     strings.ToUpper(s.Currency),
		TaxCode:      s.TaxCode,
		FilingStatus: s.FilingStatus,
		State:        s.State,
		Age:          s.Age,
		NICategory:   s.NICategory,
		ExemptSocial: s.ExemptSocial,
	}
}
