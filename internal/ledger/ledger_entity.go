package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"go-payroll/internal/shared/money"
)

const (
	SideDebit  = "DEBIT"
	SideCredit = "CREDIT"
)

// Account plan.
const (
	AccountSalaries              = "6000"
	AccountAllowances            = "6010"
	AccountBonuses               = "6020"
	AccountOvertime              = "6030"
	AccountEmployerContributions = "6100"
	AccountTaxPayable            = "2200"
	AccountContributionsPayable  = "2210"
	AccountDeductionsPayable     = "2220"
	AccountNetSalariesPayable    = "2300"
)

type Account struct {
	Code string
	Name string
	Side string
}

var accounts = map[string]Account{
	AccountSalaries:              {AccountSalaries, "Salaries and wages", SideDebit},
	AccountAllowances:            {AccountAllowances, "Allowances expense", SideDebit},
	AccountBonuses:               {AccountBonuses, "Bonus expense", SideDebit},
	AccountOvertime:              {AccountOvertime, "Overtime expense", SideDebit},
	AccountEmployerContributions: {AccountEmployerContributions, "Employer contributions expense", SideDebit},
	AccountTaxPayable:            {AccountTaxPayable, "Tax payable", SideCredit},
	AccountContributionsPayable:  {AccountContributionsPayable, "Contributions payable", SideCredit},
	AccountDeductionsPayable:     {AccountDeductionsPayable, "Other deductions payable", SideCredit},
	AccountNetSalariesPayable:    {AccountNetSalariesPayable, "Net salaries payable", SideCredit},
}

// Accounts lists the plan in code order.
func Accounts() []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

type JournalLine struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Currency    string          `json:"currency"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

// Net is debit minus credit.
func (l JournalLine) Net() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// JournalEntry is the double-entry posting of one payroll run. Amounts are
// fixed at generation; exporters only reshape them.
type JournalEntry struct {
	ID           uuid.UUID                        `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID                        `gorm:"type:uuid;not null;uniqueIndex:uq_journal_run,priority:1"`
	PayrollRunID uuid.UUID                        `gorm:"type:uuid;not null;uniqueIndex:uq_journal_run,priority:2"`
	Number       string                           `gorm:"type:varchar(30);not null"`
	EntryDate    time.Time                        `gorm:"type:date;not null"`
	Narration    string                           `gorm:"type:varchar(200)"`
	PayslipCount int                              `gorm:"not null"`
	Lines        datatypes.JSONSlice[JournalLine] `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time
}

func (JournalEntry) TableName() string {
	return "payroll_journal_entries"
}

type Balance struct {
	Currency   string          `json:"currency"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	Difference decimal.Decimal `json:"difference"`
	Balanced   bool            `json:"balanced"`
}

// Balances totals the entry per currency. A currency balances when the
// difference is below one minor unit of that currency.
func (e JournalEntry) Balances() []Balance {
	byCurrency := map[string]*Balance{}
	order := []string{}
	for _, l := range e.Lines {
		b, ok := byCurrency[l.Currency]
		if !ok {
			b = &Balance{Currency: l.Currency, Debit: decimal.Zero, Credit: decimal.Zero}
			byCurrency[l.Currency] = b
			order = append(order, l.Currency)
		}
		b.Debit = b.Debit.Add(l.Debit)
		b.Credit = b.Credit.Add(l.Credit)
	}

	out := make([]Balance, 0, len(order))
	for _, c := range order {
		b := byCurrency[c]
		b.Difference = b.Debit.Sub(b.Credit)
		b.Balanced = b.Difference.Abs().LessThan(money.MinorUnit(c))
		out = append(out, *b)
	}
	return out
}

func (e JournalEntry) IsBalanced() bool {
	for _, b := range e.Balances() {
		if !b.Balanced {
			return false
		}
	}
	return true
}
