package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go-payroll/internal/payslip"
	"go-payroll/internal/shared/money"
	"go-payroll/internal/tax"
)

type postingKey struct {
	account  string
	currency string
}

// accountFor maps a payslip line onto the account plan. Deductions and
// employee taxes are liabilities the employer now owes onward.
func accountFor(l payslip.PayslipLine) string {
	switch l.LineType {
	case payslip.LineEarning:
		switch l.Classification {
		case payslip.ClassBonus:
			return AccountBonuses
		case payslip.ClassOvertime:
			return AccountOvertime
		default:
			return AccountSalaries
		}
	case payslip.LineAllowance:
		return AccountAllowances
	case payslip.LineTax:
		if l.Classification == string(tax.KindSocialContribution) {
			return AccountContributionsPayable
		}
		return AccountTaxPayable
	case payslip.LineDeduction:
		if l.Classification == payslip.ClassPension {
			return AccountContributionsPayable
		}
		return AccountDeductionsPayable
	}
	return ""
}

// postings accumulates signed amounts per (account, currency): positive
// debits, negative credits.
func postings(slips []payslip.Payslip) map[postingKey]decimal.Decimal {
	out := map[postingKey]decimal.Decimal{}
	add := func(account, currency string, amount decimal.Decimal) {
		k := postingKey{account: account, currency: currency}
		out[k] = out[k].Add(amount)
	}

	for _, p := range slips {
		if !p.IsActive() {
			continue
		}
		currency := p.Currency
		for _, l := range p.Lines {
			if l.LineType == payslip.LineEmployer {
				add(AccountEmployerContributions, currency, l.Amount)
				add(AccountContributionsPayable, currency, l.Amount.Neg())
				continue
			}
			account := accountFor(l)
			if account == "" {
				continue
			}
			if accounts[account].Side == SideDebit {
				add(account, currency, l.Amount)
			} else {
				add(account, currency, l.Amount.Neg())
			}
		}
		add(AccountNetSalariesPayable, currency, p.NetPay.Neg())
	}
	return out
}

// Build aggregates the active payslips of a run into one journal entry.
// Lines are ordered by currency then account code; a posting whose sign is
// against its account's natural side lands on the other column.
func Build(companyID, runID uuid.UUID, slips []payslip.Payslip, narration string) JournalEntry {
	entry := JournalEntry{
		ID:           uuid.New(),
		CompanyID:    companyID,
		PayrollRunID: runID,
		Narration:    narration,
	}

	var entryDate time.Time
	for _, p := range slips {
		if !p.IsActive() {
			continue
		}
		entry.PayslipCount++
		if p.PayDate.After(entryDate) {
			entryDate = p.PayDate
		}
	}
	entry.EntryDate = entryDate

	totals := postings(slips)
	keys := make([]postingKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sortPostings(keys)

	lines := make([]JournalLine, 0, len(keys))
	for _, k := range keys {
		amount := money.Round(totals[k], k.currency)
		if amount.IsZero() {
			continue
		}
		acct := accounts[k.account]
		line := JournalLine{
			AccountCode: acct.Code,
			AccountName: acct.Name,
			Currency:    k.currency,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
			Description: describe(acct, narration),
		}
		if amount.IsPositive() {
			line.Debit = amount
		} else {
			line.Credit = amount.Neg()
		}
		lines = append(lines, line)
	}
	entry.Lines = lines
	return entry
}

func sortPostings(keys []postingKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].currency != keys[j].currency {
			return keys[i].currency < keys[j].currency
		}
		return keys[i].account < keys[j].account
	})
}

func describe(a Account, narration string) string {
	if narration == "" {
		return a.Name
	}
	return fmt.Sprintf("%s - %s", a.Name, narration)
}
