package payroll

import (
	"sort"
	"time"

	"go-payroll/internal/payslip"
	"go-payroll/internal/shared/money"
)

// Summary is a run's aggregate view over its active payslips.
type Summary struct {
	PayslipCount int
	// Currency is empty when the payslips are in more than one currency;
	// Totals are then zero and the currency breakdown carries the sums.
	Currency   string
	Totals     Totals
	Breakdowns []Breakdown
	Warnings   []Issue
}

type breakdownKey struct {
	dimension string
	key       string
	currency  string
}

// Summarize totals payslips per currency, country and department. Void
// payslips are ignored.
func Summarize(slips []payslip.Payslip, at time.Time) Summary {
	groups := map[breakdownKey]*Breakdown{}
	add := func(dimension, key string, p payslip.Payslip) {
		k := breakdownKey{dimension: dimension, key: key, currency: p.Currency}
		b, ok := groups[k]
		if !ok {
			b = &Breakdown{Dimension: dimension, Key: key, Currency: p.Currency}
			groups[k] = b
		}
		b.PayslipCount++
		b.Gross = b.Gross.Add(p.GrossPay)
		b.Net = b.Net.Add(p.NetPay)
		b.Tax = b.Tax.Add(p.TotalTax)
		b.Employer = b.Employer.Add(p.TotalEmployer)
		b.Deductions = b.Deductions.Add(p.TotalDeductions)
	}

	var sum Summary
	currencies := map[string]struct{}{}
	for _, p := range slips {
		if !p.IsActive() {
			continue
		}
		sum.PayslipCount++
		currencies[p.Currency] = struct{}{}

		department := p.Department
		if department == "" {
			department = "UNASSIGNED"
		}
		add(ByCurrency, p.Currency, p)
		add(ByCountry, p.Country, p)
		add(ByDepartment, department, p)

		sum.Warnings = append(sum.Warnings, slipWarnings(p, at)...)
	}

	for _, b := range groups {
		b.Gross = money.Round(b.Gross, b.Currency)
		b.Net = money.Round(b.Net, b.Currency)
		b.Tax = money.Round(b.Tax, b.Currency)
		b.Employer = money.Round(b.Employer, b.Currency)
		b.Deductions = money.Round(b.Deductions, b.Currency)
		sum.Breakdowns = append(sum.Breakdowns, *b)
	}
	sort.Slice(sum.Breakdowns, func(i, j int) bool {
		a, b := sum.Breakdowns[i], sum.Breakdowns[j]
		if a.Dimension != b.Dimension {
			return a.Dimension < b.Dimension
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Currency < b.Currency
	})

	if len(currencies) == 1 {
		for c := range currencies {
			sum.Currency = c
		}
		for _, b := range sum.Breakdowns {
			if b.Dimension == ByCurrency {
				sum.Totals = b.Totals
			}
		}
	} else if len(currencies) > 1 {
		sum.Warnings = append(sum.Warnings, Issue{
			Code:    "MULTI_CURRENCY",
			Message: "run spans several currencies; totals are reported per currency",
			At:      at,
		})
	}
	return sum
}

func slipWarnings(p payslip.Payslip, at time.Time) []Issue {
	var out []Issue
	issue := func(code, msg string) {
		out = append(out, Issue{
			Code:       code,
			EmployeeID: p.EmployeeID.String(),
			PayslipID:  p.ID.String(),
			Message:    msg,
			At:         at,
		})
	}
	if p.RequiresOverride && p.OverrideBy == nil {
		issue("OVERRIDE_PENDING", "net pay is negative and needs an approver override")
	}
	for _, w := range p.Warnings {
		issue(w.Code, w.Message)
	}
	return out
}

// ByDimension filters breakdowns to one dimension.
func ByDimension(bs []Breakdown, dimension string) []Breakdown {
	out := []Breakdown{}
	for _, b := range bs {
		if b.Dimension == dimension {
			out = append(out, b)
		}
	}
	return out
}
