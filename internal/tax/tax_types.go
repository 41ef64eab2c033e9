package tax

import (
	"strings"

	"github.com/shopspring/decimal"

	"go-payroll/internal/shared/money"
	taxerrors "go-payroll/internal/tax/errors"
)

type Frequency string

const (
	FrequencyWeekly      Frequency = "WEEKLY"
	FrequencyBiweekly    Frequency = "BIWEEKLY"
	FrequencySemiMonthly Frequency = "SEMI_MONTHLY"
	FrequencyMonthly     Frequency = "MONTHLY"
	FrequencyAnnual      Frequency = "ANNUAL"
)

var periodsPerYear = map[Frequency]int64{
	FrequencyWeekly:      52,
	FrequencyBiweekly:    26,
	FrequencySemiMonthly: 24,
	FrequencyMonthly:     12,
	FrequencyAnnual:      1,
}

func ParseFrequency(v string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(v)))
	if _, ok := periodsPerYear[f]; !ok {
		return "", taxerrors.ErrUnsupportedFrequency
	}
	return f, nil
}

// PeriodsPerYear is the fixed annualisation multiplier for the frequency.
func (f Frequency) PeriodsPerYear() (int64, error) {
	n, ok := periodsPerYear[f]
	if !ok {
		return 0, taxerrors.ErrUnsupportedFrequency
	}
	return n, nil
}

func (f Frequency) Valid() bool {
	_, ok := periodsPerYear[f]
	return ok
}

// Annualize multiplies a per-period amount by the frequency multiplier.
func Annualize(perPeriod decimal.Decimal, f Frequency) (decimal.Decimal, error) {
	n, err := f.PeriodsPerYear()
	if err != nil {
		return decimal.Zero, err
	}
	return perPeriod.Mul(decimal.NewFromInt(n)), nil
}

// Deannualize divides an annual amount by the same multiplier Annualize used.
func Deannualize(annual decimal.Decimal, f Frequency) (decimal.Decimal, error) {
	n, err := f.PeriodsPerYear()
	if err != nil {
		return decimal.Zero, err
	}
	return annual.Div(decimal.NewFromInt(n)), nil
}

// Basis is the statutory scheme a line belongs to.
type Basis string

const (
	BasisPAYE     Basis = "PAYE"
	BasisNI       Basis = "NI"
	BasisFederal  Basis = "FEDERAL_INCOME"
	BasisState    Basis = "STATE_INCOME"
	BasisFICA     Basis = "FICA"
	BasisFUTA     Basis = "FUTA"
	BasisPITA     Basis = "PITA"
	BasisNHF      Basis = "NHF"
	BasisNSITF    Basis = "NSITF"
	BasisITF      Basis = "ITF"
	BasisSARSPAYE Basis = "SARS_PAYE"
	BasisUIF      Basis = "UIF"
	BasisSDL      Basis = "SDL"
	BasisFlat     Basis = "FLAT"
)

type Kind string

const (
	KindIncomeTax          Kind = "INCOME_TAX"
	KindSocialContribution Kind = "SOCIAL_CONTRIBUTION"
)

// Line is one computed tax or contribution amount for a pay period.
type Line struct {
	Jurisdiction string           `json:"jurisdiction"`
	Code         string           `json:"code"`
	Label        string           `json:"label"`
	Basis        Basis            `json:"basis"`
	Kind         Kind             `json:"kind"`
	TaxableBase  decimal.Decimal  `json:"taxable_base"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	Amount       decimal.Decimal  `json:"amount"`
	Trace        Trace            `json:"trace"`
}

// Context carries the per-employee tax profile a module may need.
type Context struct {
	Currency     string
	TaxCode      string
	FilingStatus string
	State        string
	Age          int
	NICategory   string
	ExemptSocial bool
}

type Result struct {
	Jurisdiction  string
	Lines         []Line
	EmployerLines []Line
	TotalEmployee decimal.Decimal
	TotalEmployer decimal.Decimal
	UsedFallback  bool
	Warnings      []string
}

// Module is a single jurisdiction's tax engine. Employee and employer sides
// are computed independently from the same taxable base.
type Module interface {
	Code() string
	EmployeeTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, []string, error)
	EmployerTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, error)
}

// Calculate runs both sides of a module and totals them.
func Calculate(m Module, base decimal.Decimal, freq Frequency, tc Context) (Result, error) {
	if base.IsNegative() {
		return Result{}, taxerrors.ErrNegativeTaxableBase
	}

	lines, warnings, err := m.EmployeeTaxes(base, freq, tc)
	if err != nil {
		return Result{}, err
	}
	employer, err := m.EmployerTaxes(base, freq, tc)
	if err != nil {
		return Result{}, err
	}

	roundLines(lines, tc.Currency)
	roundLines(employer, tc.Currency)

	return Result{
		Jurisdiction:  m.Code(),
		Lines:         lines,
		EmployerLines: employer,
		TotalEmployee: SumLines(lines),
		TotalEmployer: SumLines(employer),
		Warnings:      warnings,
	}, nil
}

func SumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

// roundLines brings each line to the currency's minor unit. Traces keep the
// unrounded annual figures.
func roundLines(lines []Line, currency string) {
	for i := range lines {
		lines[i].Amount = money.Round(lines[i].Amount, currency)
		lines[i].TaxableBase = money.Round(lines[i].TaxableBase, currency)
	}
}
