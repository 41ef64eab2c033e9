package tax

import (
	"github.com/shopspring/decimal"
)

const (
	ngJurisdiction = "NG"
	ngVersion      = "NG-PITA-2011"
)

var (
	ngBands = BandTable{
		Version: ngVersion,
		Bands: []Band{
			{Name: "first_300k", Width: d("300000"), Rate: pct("7")},
			{Name: "next_300k", Width: d("300000"), Rate: pct("11")},
			{Name: "next_500k", Width: d("500000"), Rate: pct("15")},
			{Name: "next_500k_2", Width: d("500000"), Rate: pct("19")},
			{Name: "next_1.6m", Width: d("1600000"), Rate: pct("21")},
			{Name: "above_3.2m", Rate: pct("24")},
		},
	}

	ngCRAFloor        = d("200000")
	ngCRAFloorRate    = pct("1")
	ngCRAVariableRate = pct("20")
	ngMinimumTaxRate  = pct("1")
	ngMinimumWageCap  = d("360000")
	ngNHFRate         = pct("2.5")
	ngNSITFRate       = pct("1")
	ngITFRate         = pct("1")
)

type NGModule struct{}

func NewNGModule() *NGModule { return &NGModule{} }

func (m *NGModule) Code() string { return ngJurisdiction }

func (m *NGModule) EmployeeTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, []string, error) {
	periods, err := freq.PeriodsPerYear()
	if err != nil {
		return nil, nil, err
	}
	annualBase := base.Mul(decimal.NewFromInt(periods))

	// Consolidated relief: the higher of 200,000 or 1% of gross, plus 20%.
	cra := decimal.Max(ngCRAFloor, annualBase.Mul(ngCRAFloorRate)).Add(annualBase.Mul(ngCRAVariableRate))
	table := ngBands.WithAllowance("consolidated_relief", cra)

	formula := "max(sum(band_width_taken * band_rate), 1% of gross) / periods"
	adjust := func(annualTax decimal.Decimal) decimal.Decimal {
		if annualBase.LessThanOrEqual(ngMinimumWageCap) {
			return decimal.Zero
		}
		return decimal.Max(annualTax, annualBase.Mul(ngMinimumTaxRate))
	}
	if annualBase.LessThanOrEqual(ngMinimumWageCap) {
		formula = "exempt: annual income at or below minimum wage threshold"
	}

	paye, err := bandedLine(
		ngJurisdiction, "PAYE", "PAYE (PITA)",
		BasisPITA, KindIncomeTax,
		base, freq, table, formula, adjust,
	)
	if err != nil {
		return nil, nil, err
	}
	lines := []Line{paye}

	if !tc.ExemptSocial {
		lines = append(lines, flatLine(
			ngJurisdiction, "NHF", "National Housing Fund",
			BasisNHF, KindSocialContribution,
			base, ngNHFRate,
			"taxable_base * nhf_rate", ngVersion,
		))
	}

	return lines, nil, nil
}

func (m *NGModule) EmployerTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, error) {
	if _, err := freq.PeriodsPerYear(); err != nil {
		return nil, err
	}
	if tc.ExemptSocial {
		return nil, nil
	}

	return []Line{
		flatLine(
			ngJurisdiction, "NSITF", "NSITF Employee Compensation",
			BasisNSITF, KindSocialContribution,
			base, ngNSITFRate,
			"taxable_base * nsitf_rate", ngVersion,
		),
		flatLine(
			ngJurisdiction, "ITF", "Industrial Training Fund",
			BasisITF, KindSocialContribution,
			base, ngITFRate,
			"taxable_base * itf_rate", ngVersion,
		),
	}, nil
}
