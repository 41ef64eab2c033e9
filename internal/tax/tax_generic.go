package tax

import (
	"github.com/shopspring/decimal"
)

const (
	GenericCode    = "GENERIC"
	genericVersion = "GENERIC-FLAT"
)

// GenericRates configures the flat fallback module.
type GenericRates struct {
	IncomeTax    decimal.Decimal
	Social       decimal.Decimal
	EmployerRate decimal.Decimal
}

func DefaultGenericRates() GenericRates {
	return GenericRates{
		IncomeTax:    pct("15"),
		Social:       pct("5"),
		EmployerRate: pct("10"),
	}
}

// GenericModule applies flat rates for any jurisdiction without a module of
// its own. It never fails for a valid frequency.
type GenericModule struct {
	rates GenericRates
}

func NewGenericModule(rates GenericRates) *GenericModule {
	return &GenericModule{rates: rates}
}

func (m *GenericModule) Code() string { return GenericCode }

func (m *GenericModule) EmployeeTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, []string, error) {
	if _, err := freq.PeriodsPerYear(); err != nil {
		return nil, nil, err
	}

	lines := []Line{
		flatLine(
			GenericCode, "FLAT_TAX", "Income Tax (flat)",
			BasisFlat, KindIncomeTax,
			base, m.rates.IncomeTax,
			"taxable_base * flat_tax_rate", genericVersion,
		),
	}
	if !tc.ExemptSocial {
		lines = append(lines, flatLine(
			GenericCode, "FLAT_SOCIAL", "Social Contribution (flat)",
			BasisFlat, KindSocialContribution,
			base, m.rates.Social,
			"taxable_base * flat_social_rate", genericVersion,
		))
	}
	return lines, nil, nil
}

func (m *GenericModule) EmployerTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, error) {
	if _, err := freq.PeriodsPerYear(); err != nil {
		return nil, err
	}
	if tc.ExemptSocial {
		return nil, nil
	}

	return []Line{
		flatLine(
			GenericCode, "FLAT_EMPLOYER", "Employer Contribution (flat)",
			BasisFlat, KindSocialContribution,
			base, m.rates.EmployerRate,
			"taxable_base * flat_employer_rate", genericVersion,
		),
	}, nil
}
