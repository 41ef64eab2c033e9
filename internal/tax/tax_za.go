package tax

import (
	"github.com/shopspring/decimal"
)

const (
	zaJurisdiction = "ZA"
	zaVersion      = "ZA-2024/25"
)

var (
	zaBands = BandTable{
		Version: zaVersion,
		Bands: []Band{
			{Name: "18%", Width: d("237100"), Rate: pct("18")},
			{Name: "26%", Width: d("133400"), Rate: pct("26")},
			{Name: "31%", Width: d("142300"), Rate: pct("31")},
			{Name: "36%", Width: d("160200"), Rate: pct("36")},
			{Name: "39%", Width: d("184900"), Rate: pct("39")},
			{Name: "41%", Width: d("959100"), Rate: pct("41")},
			{Name: "45%", Rate: pct("45")},
		},
	}

	zaPrimaryRebate   = d("17235")
	zaSecondaryRebate = d("9444")
	zaTertiaryRebate  = d("3145")
	zaUIFRate         = pct("1")
	zaUIFCap          = d("212544")
	zaSDLRate         = pct("1")
)

func zaRebate(age int) decimal.Decimal {
	rebate := zaPrimaryRebate
	if age >= 65 {
		rebate = rebate.Add(zaSecondaryRebate)
	}
	if age >= 75 {
		rebate = rebate.Add(zaTertiaryRebate)
	}
	return rebate
}

type ZAModule struct{}

func NewZAModule() *ZAModule { return &ZAModule{} }

func (m *ZAModule) Code() string { return zaJurisdiction }

func (m *ZAModule) EmployeeTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, []string, error) {
	rebate := zaRebate(tc.Age)
	paye, err := bandedLine(
		zaJurisdiction, "PAYE", "PAYE (SARS)",
		BasisSARSPAYE, KindIncomeTax,
		base, freq, zaBands,
		"max(0, sum(band_width_taken * band_rate) - rebates) / periods",
		func(annualTax decimal.Decimal) decimal.Decimal { return annualTax.Sub(rebate) },
	)
	if err != nil {
		return nil, nil, err
	}
	if paye.Trace.Inputs == nil {
		paye.Trace.Inputs = map[string]string{}
	}
	paye.Trace.Inputs["rebate"] = rebate.String()
	lines := []Line{paye}

	if !tc.ExemptSocial {
		uif, err := m.uif("UIF_EE", "UIF (employee)", base, freq)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, uif)
	}

	return lines, nil, nil
}

func (m *ZAModule) EmployerTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, error) {
	if tc.ExemptSocial {
		return nil, nil
	}

	uif, err := m.uif("UIF_ER", "UIF (employer)", base, freq)
	if err != nil {
		return nil, err
	}
	sdl := flatLine(
		zaJurisdiction, "SDL", "Skills Development Levy",
		BasisSDL, KindSocialContribution,
		base, zaSDLRate,
		"taxable_base * sdl_rate", zaVersion,
	)
	return []Line{uif, sdl}, nil
}

func (m *ZAModule) uif(code, label string, base decimal.Decimal, freq Frequency) (Line, error) {
	return cappedLine(
		zaJurisdiction, code, label,
		BasisUIF, KindSocialContribution,
		base, freq,
		decimal.Zero, zaUIFCap, zaUIFRate,
		"min(annual_base, uif_ceiling) * rate / periods", zaVersion,
	)
}
