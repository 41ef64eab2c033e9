package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	usJurisdiction = "US"
	usVersion      = "US-2024"
)

const (
	FilingSingle          = "single"
	FilingMarriedJoint    = "married_joint"
	FilingMarriedSeparate = "married_separate"
	FilingHeadOfHousehold = "head_of_household"
)

const (
	WarnFilingStatusDefaulted = "FILING_STATUS_DEFAULTED"
	WarnStateNotSupported     = "STATE_TAX_NOT_SUPPORTED"
)

var usFederal = map[string]BandTable{
	FilingSingle: {Version: usVersion + "-single", Bands: []Band{
		{Name: "10%", Width: d("11600"), Rate: pct("10")},
		{Name: "12%", Width: d("35550"), Rate: pct("12")},
		{Name: "22%", Width: d("53375"), Rate: pct("22")},
		{Name: "24%", Width: d("91425"), Rate: pct("24")},
		{Name: "32%", Width: d("51775"), Rate: pct("32")},
		{Name: "35%", Width: d("365625"), Rate: pct("35")},
		{Name: "37%", Rate: pct("37")},
	}},
	FilingMarriedJoint: {Version: usVersion + "-mfj", Bands: []Band{
		{Name: "10%", Width: d("23200"), Rate: pct("10")},
		{Name: "12%", Width: d("71100"), Rate: pct("12")},
		{Name: "22%", Width: d("106750"), Rate: pct("22")},
		{Name: "24%", Width: d("182850"), Rate: pct("24")},
		{Name: "32%", Width: d("103550"), Rate: pct("32")},
		{Name: "35%", Width: d("243750"), Rate: pct("35")},
		{Name: "37%", Rate: pct("37")},
	}},
	FilingMarriedSeparate: {Version: usVersion + "-mfs", Bands: []Band{
		{Name: "10%", Width: d("11600"), Rate: pct("10")},
		{Name: "12%", Width: d("35550"), Rate: pct("12")},
		{Name: "22%", Width: d("53375"), Rate: pct("22")},
		{Name: "24%", Width: d("91425"), Rate: pct("24")},
		{Name: "32%", Width: d("51775"), Rate: pct("32")},
		{Name: "35%", Width: d("121875"), Rate: pct("35")},
		{Name: "37%", Rate: pct("37")},
	}},
	FilingHeadOfHousehold: {Version: usVersion + "-hoh", Bands: []Band{
		{Name: "10%", Width: d("16550"), Rate: pct("10")},
		{Name: "12%", Width: d("46550"), Rate: pct("12")},
		{Name: "22%", Width: d("37400"), Rate: pct("22")},
		{Name: "24%", Width: d("91450"), Rate: pct("24")},
		{Name: "32%", Width: d("51750"), Rate: pct("32")},
		{Name: "35%", Width: d("365650"), Rate: pct("35")},
		{Name: "37%", Rate: pct("37")},
	}},
}

var usStandardDeduction = map[string]decimal.Decimal{
	FilingSingle:          d("14600"),
	FilingMarriedJoint:    d("29200"),
	FilingMarriedSeparate: d("14600"),
	FilingHeadOfHousehold: d("21900"),
}

// Flat-rate states only. A nil entry means the state levies no wage tax.
var usStateRates = map[string]*decimal.Decimal{
	"AZ": ptr(pct("2.5")),
	"CO": ptr(pct("4.4")),
	"GA": ptr(pct("5.49")),
	"ID": ptr(pct("5.8")),
	"IL": ptr(pct("4.95")),
	"IN": ptr(pct("3.05")),
	"KY": ptr(pct("4")),
	"MA": ptr(pct("5")),
	"MI": ptr(pct("4.25")),
	"NC": ptr(pct("4.5")),
	"PA": ptr(pct("3.07")),
	"UT": ptr(pct("4.65")),
	"AK": nil,
	"FL": nil,
	"NH": nil,
	"NV": nil,
	"SD": nil,
	"TN": nil,
	"TX": nil,
	"WA": nil,
	"WY": nil,
}

var (
	usSocialSecurityRate = pct("6.2")
	usSocialSecurityCap  = d("168600")
	usMedicareRate       = pct("1.45")
	usAddlMedicareRate   = pct("0.9")
	usAddlMedicareFloor  = d("200000")
	usFUTARate           = pct("0.6")
	usFUTAWageBase       = d("7000")
)

func ptr(v decimal.Decimal) *decimal.Decimal { return &v }

func normalizeFilingStatus(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "single", "s":
		return FilingSingle, true
	case "married_joint", "married", "mfj", "married_filing_jointly":
		return FilingMarriedJoint, true
	case "married_separate", "mfs", "married_filing_separately":
		return FilingMarriedSeparate, true
	case "head_of_household", "hoh":
		return FilingHeadOfHousehold, true
	}
	return FilingSingle, false
}

type USModule struct{}

func NewUSModule() *USModule { return &USModule{} }

func (m *USModule) Code() string { return usJurisdiction }

func (m *USModule) EmployeeTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, []string, error) {
	var warnings []string

	status, known := normalizeFilingStatus(tc.FilingStatus)
	if !known {
		warnings = append(warnings, WarnFilingStatusDefaulted)
	}

	table := usFederal[status].WithAllowance("standard_deduction", usStandardDeduction[status])
	federal, err := bandedLine(
		usJurisdiction, "FIT", "Federal Income Tax",
		BasisFederal, KindIncomeTax,
		base, freq, table,
		"sum(band_width_taken * band_rate) / periods after standard deduction ("+status+")",
		nil,
	)
	if err != nil {
		return nil, nil, err
	}
	lines := []Line{federal}

	if !tc.ExemptSocial {
		ss, err := cappedLine(
			usJurisdiction, "SS_EE", "Social Security",
			BasisFICA, KindSocialContribution,
			base, freq,
			decimal.Zero, usSocialSecurityCap, usSocialSecurityRate,
			"min(annual_base, wage_base) * rate / periods", usVersion,
		)
		if err != nil {
			return nil, nil, err
		}
		medicare, err := cappedLine(
			usJurisdiction, "MEDICARE_EE", "Medicare",
			BasisFICA, KindSocialContribution,
			base, freq,
			decimal.Zero, decimal.Zero, usMedicareRate,
			"annual_base * rate / periods", usVersion,
		)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, ss, medicare)

		addl, err := cappedLine(
			usJurisdiction, "MEDICARE_ADDL", "Additional Medicare",
			BasisFICA, KindSocialContribution,
			base, freq,
			usAddlMedicareFloor, decimal.Zero, usAddlMedicareRate,
			"max(0, annual_base - threshold) * rate / periods", usVersion,
		)
		if err != nil {
			return nil, nil, err
		}
		if addl.Amount.IsPositive() {
			lines = append(lines, addl)
		}
	}

	state := strings.ToUpper(strings.TrimSpace(tc.State))
	if state != "" {
		rate, ok := usStateRates[state]
		switch {
		case !ok:
			warnings = append(warnings, WarnStateNotSupported)
		case rate != nil:
			line := flatLine(
				usJurisdiction+"-"+state, "SIT", "State Income Tax ("+state+")",
				BasisState, KindIncomeTax,
				base, *rate,
				"taxable_base * state_rate", usVersion+"-"+state,
			)
			lines = append(lines, line)
		}
	}

	return lines, warnings, nil
}

func (m *USModule) EmployerTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, error) {
	if tc.ExemptSocial {
		return nil, nil
	}

	ss, err := cappedLine(
		usJurisdiction, "SS_ER", "Employer Social Security",
		BasisFICA, KindSocialContribution,
		base, freq,
		decimal.Zero, usSocialSecurityCap, usSocialSecurityRate,
		"min(annual_base, wage_base) * rate / periods", usVersion,
	)
	if err != nil {
		return nil, err
	}
	medicare, err := cappedLine(
		usJurisdiction, "MEDICARE_ER", "Employer Medicare",
		BasisFICA, KindSocialContribution,
		base, freq,
		decimal.Zero, decimal.Zero, usMedicareRate,
		"annual_base * rate / periods", usVersion,
	)
	if err != nil {
		return nil, err
	}
	futa, err := cappedLine(
		usJurisdiction, "FUTA", "Federal Unemployment",
		BasisFUTA, KindSocialContribution,
		base, freq,
		decimal.Zero, usFUTAWageBase, usFUTARate,
		"min(annual_base, futa_wage_base) * rate / periods", usVersion,
	)
	if err != nil {
		return nil, err
	}

	return []Line{ss, medicare, futa}, nil
}
