package tax

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	taxerrors "go-payroll/internal/tax/errors"
)

const (
	ukJurisdiction = "GB"
	ukVersion      = "UK-2024/25"
	ukDefaultCode  = "1257L"

	WarnTaxCodeEmergency = "TAX_CODE_EMERGENCY"
)

var (
	ukRestOfUK = BandTable{
		Version: ukVersion,
		Bands: []Band{
			{Name: "basic", Width: d("37700"), Rate: pct("20")},
			{Name: "higher", Width: d("87440"), Rate: pct("40")},
			{Name: "additional", Rate: pct("45")},
		},
	}

	ukScotland = BandTable{
		Version: ukVersion + "-SCO",
		Bands: []Band{
			{Name: "starter", Width: d("2306"), Rate: pct("19")},
			{Name: "basic", Width: d("11685"), Rate: pct("20")},
			{Name: "intermediate", Width: d("17101"), Rate: pct("21")},
			{Name: "higher", Width: d("31338"), Rate: pct("42")},
			{Name: "advanced", Width: d("50140"), Rate: pct("45")},
			{Name: "top", Rate: pct("48")},
		},
	}

	ukEmployeeNI = BandTable{
		Version: ukVersion + "-NI",
		Bands: []Band{
			{Name: "below_pt", Width: d("12570"), Rate: decimal.Zero},
			{Name: "main", Width: d("37700"), Rate: pct("8")},
			{Name: "above_uel", Rate: pct("2")},
		},
	}

	ukTaperThreshold     = d("100000")
	ukEmployerThreshold  = d("9100")
	ukUpperSecondary     = d("50270")
	ukEmployerRate       = pct("13.8")
	ukKCodeRegulatoryCap = pct("50")

	ukCodePattern = regexp.MustCompile(`^([SC]?)(BR|D[0-3]|NT|0T|K\d+|\d+[LMNT])$`)
)

// ukTaxCode is a parsed HMRC tax code.
type ukTaxCode struct {
	Raw       string
	Region    string // "", "S" or "C"
	Allowance decimal.Decimal
	KAddition decimal.Decimal
	Flat      *Band
	NoTax     bool
	Default   bool
	// Supplied holds the rejected code when the emergency code replaced it.
	Supplied string
}

func parseUKTaxCode(raw string) (ukTaxCode, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	isDefault := code == ""
	if isDefault {
		code = ukDefaultCode
	}

	// Emergency basis markers only change cumulative handling.
	for _, suffix := range []string{" W1", " M1", " X", "W1", "M1", "X"} {
		if strings.HasSuffix(code, suffix) && len(code) > len(suffix) {
			code = strings.TrimSuffix(code, suffix)
			break
		}
	}
	code = strings.ReplaceAll(code, " ", "")

	m := ukCodePattern.FindStringSubmatch(code)
	if m == nil {
		return ukTaxCode{}, taxerrors.ErrInvalidTaxCode
	}

	tc := ukTaxCode{Raw: code, Region: m[1], Allowance: decimal.Zero, KAddition: decimal.Zero, Default: isDefault}
	body := m[2]
	table := ukRestOfUK
	if tc.Region == "S" {
		table = ukScotland
	}

	switch {
	case body == "NT":
		tc.NoTax = true
	case body == "0T":
	case body == "BR":
		tc.Flat = &Band{Name: "BR", Rate: basicRate(tc.Region)}
	case strings.HasPrefix(body, "D"):
		idx, _ := strconv.Atoi(body[1:])
		// D0 is the first rate above basic.
		bandIdx := idx + 1
		if tc.Region == "S" {
			bandIdx = idx + 2
		}
		if bandIdx >= len(table.Bands) {
			return ukTaxCode{}, taxerrors.ErrInvalidTaxCode
		}
		b := table.Bands[bandIdx]
		tc.Flat = &Band{Name: body, Rate: b.Rate}
	case strings.HasPrefix(body, "K"):
		n, _ := strconv.ParseInt(body[1:], 10, 64)
		tc.KAddition = decimal.NewFromInt(n * 10)
	default:
		n, _ := strconv.ParseInt(body[:len(body)-1], 10, 64)
		tc.Allowance = decimal.NewFromInt(n * 10)
	}

	return tc, nil
}

func basicRate(region string) decimal.Decimal {
	if region == "S" {
		return ukScotland.Bands[1].Rate
	}
	return ukRestOfUK.Bands[0].Rate
}

type UKModule struct{}

func NewUKModule() *UKModule { return &UKModule{} }

func (m *UKModule) Code() string { return ukJurisdiction }

func (m *UKModule) EmployeeTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, []string, error) {
	var warnings []string
	code, err := parseUKTaxCode(tc.TaxCode)
	if errors.Is(err, taxerrors.ErrInvalidTaxCode) {
		code, err = parseUKTaxCode(ukDefaultCode)
		code.Supplied = strings.TrimSpace(tc.TaxCode)
		warnings = append(warnings, WarnTaxCodeEmergency)
	}
	if err != nil {
		return nil, nil, err
	}

	paye, err := m.paye(base, freq, code)
	if err != nil {
		return nil, nil, err
	}
	lines := []Line{paye}

	if ni, ok, err := m.employeeNI(base, freq, tc); err != nil {
		return nil, nil, err
	} else if ok {
		lines = append(lines, ni)
	}

	return lines, warnings, nil
}

func (m *UKModule) EmployerTaxes(base decimal.Decimal, freq Frequency, tc Context) ([]Line, error) {
	if tc.ExemptSocial {
		return nil, nil
	}

	threshold := ukEmployerThreshold
	if strings.EqualFold(tc.NICategory, "M") || strings.EqualFold(tc.NICategory, "H") {
		threshold = ukUpperSecondary
	}

	line, err := cappedLine(
		ukJurisdiction, "NI_ER", "Employer National Insurance",
		BasisNI, KindSocialContribution,
		base, freq,
		threshold, decimal.Zero, ukEmployerRate,
		"max(0, annual_base - secondary_threshold) * rate / periods", ukVersion+"-NI",
	)
	if err != nil {
		return nil, err
	}
	return []Line{line}, nil
}

func (m *UKModule) paye(base decimal.Decimal, freq Frequency, code ukTaxCode) (Line, error) {
	periods, err := freq.PeriodsPerYear()
	if err != nil {
		return Line{}, err
	}
	annualBase := base.Mul(decimal.NewFromInt(periods))

	inputs := map[string]string{
		"tax_code":    code.Raw,
		"annual_base": annualBase.String(),
		"periods":     strconv.FormatInt(periods, 10),
	}
	if code.Supplied != "" {
		inputs["supplied_tax_code"] = code.Supplied
	}
	line := Line{
		Jurisdiction: ukJurisdiction,
		Code:         "PAYE",
		Label:        "Income Tax (PAYE)",
		Basis:        BasisPAYE,
		Kind:         KindIncomeTax,
		TaxableBase:  base,
	}

	switch {
	case code.NoTax:
		line.Amount = decimal.Zero
		line.Trace = FormulaTrace("no tax (NT)", ukVersion, inputs)
		return line, nil
	case code.Flat != nil:
		rate := code.Flat.Rate
		line.Rate = &rate
		line.Amount = base.Mul(rate)
		line.Trace = NewFlatTrace("taxable_base * rate ("+code.Flat.Name+")", ukVersion, FlatTrace{
			Base:   base,
			Rate:   rate,
			Amount: line.Amount,
		})
		line.Trace.Inputs = inputs
		return line, nil
	}

	table := ukRestOfUK
	if code.Region == "S" {
		table = ukScotland
	}

	allowance := code.Allowance
	if code.Default && annualBase.GreaterThan(ukTaperThreshold) {
		reduction := annualBase.Sub(ukTaperThreshold).Div(decimal.NewFromInt(2)).Floor()
		allowance = allowance.Sub(reduction)
		if allowance.IsNegative() {
			allowance = decimal.Zero
		}
	}

	income := annualBase.Add(code.KAddition)
	annualTax, slices := table.WithAllowance("personal_allowance", allowance).Apply(income)

	formula := "sum(band_width_taken * band_rate) / periods"
	if code.KAddition.IsPositive() {
		formula = "min(bands(annual_base + k_addition), 50% of annual_base) / periods"
		if limit := annualBase.Mul(ukKCodeRegulatoryCap); annualTax.GreaterThan(limit) {
			annualTax = limit
		}
	}

	line.Amount = annualTax.Div(decimal.NewFromInt(periods))
	line.Trace = NewBandedTrace(formula, table.Version, BandedTrace{
		AnnualBase: income,
		Periods:    periods,
		Slices:     slices,
		AnnualTax:  annualTax,
	})
	line.Trace.Inputs = inputs
	return line, nil
}

func (m *UKModule) employeeNI(base decimal.Decimal, freq Frequency, tc Context) (Line, bool, error) {
	if tc.ExemptSocial || strings.EqualFold(tc.NICategory, "C") || strings.EqualFold(tc.NICategory, "X") {
		return Line{}, false, nil
	}

	line, err := bandedLine(
		ukJurisdiction, "NI_EE", "Employee National Insurance",
		BasisNI, KindSocialContribution,
		base, freq, ukEmployeeNI,
		"Class 1 primary: 0% to PT, 8% PT..UEL, 2% above UEL",
		nil,
	)
	if err != nil {
		return Line{}, false, err
	}
	return line, true, nil
}
