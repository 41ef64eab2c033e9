package tax

import (
	"github.com/shopspring/decimal"
)

// Band is one slice of a progressive table. A zero Width means the band is
// unbounded and absorbs whatever income remains.
type Band struct {
	Name  string
	Width decimal.Decimal
	Rate  decimal.Decimal
}

type BandTable struct {
	Version string
	Bands   []Band
}

type BandSlice struct {
	Name    string          `json:"name"`
	From    decimal.Decimal `json:"from"`
	To      decimal.Decimal `json:"to"`
	Rate    decimal.Decimal `json:"rate"`
	Taxable decimal.Decimal `json:"taxable"`
	Tax     decimal.Decimal `json:"tax"`
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func pct(v string) decimal.Decimal {
	return d(v).Div(decimal.NewFromInt(100))
}

// Apply consumes income through the bands bottom-up, each band taking at
// most its width, and returns the total tax with every slice touched.
func (t BandTable) Apply(income decimal.Decimal) (decimal.Decimal, []BandSlice) {
	remaining := income
	from := decimal.Zero
	total := decimal.Zero
	slices := make([]BandSlice, 0, len(t.Bands))

	for _, b := range t.Bands {
		if !remaining.IsPositive() {
			break
		}

		taken := remaining
		if b.Width.IsPositive() && remaining.GreaterThan(b.Width) {
			taken = b.Width
		}

		tax := taken.Mul(b.Rate)
		to := from.Add(taken)
		slices = append(slices, BandSlice{
			Name:    b.Name,
			From:    from,
			To:      to,
			Rate:    b.Rate,
			Taxable: taken,
			Tax:     tax,
		})

		total = total.Add(tax)
		remaining = remaining.Sub(taken)
		from = to
	}

	return total, slices
}

// WithAllowance returns a copy of the table with a 0% band of the given
// width in front. A non-positive allowance leaves the table unchanged.
func (t BandTable) WithAllowance(name string, width decimal.Decimal) BandTable {
	if !width.IsPositive() {
		return t
	}
	bands := make([]Band, 0, len(t.Bands)+1)
	bands = append(bands, Band{Name: name, Width: width, Rate: decimal.Zero})
	bands = append(bands, t.Bands...)
	return BandTable{Version: t.Version, Bands: bands}
}

// bandedLine annualises a per-period base, runs it through the table and
// brings the result back to the period with the same divisor.
func bandedLine(
	jurisdiction, code, label string,
	basis Basis,
	kind Kind,
	base decimal.Decimal,
	freq Frequency,
	table BandTable,
	formula string,
	adjust func(annualTax decimal.Decimal) decimal.Decimal,
) (Line, error) {
	periods, err := freq.PeriodsPerYear()
	if err != nil {
		return Line{}, err
	}

	annualBase := base.Mul(decimal.NewFromInt(periods))
	annualTax, slices := table.Apply(annualBase)
	if adjust != nil {
		annualTax = adjust(annualTax)
	}
	if annualTax.IsNegative() {
		annualTax = decimal.Zero
	}

	return Line{
		Jurisdiction: jurisdiction,
		Code:         code,
		Label:        label,
		Basis:        basis,
		Kind:         kind,
		TaxableBase:  base,
		Amount:       annualTax.Div(decimal.NewFromInt(periods)),
		Trace: NewBandedTrace(formula, table.Version, BandedTrace{
			AnnualBase: annualBase,
			Periods:    periods,
			Slices:     slices,
			AnnualTax:  annualTax,
		}),
	}, nil
}

// cappedLine charges rate on the part of the annualised base between
// threshold and cap. A zero cap means no upper limit.
func cappedLine(
	jurisdiction, code, label string,
	basis Basis,
	kind Kind,
	base decimal.Decimal,
	freq Frequency,
	threshold, annualCap, rate decimal.Decimal,
	formula, version string,
) (Line, error) {
	periods, err := freq.PeriodsPerYear()
	if err != nil {
		return Line{}, err
	}

	annualBase := base.Mul(decimal.NewFromInt(periods))
	upper := annualBase
	if annualCap.IsPositive() && upper.GreaterThan(annualCap) {
		upper = annualCap
	}
	charged := upper.Sub(threshold)
	if charged.IsNegative() {
		charged = decimal.Zero
	}
	annualValue := charged.Mul(rate)

	r := rate
	return Line{
		Jurisdiction: jurisdiction,
		Code:         code,
		Label:        label,
		Basis:        basis,
		Kind:         kind,
		TaxableBase:  base,
		Rate:         &r,
		Amount:       annualValue.Div(decimal.NewFromInt(periods)),
		Trace: NewCappedTrace(formula, version, CappedTrace{
			AnnualBase:  annualBase,
			AnnualCap:   annualCap,
			Threshold:   threshold,
			Rate:        rate,
			Periods:     periods,
			AnnualValue: annualValue,
		}),
	}, nil
}

func flatLine(
	jurisdiction, code, label string,
	basis Basis,
	kind Kind,
	base, rate decimal.Decimal,
	formula, version string,
) Line {
	amount := base.Mul(rate)
	r := rate
	return Line{
		Jurisdiction: jurisdiction,
		Code:         code,
		Label:        label,
		Basis:        basis,
		Kind:         kind,
		TaxableBase:  base,
		Rate:         &r,
		Amount:       amount,
		Trace: NewFlatTrace(formula, version, FlatTrace{
			Base:   base,
			Rate:   rate,
			Amount: amount,
		}),
	}
}
