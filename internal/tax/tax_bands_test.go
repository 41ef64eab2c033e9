package tax_test

import (
	"testing"
	"time"

	"go-payroll/internal/tax"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestBandTable_Apply(t *testing.T) {
	table := tax.BandTable{
		Version: "TEST",
		Bands: []tax.Band{
			{Name: "low", Width: dec("1000"), Rate: dec("0.10")},
			{Name: "mid", Width: dec("2000"), Rate: dec("0.20")},
			{Name: "top", Rate: dec("0.50")},
		},
	}

	t.Run("consumes bands bottom-up by width", func(t *testing.T) {
		total, slices := table.Apply(dec("4000"))

		assert.True(t, dec("1000").Equal(total), total.String())
		assert.Len(t, slices, 3)
		assert.True(t, dec("1000").Equal(slices[0].Taxable))
		assert.True(t, dec("2000").Equal(slices[1].Taxable))
		assert.True(t, dec("1000").Equal(slices[2].Taxable))
		assert.True(t, dec("3000").Equal(slices[2].From))
	})

	t.Run("stops when income is exhausted", func(t *testing.T) {
		total, slices := table.Apply(dec("500"))

		assert.True(t, dec("50").Equal(total))
		assert.Len(t, slices, 1)
	})

	t.Run("zero income", func(t *testing.T) {
		total, slices := table.Apply(decimal.Zero)

		assert.True(t, total.IsZero())
		assert.Empty(t, slices)
	})

	t.Run("allowance band is taxed at zero", func(t *testing.T) {
		total, slices := table.WithAllowance("allowance", dec("500")).Apply(dec("1500"))

		assert.True(t, dec("100").Equal(total))
		assert.Equal(t, "allowance", slices[0].Name)
		assert.True(t, slices[0].Tax.IsZero())
	})
}

func TestFrequency_RoundTrip(t *testing.T) {
	uk := tax.NewUKModule()
	annual, err := tax.Calculate(uk, dec("36000"), tax.FrequencyAnnual, tax.Context{Currency: "GBP"})
	assert.NoError(t, err)

	for _, tc := range []struct {
		freq tax.Frequency
		base string
	}{
		{tax.FrequencyMonthly, "3000"},
		{tax.FrequencySemiMonthly, "1500"},
		{tax.FrequencyWeekly, "692.3076923076923077"},
	} {
		t.Run(string(tc.freq), func(t *testing.T) {
			res, err := tax.Calculate(uk, dec(tc.base), tc.freq, tax.Context{Currency: "GBP"})
			assert.NoError(t, err)

			n, _ := tc.freq.PeriodsPerYear()
			for i := range res.Lines {
				back := res.Lines[i].Amount.Mul(decimal.NewFromInt(n))
				diff := back.Sub(annual.Lines[i].Amount).Abs()
				// one minor unit per period of rounding at most
				assert.True(t, diff.LessThanOrEqual(dec("0.01").Mul(decimal.NewFromInt(n))), "%s: %s vs %s", res.Lines[i].Code, back, annual.Lines[i].Amount)
			}
		})
	}

	t.Run("annualize then deannualize is exact", func(t *testing.T) {
		base := dec("1234.57")
		for _, f := range []tax.Frequency{tax.FrequencyWeekly, tax.FrequencyBiweekly, tax.FrequencySemiMonthly, tax.FrequencyMonthly, tax.FrequencyAnnual} {
			a, err := tax.Annualize(base, f)
			assert.NoError(t, err)
			back, err := tax.Deannualize(a, f)
			assert.NoError(t, err)
			assert.True(t, base.Equal(back), string(f))
		}
	})
}

func TestParseFrequency(t *testing.T) {
	f, err := tax.ParseFrequency(" monthly ")
	assert.NoError(t, err)
	assert.Equal(t, tax.FrequencyMonthly, f)

	_, err = tax.ParseFrequency("FORTNIGHTLY_ISH")
	assert.Error(t, err)
}

func TestTrace_Validate(t *testing.T) {
	assert.NoError(t, tax.FormulaTrace("x", "v", nil).Validate())
	assert.NoError(t, tax.NewFlatTrace("x", "v", tax.FlatTrace{}).Validate())

	bad := tax.NewFlatTrace("x", "v", tax.FlatTrace{})
	bad.Banded = &tax.BandedTrace{}
	assert.Error(t, bad.Validate())

	mismatched := tax.Trace{Kind: tax.TraceCapped, Formula: "x", Flat: &tax.FlatTrace{}}
	assert.Error(t, mismatched.Validate())

	assert.Error(t, tax.Trace{Kind: "mystery", Formula: "x"}.Validate())
}

func TestYearStart(t *testing.T) {
	assert.Equal(t, time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC), tax.YearStart("GB", time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC), tax.YearStart("GB", time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), tax.YearStart("ZA", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), tax.YearStart("US", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func TestYearStart_Aliases(t *testing.T) {
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC), tax.YearStart("UK", feb))
	assert.Equal(t, time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC), tax.YearStart("gbr", feb))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), tax.YearStart("RSA", feb))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), tax.YearStart(" zaf ", feb))
	assert.Equal(t, "GB", tax.Canonical("uk"))
	assert.Equal(t, "FR", tax.Canonical("fr"))
}
