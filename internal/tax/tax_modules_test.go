package tax_test

import (
	"testing"

	"go-payroll/internal/tax"
	taxerrors "go-payroll/internal/tax/errors"

	"github.com/stretchr/testify/assert"
)

func lineByCode(lines []tax.Line, code string) (tax.Line, bool) {
	for _, l := range lines {
		if l.Code == code {
			return l, true
		}
	}
	return tax.Line{}, false
}

func assertAmount(t *testing.T, lines []tax.Line, code, want string) {
	t.Helper()
	l, ok := lineByCode(lines, code)
	if !assert.True(t, ok, "line %s missing", code) {
		return
	}
	assert.True(t, dec(want).Equal(l.Amount), "%s: want %s got %s", code, want, l.Amount)
}

func TestUKModule(t *testing.T) {
	uk := tax.NewUKModule()
	gbp := tax.Context{Currency: "GBP"}

	t.Run("36k monthly on default code", func(t *testing.T) {
		res, err := tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, gbp)
		assert.NoError(t, err)

		assertAmount(t, res.Lines, "PAYE", "390.50")
		assertAmount(t, res.Lines, "NI_EE", "156.20")
		assertAmount(t, res.EmployerLines, "NI_ER", "309.35")
		assert.True(t, dec("546.70").Equal(res.TotalEmployee))

		paye, _ := lineByCode(res.Lines, "PAYE")
		assert.NoError(t, paye.Trace.Validate())
		assert.Equal(t, "UK-2024/25", paye.Trace.TableVersion)
		assert.Equal(t, "personal_allowance", paye.Trace.Banded.Slices[0].Name)
		assert.True(t, paye.Trace.Banded.Slices[0].Rate.IsZero())
		assert.Equal(t, "basic", paye.Trace.Banded.Slices[1].Name)
	})

	t.Run("scottish code", func(t *testing.T) {
		res, err := tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, tax.Context{Currency: "GBP", TaxCode: "S1257L"})
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "PAYE", "396.44")
	})

	t.Run("flat codes", func(t *testing.T) {
		res, err := tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, tax.Context{Currency: "GBP", TaxCode: "BR"})
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "PAYE", "600.00")

		res, err = tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, tax.Context{Currency: "GBP", TaxCode: "NT"})
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "PAYE", "0")

		res, err = tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, tax.Context{Currency: "GBP", TaxCode: "D0"})
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "PAYE", "1200.00")
	})

	t.Run("k code adds to income", func(t *testing.T) {
		res, err := tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, tax.Context{Currency: "GBP", TaxCode: "K500"})
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "PAYE", "738.33")
	})

	t.Run("allowance taper above 100k", func(t *testing.T) {
		res, err := tax.Calculate(uk, dec("120000"), tax.FrequencyAnnual, gbp)
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "PAYE", "39432.00")
	})

	t.Run("category C pays no employee NI", func(t *testing.T) {
		res, err := tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, tax.Context{Currency: "GBP", NICategory: "C"})
		assert.NoError(t, err)
		_, ok := lineByCode(res.Lines, "NI_EE")
		assert.False(t, ok)
		assertAmount(t, res.EmployerLines, "NI_ER", "309.35")
	})

	t.Run("unparseable tax code falls back to emergency code", func(t *testing.T) {
		res, err := tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, tax.Context{Currency: "GBP", TaxCode: "ZZ99"})
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "PAYE", "390.50")
		assert.Equal(t, []string{tax.WarnTaxCodeEmergency}, res.Warnings)

		paye, _ := lineByCode(res.Lines, "PAYE")
		assert.Equal(t, "1257L", paye.Trace.Inputs["tax_code"])
		assert.Equal(t, "ZZ99", paye.Trace.Inputs["supplied_tax_code"])
	})

	t.Run("out of range D code falls back too", func(t *testing.T) {
		res, err := tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, tax.Context{Currency: "GBP", TaxCode: "D3"})
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "PAYE", "390.50")
		assert.Contains(t, res.Warnings, tax.WarnTaxCodeEmergency)
	})

	t.Run("valid code carries no warning", func(t *testing.T) {
		res, err := tax.Calculate(uk, dec("3000"), tax.FrequencyMonthly, gbp)
		assert.NoError(t, err)
		assert.Empty(t, res.Warnings)
	})

	t.Run("unknown frequency", func(t *testing.T) {
		_, err := tax.Calculate(uk, dec("3000"), tax.Frequency("DAILY"), gbp)
		assert.ErrorIs(t, err, taxerrors.ErrUnsupportedFrequency)
	})
}

func TestUSModule(t *testing.T) {
	us := tax.NewUSModule()

	t.Run("single filer annual", func(t *testing.T) {
		res, err := tax.Calculate(us, dec("100000"), tax.FrequencyAnnual, tax.Context{Currency: "USD", FilingStatus: "single", State: "TX"})
		assert.NoError(t, err)

		assertAmount(t, res.Lines, "FIT", "13841.00")
		assertAmount(t, res.Lines, "SS_EE", "6200.00")
		assertAmount(t, res.Lines, "MEDICARE_EE", "1450.00")
		_, hasState := lineByCode(res.Lines, "SIT")
		assert.False(t, hasState)
		_, hasAddl := lineByCode(res.Lines, "MEDICARE_ADDL")
		assert.False(t, hasAddl)

		assertAmount(t, res.EmployerLines, "FUTA", "42.00")
		assert.Empty(t, res.Warnings)
	})

	t.Run("social security stops at the wage base", func(t *testing.T) {
		res, err := tax.Calculate(us, dec("250000"), tax.FrequencyAnnual, tax.Context{Currency: "USD"})
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "SS_EE", "10453.20")
		assertAmount(t, res.Lines, "MEDICARE_ADDL", "450.00")
	})

	t.Run("flat state and unknown state", func(t *testing.T) {
		res, err := tax.Calculate(us, dec("1000"), tax.FrequencyWeekly, tax.Context{Currency: "USD", State: "il"})
		assert.NoError(t, err)
		assertAmount(t, res.Lines, "SIT", "49.50")

		res, err = tax.Calculate(us, dec("1000"), tax.FrequencyWeekly, tax.Context{Currency: "USD", State: "CA", FilingStatus: "widow"})
		assert.NoError(t, err)
		assert.Contains(t, res.Warnings, tax.WarnStateNotSupported)
		assert.Contains(t, res.Warnings, tax.WarnFilingStatusDefaulted)
	})
}

func TestNGModule(t *testing.T) {
	ng := tax.NewNGModule()

	res, err := tax.Calculate(ng, dec("5000000"), tax.FrequencyAnnual, tax.Context{Currency: "NGN"})
	assert.NoError(t, err)
	assertAmount(t, res.Lines, "PAYE", "704000.00")
	assertAmount(t, res.Lines, "NHF", "125000.00")
	assertAmount(t, res.EmployerLines, "NSITF", "50000.00")
	assertAmount(t, res.EmployerLines, "ITF", "50000.00")

	low, err := tax.Calculate(ng, dec("25000"), tax.FrequencyMonthly, tax.Context{Currency: "NGN"})
	assert.NoError(t, err)
	assertAmount(t, low.Lines, "PAYE", "0")
}

func TestZAModule(t *testing.T) {
	za := tax.NewZAModule()

	res, err := tax.Calculate(za, dec("500000"), tax.FrequencyAnnual, tax.Context{Currency: "ZAR", Age: 30})
	assert.NoError(t, err)
	assertAmount(t, res.Lines, "PAYE", "100272.00")
	assertAmount(t, res.Lines, "UIF_EE", "2125.44")
	assertAmount(t, res.EmployerLines, "SDL", "5000.00")

	senior, err := tax.Calculate(za, dec("500000"), tax.FrequencyAnnual, tax.Context{Currency: "ZAR", Age: 76})
	assert.NoError(t, err)
	assertAmount(t, senior.Lines, "PAYE", "87683.00")

	small, err := tax.Calculate(za, dec("5000"), tax.FrequencyMonthly, tax.Context{Currency: "ZAR"})
	assert.NoError(t, err)
	assertAmount(t, small.Lines, "PAYE", "0")
}

func TestCalculate_RejectsNegativeBase(t *testing.T) {
	_, err := tax.Calculate(tax.NewUKModule(), dec("-1"), tax.FrequencyMonthly, tax.Context{})
	assert.ErrorIs(t, err, taxerrors.ErrNegativeTaxableBase)
}
