package bankfile_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"go-payroll/internal/bankfile"
	bankfileerrors "go-payroll/internal/bankfile/errors"
	"go-payroll/internal/shared/apperror"
)

var (
	createdAt = time.Date(2024, 5, 30, 14, 5, 0, 0, time.UTC)
	valueDate = time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
)

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lines(content []byte) []string {
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func nachaOptions() bankfile.Options {
	return bankfile.Options{
		CompanyName:       "Acme Payroll Inc",
		Reference:         "MAY24",
		Sequence:          1,
		CreatedAt:         createdAt,
		ValueDate:         valueDate,
		OriginatorID:      "1234567890",
		OriginatorRouting: "021000021",
		DestinationName:   "JPMORGAN CHASE",
	}
}

func usdPayments() []bankfile.Payment {
	return []bankfile.Payment{
		{PaymentID: "p-1", EmployeeID: "e-1", Name: "Ada Lovelace", Amount: amount("500.00"), Currency: "USD", RoutingNumber: "021000021", AccountNumber: "123456789", AccountType: "checking"},
		{PaymentID: "p-2", EmployeeID: "e-2", Name: "Grace Hopper", Amount: amount("700.00"), Currency: "USD", RoutingNumber: "011000015", AccountNumber: "987654321", AccountType: "savings"},
		{PaymentID: "p-3", EmployeeID: "e-3", Name: "Alan Turing", Amount: amount("300.00"), Currency: "USD", RoutingNumber: "021000021", AccountNumber: "555000111"},
	}
}

func TestPadHelpers(t *testing.T) {
	t.Run("pad left fills and keeps rightmost on overflow", func(t *testing.T) {
		assert.Equal(t, "00042", bankfile.PadLeft("42", 5, '0'))
		assert.Equal(t, "345", bankfile.PadLeft("12345", 3, '0'))
	})

	t.Run("pad right fills and truncates", func(t *testing.T) {
		assert.Equal(t, "AB   ", bankfile.PadRight("AB", 5, ' '))
		assert.Equal(t, "ABC", bankfile.PadRight("ABCDEF", 3, ' '))
	})

	t.Run("alpha and numeric fields", func(t *testing.T) {
		assert.Equal(t, "JOS?     ", bankfile.Alpha("josé", 9))
		assert.Equal(t, "0000015000", bankfile.Numeric(15000, 10))
		assert.Equal(t, "200000", bankfile.Digits("20-00-0 0"))
	})

	t.Run("record rejects a value of the wrong width", func(t *testing.T) {
		assert.Panics(t, func() { bankfile.NewFixedRecord(10).Put(1, 3, "AB") })
		assert.Equal(t, "  XY      ", bankfile.NewFixedRecord(10).Put(3, 4, "XY").String())
	})
}

func TestNACHAGenerator(t *testing.T) {
	g, err := bankfile.Lookup("nacha")
	assert.NoError(t, err)

	t.Run("control totals and blocking", func(t *testing.T) {
		f, err := g.Generate(usdPayments(), nachaOptions())
		assert.NoError(t, err)
		assert.Equal(t, 3, f.Count)
		assert.Equal(t, int64(150000), f.ControlMinor)
		assert.Equal(t, "1500", f.ControlSum.String())

		rows := lines(f.Content)
		assert.Equal(t, 0, len(rows)%10)
		for _, r := range rows {
			assert.Len(t, r, 94)
		}

		batchControl := rows[5]
		assert.Equal(t, "8", batchControl[0:1])
		assert.Equal(t, "000003", batchControl[4:10])
		assert.Equal(t, "000000150000", batchControl[32:44])

		fileControl := rows[6]
		assert.Equal(t, "9", fileControl[0:1])
		assert.Equal(t, "000001", fileControl[7:13])
		assert.Equal(t, "00000003", fileControl[13:21])
		assert.Equal(t, "000000150000", fileControl[43:55])
		// 02100002 + 01100001 + 02100002
		assert.Equal(t, "0005300005", fileControl[21:31])

		assert.Equal(t, "622", rows[2][0:3])
		assert.Equal(t, "632", rows[3][0:3])
		assert.Equal(t, strings.Repeat("9", 94), rows[9])
	})

	t.Run("identical inputs produce identical bytes", func(t *testing.T) {
		a, err := g.Generate(usdPayments(), nachaOptions())
		assert.NoError(t, err)
		b, err := g.Generate(usdPayments(), nachaOptions())
		assert.NoError(t, err)
		assert.Equal(t, a.Content, b.Content)
		assert.Equal(t, a.Filename, b.Filename)
	})

	t.Run("bad routing is rejected and the rest still generate", func(t *testing.T) {
		payments := usdPayments()
		payments[1].RoutingNumber = "123456789"
		f, err := g.Generate(payments, nachaOptions())
		assert.NoError(t, err)
		assert.Equal(t, 2, f.Count)
		assert.Equal(t, int64(80000), f.ControlMinor)
		assert.Len(t, f.Rejected, 1)
		assert.Equal(t, "p-2", f.Rejected[0].PaymentID)
		assert.Equal(t, "routing_number", f.Rejected[0].Field)
		assert.Equal(t, apperror.CodeFormatConstraint, f.Rejected[0].Code)
	})

	t.Run("missing originator", func(t *testing.T) {
		opts := nachaOptions()
		opts.OriginatorRouting = ""
		_, err := g.Generate(usdPayments(), opts)
		assert.ErrorIs(t, err, bankfileerrors.ErrMissingOriginator)
	})

	t.Run("nothing valid", func(t *testing.T) {
		payments := usdPayments()
		for i := range payments {
			payments[i].Currency = "EUR"
		}
		f, err := g.Generate(payments, nachaOptions())
		assert.ErrorIs(t, err, bankfileerrors.ErrNoValidPayments)
		assert.Len(t, f.Rejected, 3)
	})

	t.Run("amount wider than the entry field is rejected", func(t *testing.T) {
		payments := usdPayments()
		payments[0].Amount = amount("123456789.00")
		f, err := g.Generate(payments, nachaOptions())
		assert.NoError(t, err)
		assert.Equal(t, 2, f.Count)
		assert.Equal(t, int64(100000), f.ControlMinor)
		assert.Len(t, f.Rejected, 1)
		assert.Equal(t, "p-1", f.Rejected[0].PaymentID)
		assert.Equal(t, "amount", f.Rejected[0].Field)

		rows := lines(f.Content)
		var entrySum int64
		for _, r := range rows {
			if r[0] == '6' {
				n, err := strconv.ParseInt(r[29:39], 10, 64)
				assert.NoError(t, err)
				entrySum += n
			}
		}
		assert.Equal(t, f.ControlMinor, entrySum)
		assert.Equal(t, "000000100000", rows[4][32:44])
	})

	t.Run("largest entry amount still fits", func(t *testing.T) {
		payments := usdPayments()[:1]
		payments[0].Amount = amount("99999999.99")
		f, err := g.Generate(payments, nachaOptions())
		assert.NoError(t, err)
		assert.Empty(t, f.Rejected)
		assert.Equal(t, "9999999999", lines(f.Content)[2][29:39])
	})

	t.Run("control total wider than the control field", func(t *testing.T) {
		payments := make([]bankfile.Payment, 0, 101)
		for i := 0; i < 101; i++ {
			p := usdPayments()[0]
			p.PaymentID = fmt.Sprintf("p-%d", i)
			p.Amount = amount("99999999.99")
			payments = append(payments, p)
		}
		_, err := g.Generate(payments, nachaOptions())
		assert.ErrorIs(t, err, bankfileerrors.ErrControlTotalTooLarge)
	})
}

func TestSEPAGenerator(t *testing.T) {
	g, err := bankfile.Lookup(bankfile.FormatSEPA)
	assert.NoError(t, err)

	opts := bankfile.Options{
		CompanyName: "Acme GmbH",
		Sequence:    7,
		CreatedAt:   createdAt,
		ValueDate:   valueDate,
		DebtorIBAN:  "DE89 3704 0044 0532 0130 00",
		DebtorBIC:   "COBADEFFXXX",
	}
	payments := []bankfile.Payment{
		{PaymentID: "p-1", Name: "Marie Curie", Amount: amount("2100.50"), Currency: "EUR", IBAN: "FR1420041010050500013M02606"},
		{PaymentID: "p-2", Name: "Niels Bohr", Amount: amount("1899.50"), Currency: "EUR", IBAN: "DE89370400440532013001"},
		{PaymentID: "p-3", Name: "Lise Meitner", Amount: amount("1000.00"), Currency: "EUR", IBAN: "DE89370400440532013000", BIC: "COBADEFF"},
	}

	f, err := g.Generate(payments, opts)
	assert.NoError(t, err)

	body := string(f.Content)
	assert.Equal(t, 2, f.Count)
	assert.Contains(t, body, "<CtrlSum>3100.50</CtrlSum>")
	assert.Contains(t, body, "<NbOfTxs>2</NbOfTxs>")
	assert.Contains(t, body, "<MsgId>PAYROLL-000007</MsgId>")
	assert.Contains(t, body, "<CreDtTm>2024-05-30T14:05:00</CreDtTm>")
	assert.Contains(t, body, `<InstdAmt Ccy="EUR">2100.50</InstdAmt>`)
	assert.Contains(t, body, "<Cd>SALA</Cd>")
	assert.Equal(t, "SEPA_20240531_000007.xml", f.Filename)

	assert.Len(t, f.Rejected, 1)
	assert.Equal(t, "iban", f.Rejected[0].Field)
	assert.Equal(t, "p-2", f.Rejected[0].PaymentID)
}

func TestSEPAGenerator_AmountBound(t *testing.T) {
	g, err := bankfile.Lookup(bankfile.FormatSEPA)
	assert.NoError(t, err)

	opts := bankfile.Options{
		CompanyName: "Acme GmbH",
		Sequence:    8,
		CreatedAt:   createdAt,
		ValueDate:   valueDate,
		DebtorIBAN:  "DE89370400440532013000",
	}
	payments := []bankfile.Payment{
		{PaymentID: "p-1", Name: "Marie Curie", Amount: amount("1000000000.00"), Currency: "EUR", IBAN: "FR1420041010050500013M02606"},
		{PaymentID: "p-2", Name: "Lise Meitner", Amount: amount("999999999.99"), Currency: "EUR", IBAN: "DE89370400440532013000"},
	}

	f, err := g.Generate(payments, opts)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.Count)
	assert.Len(t, f.Rejected, 1)
	assert.Equal(t, "p-1", f.Rejected[0].PaymentID)
	assert.Equal(t, "amount", f.Rejected[0].Field)
	assert.Contains(t, string(f.Content), `<InstdAmt Ccy="EUR">999999999.99</InstdAmt>`)
}

func TestNIBSSGenerator(t *testing.T) {
	g, err := bankfile.Lookup(bankfile.FormatNIBSS)
	assert.NoError(t, err)

	opts := bankfile.Options{Sequence: 3, ValueDate: valueDate, DebitAccount: "0123456789", Reference: "May salary"}
	payments := []bankfile.Payment{
		{PaymentID: "p-1", Name: "Okafor, Chinedu", Amount: amount("250000"), Currency: "NGN", AccountNumber: "0011223344", BankCode: "058"},
		{PaymentID: "p-2", Name: `Ada "Ngozi" Eze`, Amount: amount("180000.5"), Currency: "NGN", AccountNumber: "0099887766", BankCode: "000013"},
		{PaymentID: "p-3", Name: "Bola", Amount: amount("1000"), Currency: "NGN", AccountNumber: "12345", BankCode: "058"},
	}

	f, err := g.Generate(payments, opts)
	assert.NoError(t, err)
	rows := strings.Split(strings.TrimSuffix(string(f.Content), "\r\n"), "\r\n")

	assert.Equal(t, `"Serial Number","Account Number","Bank Code",Amount,"Account Name",Narration,"Debit Account"`, rows[0])
	assert.Equal(t, `1,0011223344,058,250000.00,"Okafor, Chinedu","May salary",0123456789`, rows[1])
	assert.Equal(t, `2,0099887766,000013,180000.50,"Ada ""Ngozi"" Eze","May salary",0123456789`, rows[2])
	assert.Len(t, rows, 3)
	assert.Len(t, f.Rejected, 1)
	assert.Equal(t, "account_number", f.Rejected[0].Field)
	assert.Equal(t, "430000.5", f.ControlSum.String())
}

func TestBACSGenerator(t *testing.T) {
	g, err := bankfile.Lookup(bankfile.FormatBACS)
	assert.NoError(t, err)

	opts := bankfile.Options{
		CompanyName:        "Acme Ltd",
		Reference:          "PAYROLL MAY",
		Sequence:           12,
		CreatedAt:          createdAt,
		ValueDate:          valueDate,
		ServiceUserNumber:  "123456",
		OriginatorSortCode: "20-00-00",
		OriginatorAccount:  "55779911",
	}
	payments := []bankfile.Payment{
		{PaymentID: "p-1", Name: "Jane Smith", Amount: amount("2453.30"), Currency: "GBP", SortCode: "40-47-84", AccountNumber: "70872490"},
		{PaymentID: "p-2", Name: "John Doe", Amount: amount("2345.30"), Currency: "GBP", SortCode: "30-00-00", AccountNumber: "12345678"},
		{PaymentID: "p-3", Name: "No Account", Amount: amount("100"), Currency: "GBP", SortCode: "30-00-00"},
	}

	f, err := g.Generate(payments, opts)
	assert.NoError(t, err)
	rows := lines(f.Content)

	assert.Len(t, rows, 8)
	assert.Equal(t, "VOL1000012", rows[0][:10])
	assert.Equal(t, " 24152", rows[2][4:10])

	detail := rows[3]
	assert.Len(t, detail, 100)
	assert.Equal(t, "40478470872490099", detail[:17])
	assert.Equal(t, "00000245330", detail[35:46])

	contra := rows[5]
	assert.Equal(t, "20000055779911017", contra[:17])
	assert.Equal(t, "00000479860", contra[35:46])

	utl := rows[7]
	assert.Equal(t, "UTL1", utl[:4])
	assert.Equal(t, "0000000479860", utl[4:17])
	assert.Equal(t, "0000002", utl[37:44])

	assert.Equal(t, 2, f.Count)
	assert.Len(t, f.Rejected, 1)
}

func TestMT103Generator(t *testing.T) {
	g, err := bankfile.Lookup(bankfile.FormatMT103)
	assert.NoError(t, err)

	opts := bankfile.Options{
		CompanyName: "Acme Holdings Pte Ltd",
		Sequence:    2,
		ValueDate:   valueDate,
		Currency:    "USD",
		DebtorIBAN:  "GB82WEST12345698765432",
		DebtorBIC:   "WESTGB2L",
	}
	payments := []bankfile.Payment{
		{PaymentID: "p-1", Name: "Wei Zhang", Amount: amount("4200.5"), Currency: "USD", BIC: "DBSSSGSG", AccountNumber: "0123456789"},
		{PaymentID: "p-2", Name: "No Bic", Amount: amount("10"), Currency: "USD", AccountNumber: "1"},
	}

	f, err := g.Generate(payments, opts)
	assert.NoError(t, err)
	body := string(f.Content)

	assert.Contains(t, body, "{1:F01WESTGB2LXXXX0000020001}")
	assert.Contains(t, body, ":32A:240531USD4200,50")
	assert.Contains(t, body, ":59:/0123456789")
	assert.Contains(t, body, ":71A:SHA")
	assert.Equal(t, 1, f.Count)
	assert.Len(t, f.Rejected, 1)
	assert.Equal(t, "bic", f.Rejected[0].Field)
}

func TestLookup(t *testing.T) {
	_, err := bankfile.Lookup("swift-gpi")
	assert.ErrorIs(t, err, bankfileerrors.ErrUnsupportedFormat)
	assert.Equal(t, []string{"BACS", "MT103", "NACHA", "NIBSS", "SEPA"}, bankfile.Formats())
}
