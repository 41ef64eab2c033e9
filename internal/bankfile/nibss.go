package bankfile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	bankfileerrors "go-payroll/internal/bankfile/errors"
	"go-payroll/internal/shared/money"
)

// NIBSSColumns is the header row of a NIBSS bulk credit upload. Column order
// is part of the format and must not change.
var NIBSSColumns = []string{
	"Serial Number",
	"Account Number",
	"Bank Code",
	"Amount",
	"Account Name",
	"Narration",
	"Debit Account",
}

const nibssDelimiter = ','

// NIBSSGenerator writes the NGN bulk credit CSV accepted by NIBSS NIP/NEFT
// upload portals.
type NIBSSGenerator struct{}

func (NIBSSGenerator) Format() string { return FormatNIBSS }

func (g NIBSSGenerator) Generate(payments []Payment, opts Options) (File, error) {
	const currency = "NGN"
	debit := Digits(opts.DebitAccount)
	if len(debit) != 10 {
		return File{}, bankfileerrors.ErrMissingOriginator
	}

	accepted, rejected := partition(payments, currency,
		required("name", func(p Payment) string { return p.Name }),
		func(p Payment) (string, string) {
			if n := Digits(p.AccountNumber); len(n) != 10 || n != strings.TrimSpace(p.AccountNumber) {
				return "account_number", "a 10-digit NUBAN is required"
			}
			return "", ""
		},
		func(p Payment) (string, string) {
			code := strings.TrimSpace(p.BankCode)
			if d := Digits(code); d != code || (len(d) != 3 && len(d) != 6) {
				return "bank_code", "a 3 or 6 digit bank code is required"
			}
			return "", ""
		},
	)

	narration := opts.Reference
	if narration == "" {
		narration = fmt.Sprintf("Salary %s", opts.ValueDate.Format("Jan 2006"))
	}

	var b strings.Builder
	writeCSVRow(&b, NIBSSColumns)
	for i, p := range accepted {
		writeCSVRow(&b, []string{
			strconv.Itoa(i + 1),
			strings.TrimSpace(p.AccountNumber),
			strings.TrimSpace(p.BankCode),
			money.Format(p.Amount, currency),
			Sanitize(p.Name),
			Sanitize(firstNonEmpty(p.Reference, narration)),
			debit,
		})
	}

	return finish(File{
		Format:      FormatNIBSS,
		Filename:    fmt.Sprintf("NIBSS_%s_%06d.csv", opts.ValueDate.Format("20060102"), opts.Sequence),
		ContentType: "text/csv",
		Content:     []byte(b.String()),
		Rejected:    rejected,
	}, accepted, currency)
}

// writeCSVRow writes one CRLF-terminated row. Fields containing the
// delimiter, a quote or any whitespace are quoted with doubled inner quotes.
func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(nibssDelimiter)
		}
		b.WriteString(quoteCSV(f))
	}
	b.WriteString("\r\n")
}

func quoteCSV(f string) string {
	if !needsQuote(f) {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}

func needsQuote(f string) bool {
	if f == "" {
		return false
	}
	for _, r := range f {
		if r == nibssDelimiter || r == '"' || unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
