package bankfile

import (
	"fmt"
	"strings"

	bankfileerrors "go-payroll/internal/bankfile/errors"
	"go-payroll/internal/shared/money"
)

const mt103LineWidth = 35

// MT103Generator writes one SWIFT MT103 single customer credit transfer per
// payment, separated by "$" as in bulk FIN uploads.
type MT103Generator struct{}

func (MT103Generator) Format() string { return FormatMT103 }

func (g MT103Generator) Generate(payments []Payment, opts Options) (File, error) {
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	sender := strings.ToUpper(strings.TrimSpace(opts.DebtorBIC))
	if !bicPattern.MatchString(sender) || strings.TrimSpace(opts.DebtorIBAN) == "" || opts.CompanyName == "" {
		return File{}, bankfileerrors.ErrMissingOriginator
	}
	if currency == "" || !money.Valid(currency) {
		return File{}, bankfileerrors.ErrMissingOriginator
	}

	accepted, rejected := partition(payments, currency,
		required("name", func(p Payment) string { return p.Name }),
		func(p Payment) (string, string) {
			if !bicPattern.MatchString(strings.ToUpper(strings.TrimSpace(p.BIC))) {
				return "bic", "beneficiary BIC is required"
			}
			return "", ""
		},
		func(p Payment) (string, string) {
			if beneficiaryAccount(p) == "" {
				return "account_number", "beneficiary account or IBAN is required"
			}
			return "", ""
		},
	)

	messages := make([]string, 0, len(accepted))
	for i, p := range accepted {
		ref := fmt.Sprintf("%s%04d", strings.ReplaceAll(swiftText(opts.Reference, 12), " ", ""), i+1)
		if opts.Reference == "" {
			ref = fmt.Sprintf("PAY%06d%04d", opts.Sequence, i+1)
		}

		block4 := []string{
			":20:" + swiftText(ref, 16),
			":23B:CRED",
			":32A:" + opts.ValueDate.Format("060102") + currency + swiftAmount(money.Format(p.Amount, currency)),
			":50K:/" + swiftText(normalizeIBAN(opts.DebtorIBAN), 34),
		}
		block4 = append(block4, wrapSwift(opts.CompanyName, 4)...)
		block4 = append(block4,
			":57A:"+strings.ToUpper(strings.TrimSpace(p.BIC)),
			":59:/"+swiftText(beneficiaryAccount(p), 34),
		)
		block4 = append(block4, wrapSwift(p.Name, 4)...)
		block4 = append(block4, ":70:"+swiftText(firstNonEmpty(p.Reference, "SALARY "+opts.ValueDate.Format("2006-01")), mt103LineWidth-4))
		block4 = append(block4, ":71A:SHA")

		messages = append(messages, fmt.Sprintf("{1:F01%sXXXX%010d}{2:I103%sXXXXN}{4:\r\n%s\r\n-}",
			PadRight(sender, 8, 'X')[:8],
			opts.Sequence*10000+int64(i+1),
			PadRight(strings.ToUpper(strings.TrimSpace(p.BIC)), 8, 'X')[:8],
			strings.Join(block4, "\r\n"),
		))
	}

	return finish(File{
		Format:      FormatMT103,
		Filename:    fmt.Sprintf("MT103_%s_%06d.fin", opts.ValueDate.Format("20060102"), opts.Sequence),
		ContentType: "text/plain",
		Content:     []byte(strings.Join(messages, "\r\n$\r\n")),
		Rejected:    rejected,
	}, accepted, currency)
}

func beneficiaryAccount(p Payment) string {
	if iban := normalizeIBAN(p.IBAN); iban != "" {
		return iban
	}
	return strings.TrimSpace(p.AccountNumber)
}

// swiftAmount renders 1234.50 as 1234,50.
func swiftAmount(s string) string {
	if !strings.Contains(s, ".") {
		return s + ","
	}
	return strings.Replace(s, ".", ",", 1)
}

// swiftText restricts s to the SWIFT X character set and width.
func swiftText(s string, width int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(Sanitize(s)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("/-?:().,'+ ", r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > width {
		out = out[:width]
	}
	return out
}

// wrapSwift splits s into at most lines lines of 35 characters.
func wrapSwift(s string, lines int) []string {
	text := swiftText(s, mt103LineWidth*lines)
	out := make([]string, 0, lines)
	for len(text) > 0 && len(out) < lines {
		n := mt103LineWidth
		if len(text) < n {
			n = len(text)
		}
		out = append(out, strings.TrimSpace(text[:n]))
		text = strings.TrimSpace(text[n:])
	}
	return out
}
