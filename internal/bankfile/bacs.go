package bankfile

import (
	"fmt"
	"strings"
	"time"

	bankfileerrors "go-payroll/internal/bankfile/errors"
	"go-payroll/internal/shared/money"
)

const (
	bacsLabelLength  = 80
	bacsDetailLength = 100
	bacsCredit       = "99"
	bacsContra       = "17"
)

// BACSGenerator writes a single-day Standard 18 submission: labels, one
// credit record per payment and a balancing contra debit.
type BACSGenerator struct{}

func (BACSGenerator) Format() string { return FormatBACS }

func (g BACSGenerator) Generate(payments []Payment, opts Options) (File, error) {
	const currency = "GBP"
	sun := Digits(opts.ServiceUserNumber)
	origSort := Digits(opts.OriginatorSortCode)
	origAcct := Digits(opts.OriginatorAccount)
	if len(sun) != 6 || len(origSort) != 6 || len(origAcct) != 8 {
		return File{}, bankfileerrors.ErrMissingOriginator
	}
	origName := opts.OriginatorAccountName
	if origName == "" {
		origName = opts.CompanyName
	}

	accepted, rejected := partition(payments, currency,
		required("name", func(p Payment) string { return p.Name }),
		func(p Payment) (string, string) {
			if len(Digits(p.SortCode)) != 6 {
				return "sort_code", "a 6-digit sort code is required"
			}
			return "", ""
		},
		func(p Payment) (string, string) {
			if len(Digits(p.AccountNumber)) != 8 {
				return "account_number", "an 8-digit account number is required"
			}
			return "", ""
		},
		// 11 digits of pence
		maxMinor(currency, 99_999_999_999, "Standard 18"),
	)

	serial := Numeric(opts.Sequence, 6)
	created := julian(opts.CreatedAt)
	processing := julian(opts.ValueDate)
	reference := opts.Reference
	if reference == "" {
		reference = "PAYROLL"
	}

	lines := []string{
		NewFixedRecord(bacsLabelLength).
			Put(1, 4, "VOL1").
			Put(5, 10, serial).
			Put(11, 11, "0").
			Put(42, 47, sun).
			Put(80, 80, "1").
			String(),
		NewFixedRecord(bacsLabelLength).
			Put(1, 4, "HDR1").
			Put(5, 21, PadRight("A"+sun+"S  1"+sun, 17, ' ')).
			Put(22, 27, serial).
			Put(28, 31, "0001").
			Put(32, 35, "0001").
			Put(42, 47, created).
			Put(48, 53, processing).
			String(),
		NewFixedRecord(bacsLabelLength).
			Put(1, 4, "UHL1").
			Put(5, 10, processing).
			Put(11, 20, "999999    ").
			Put(21, 22, "00").
			Put(23, 28, "000000").
			Put(29, 37, "1 DAILY  ").
			Put(38, 40, "001").
			String(),
	}

	var credit int64
	for _, p := range accepted {
		amount := money.ToMinor(p.Amount, currency)
		credit += amount
		lines = append(lines, NewFixedRecord(bacsDetailLength).
			Put(1, 6, Digits(p.SortCode)).
			Put(7, 14, Digits(p.AccountNumber)).
			Put(15, 15, "0").
			Put(16, 17, bacsCredit).
			Put(18, 23, origSort).
			Put(24, 31, origAcct).
			Numeric(36, 46, amount).
			Alpha(47, 64, origName).
			Alpha(65, 82, firstNonEmpty(p.Reference, reference)).
			Alpha(83, 100, p.Name).
			String())
	}

	lines = append(lines, NewFixedRecord(bacsDetailLength).
		Put(1, 6, origSort).
		Put(7, 14, origAcct).
		Put(15, 15, "0").
		Put(16, 17, bacsContra).
		Put(18, 23, origSort).
		Put(24, 31, origAcct).
		Numeric(36, 46, credit).
		Alpha(47, 64, "CONTRA").
		Alpha(65, 82, reference).
		Alpha(83, 100, origName).
		String())

	lines = append(lines,
		NewFixedRecord(bacsLabelLength).
			Put(1, 4, "EOF1").
			Put(5, 21, PadRight("A"+sun+"S  1"+sun, 17, ' ')).
			Put(22, 27, serial).
			Put(42, 47, created).
			Put(48, 53, processing).
			String(),
		NewFixedRecord(bacsLabelLength).
			Put(1, 4, "UTL1").
			Numeric(5, 17, credit).
			Numeric(18, 30, credit).
			Numeric(31, 37, 1).
			Numeric(38, 44, int64(len(accepted))).
			String(),
	)

	return finish(File{
		Format:      FormatBACS,
		Filename:    fmt.Sprintf("BACS_%s_%s.txt", sun, serial),
		ContentType: "text/plain",
		Content:     []byte(strings.Join(lines, "\n") + "\n"),
		Rejected:    rejected,
	}, accepted, currency)
}

// julian renders the " yyddd" date used in Standard 18 labels.
func julian(t time.Time) string {
	return fmt.Sprintf(" %s%03d", t.Format("06"), t.YearDay())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
