package bankfile

import (
	"fmt"
	"strconv"
	"strings"

	bankfileerrors "go-payroll/internal/bankfile/errors"
	"go-payroll/internal/shared/money"
)

const (
	nachaRecordLength   = 94
	nachaBlockingFactor = 10
	nachaServiceCredits = 220
	nachaCheckingCredit = 22
	nachaSavingsCredit  = 32

	nachaMaxEntryMinor   = 9_999_999_999
	nachaMaxControlMinor = 999_999_999_999
)

// NACHAGenerator writes a single-batch PPD credit file.
type NACHAGenerator struct{}

func (NACHAGenerator) Format() string { return FormatNACHA }

func (g NACHAGenerator) Generate(payments []Payment, opts Options) (File, error) {
	const currency = "USD"
	odfi := Digits(opts.OriginatorRouting)
	if !validABA(odfi) || strings.TrimSpace(opts.OriginatorID) == "" || strings.TrimSpace(opts.CompanyName) == "" {
		return File{}, bankfileerrors.ErrMissingOriginator
	}
	destination := Digits(opts.DestinationRouting)
	if destination == "" {
		destination = odfi
	}
	if !validABA(destination) {
		return File{}, bankfileerrors.ErrMissingOriginator
	}

	accepted, rejected := partition(payments, currency,
		required("name", func(p Payment) string { return p.Name }),
		func(p Payment) (string, string) {
			if !validABA(Digits(p.RoutingNumber)) {
				return "routing_number", "a valid 9-digit ABA routing number is required"
			}
			return "", ""
		},
		func(p Payment) (string, string) {
			acct := strings.TrimSpace(p.AccountNumber)
			if acct == "" || len(acct) > 17 {
				return "account_number", "account number of 1-17 characters is required"
			}
			return "", ""
		},
		// entry amount is 10 digits of cents
		maxMinor(currency, nachaMaxEntryMinor, "NACHA entry"),
	)
	if _, minor := totals(accepted, currency); minor > nachaMaxControlMinor {
		return File{}, bankfileerrors.ErrControlTotalTooLarge
	}

	modifier := fileIDModifier(opts.Sequence)
	lines := []string{
		NewFixedRecord(nachaRecordLength).
			Put(1, 1, "1").
			Put(2, 3, "01").
			Put(4, 13, " "+destination).
			Put(14, 23, PadLeft(Digits(opts.OriginatorID), 10, ' ')).
			Put(24, 29, opts.CreatedAt.UTC().Format("060102")).
			Put(30, 33, opts.CreatedAt.UTC().Format("1504")).
			Put(34, 34, modifier).
			Put(35, 37, "094").
			Put(38, 39, "10").
			Put(40, 40, "1").
			Alpha(41, 63, opts.DestinationName).
			Alpha(64, 86, opts.CompanyName).
			Alpha(87, 94, opts.Reference).
			String(),
	}

	const batchNumber = 1
	lines = append(lines, NewFixedRecord(nachaRecordLength).
		Put(1, 1, "5").
		Numeric(2, 4, nachaServiceCredits).
		Alpha(5, 20, opts.CompanyName).
		Alpha(21, 40, "").
		Alpha(41, 50, opts.OriginatorID).
		Put(51, 53, "PPD").
		Alpha(54, 63, "PAYROLL").
		Put(64, 69, opts.ValueDate.Format("060102")).
		Put(70, 75, opts.ValueDate.Format("060102")).
		Put(79, 79, "1").
		Put(80, 87, odfi[:8]).
		Numeric(88, 94, batchNumber).
		String())

	var (
		entryHash   int64
		totalCredit int64
	)
	for i, p := range accepted {
		routing := Digits(p.RoutingNumber)
		amount := money.ToMinor(p.Amount, currency)
		head, _ := strconv.ParseInt(routing[:8], 10, 64)
		entryHash += head
		totalCredit += amount

		code := nachaCheckingCredit
		if strings.EqualFold(p.AccountType, "savings") {
			code = nachaSavingsCredit
		}

		lines = append(lines, NewFixedRecord(nachaRecordLength).
			Put(1, 1, "6").
			Numeric(2, 3, int64(code)).
			Put(4, 11, routing[:8]).
			Put(12, 12, routing[8:9]).
			Alpha(13, 29, p.AccountNumber).
			Numeric(30, 39, amount).
			Alpha(40, 54, shortID(p.EmployeeID)).
			Alpha(55, 76, p.Name).
			Put(79, 79, "0").
			Put(80, 94, odfi[:8]+Numeric(int64(i+1), 7)).
			String())
	}

	entryCount := int64(len(accepted))
	hash := entryHash % 10_000_000_000
	lines = append(lines, NewFixedRecord(nachaRecordLength).
		Put(1, 1, "8").
		Numeric(2, 4, nachaServiceCredits).
		Numeric(5, 10, entryCount).
		Numeric(11, 20, hash).
		Numeric(21, 32, 0).
		Numeric(33, 44, totalCredit).
		Alpha(45, 54, opts.OriginatorID).
		Put(80, 87, odfi[:8]).
		Numeric(88, 94, batchNumber).
		String())

	// file control counts itself, so blocks are computed over n+1 records
	blocks := (int64(len(lines)) + 1 + nachaBlockingFactor - 1) / nachaBlockingFactor
	lines = append(lines, NewFixedRecord(nachaRecordLength).
		Put(1, 1, "9").
		Numeric(2, 7, 1).
		Numeric(8, 13, blocks).
		Numeric(14, 21, entryCount).
		Numeric(22, 31, hash).
		Numeric(32, 43, 0).
		Numeric(44, 55, totalCredit).
		String())

	for len(lines)%nachaBlockingFactor != 0 {
		lines = append(lines, strings.Repeat("9", nachaRecordLength))
	}

	return finish(File{
		Format:      FormatNACHA,
		Filename:    fmt.Sprintf("NACHA_%s_%s.ach", opts.ValueDate.Format("20060102"), modifier),
		ContentType: "text/plain",
		Content:     []byte(strings.Join(lines, "\n") + "\n"),
		Rejected:    rejected,
	}, accepted, currency)
}

// validABA checks length and the 3-7-1 routing checksum.
func validABA(routing string) bool {
	if len(routing) != 9 {
		return false
	}
	weights := [9]int{3, 7, 1, 3, 7, 1, 3, 7, 1}
	sum := 0
	for i, r := range routing {
		sum += int(r-'0') * weights[i]
	}
	return sum%10 == 0
}

// fileIDModifier maps a daily sequence onto A-Z then 0-9.
func fileIDModifier(seq int64) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	if seq < 1 {
		seq = 1
	}
	return string(alphabet[(seq-1)%int64(len(alphabet))])
}

func shortID(id string) string {
	return strings.ToUpper(strings.ReplaceAll(id, "-", ""))
}
