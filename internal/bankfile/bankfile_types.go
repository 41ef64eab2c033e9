package bankfile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	bankfileerrors "go-payroll/internal/bankfile/errors"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/money"
)

const (
	FormatSEPA  = "SEPA"
	FormatNACHA = "NACHA"
	FormatBACS  = "BACS"
	FormatNIBSS = "NIBSS"
	FormatMT103 = "MT103"
)

// Payment is one net-pay instruction.
type Payment struct {
	PaymentID     string
	EmployeeID    string
	Name          string
	Amount        decimal.Decimal
	Currency      string
	IBAN          string
	BIC           string
	AccountNumber string
	RoutingNumber string
	SortCode      string
	BankCode      string
	AccountType   string
	Reference     string
}

// Options carries the originator side of a file and everything else that
// would otherwise make output depend on the clock.
type Options struct {
	CompanyName string
	Reference   string
	Sequence    int64
	CreatedAt   time.Time
	ValueDate   time.Time
	Currency    string

	// SEPA / MT103
	DebtorIBAN string
	DebtorBIC  string

	// NACHA
	OriginatorID       string
	OriginatorRouting  string
	DestinationRouting string
	DestinationName    string

	// BACS
	ServiceUserNumber     string
	OriginatorSortCode    string
	OriginatorAccount     string
	OriginatorAccountName string

	// NIBSS
	DebitAccount string
}

type Rejection struct {
	PaymentID  string `json:"payment_id"`
	EmployeeID string `json:"employee_id"`
	Code       string `json:"code"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}

type File struct {
	Format       string
	Filename     string
	ContentType  string
	Content      []byte
	Count        int
	ControlSum   decimal.Decimal
	ControlMinor int64
	Rejected     []Rejection
}

type Generator interface {
	Format() string
	Generate(payments []Payment, opts Options) (File, error)
}

var generators = map[string]Generator{
	FormatSEPA:  SEPAGenerator{},
	FormatNACHA: NACHAGenerator{},
	FormatBACS:  BACSGenerator{},
	FormatNIBSS: NIBSSGenerator{},
	FormatMT103: MT103Generator{},
}

// Lookup returns the generator registered for format.
func Lookup(format string) (Generator, error) {
	g, ok := generators[strings.ToUpper(strings.TrimSpace(format))]
	if !ok {
		return nil, bankfileerrors.ErrUnsupportedFormat
	}
	return g, nil
}

func Formats() []string {
	out := make([]string, 0, len(generators))
	for f := range generators {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// check is a per-payment constraint; a non-empty field name rejects.
type check func(p Payment) (field string, message string)

// partition splits payments into the ones every check accepts and
// rejections for the rest, keeping input order.
func partition(payments []Payment, currency string, checks ...check) ([]Payment, []Rejection) {
	accepted := make([]Payment, 0, len(payments))
	rejected := []Rejection{}

	all := append([]check{positiveAmount, currencyIs(currency)}, checks...)
	for _, p := range payments {
		var field, message string
		for _, c := range all {
			if field, message = c(p); field != "" {
				break
			}
		}
		if field != "" {
			rejected = append(rejected, Rejection{
				PaymentID:  p.PaymentID,
				EmployeeID: p.EmployeeID,
				Code:       apperror.CodeFormatConstraint,
				Field:      field,
				Message:    message,
			})
			continue
		}
		accepted = append(accepted, p)
	}
	return accepted, rejected
}

func positiveAmount(p Payment) (string, string) {
	if !p.Amount.IsPositive() {
		return "amount", "amount must be positive"
	}
	return "", ""
}

func currencyIs(currency string) check {
	return func(p Payment) (string, string) {
		if currency != "" && !strings.EqualFold(p.Currency, currency) {
			return "currency", fmt.Sprintf("rail settles %s only, payment is %s", currency, p.Currency)
		}
		return "", ""
	}
}

// maxMinor rejects amounts whose minor units do not fit a rail's amount
// field. limit is the largest value the field can hold.
func maxMinor(currency string, limit int64, rail string) check {
	return func(p Payment) (string, string) {
		if money.ToMinor(p.Amount, currency) > limit {
			return "amount", fmt.Sprintf("amount exceeds the %s amount field", rail)
		}
		return "", ""
	}
}

func required(field string, get func(Payment) string) check {
	return func(p Payment) (string, string) {
		if strings.TrimSpace(get(p)) == "" {
			return field, field + " is required"
		}
		return "", ""
	}
}

// totals sums amounts in the rail currency.
func totals(payments []Payment, currency string) (decimal.Decimal, int64) {
	sum := decimal.Zero
	var minor int64
	for _, p := range payments {
		sum = sum.Add(money.Round(p.Amount, currency))
		minor += money.ToMinor(p.Amount, currency)
	}
	return sum, minor
}

func finish(f File, payments []Payment, currency string) (File, error) {
	f.Count = len(payments)
	f.ControlSum, f.ControlMinor = totals(payments, currency)
	if f.Count == 0 {
		return f, bankfileerrors.ErrNoValidPayments
	}
	return f, nil
}
