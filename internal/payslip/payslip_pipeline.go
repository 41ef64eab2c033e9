package payslip

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go-payroll/internal/directory"
	payslipserrors "go-payroll/internal/payslip/errors"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/money"
	"go-payroll/internal/tax"
)

const (
	dateLayout = "2006-01-02"
	// matches the numeric(18,4) quantity column
	quantityScale = 4
)

var (
	defaultWeeklyHours        = decimal.NewFromInt(40)
	defaultOvertimeMultiplier = decimal.RequireFromString("1.5")
	weeksPerYear              = decimal.NewFromInt(52)
	hundred                   = decimal.NewFromInt(100)
)

// Pipeline computes one employee's payslip. It performs no I/O and runs
// its steps strictly in order.
type Pipeline struct {
	dispatcher *tax.Dispatcher
	signer     *Signer
	validate   *validator.Validate
}

func NewPipeline(dispatcher *tax.Dispatcher, signer *Signer) *Pipeline {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Pipeline{dispatcher: dispatcher, signer: signer, validate: v}
}

func (p *Pipeline) Signer() *Signer { return p.signer }

type calculation struct {
	snap     directory.CompensationSnapshot
	in       Input
	freq     tax.Frequency
	periods  decimal.Decimal
	currency string
	slip     *Payslip
	warnings []Warning

	taxResult   tax.Result
	pensionable decimal.Decimal
}

// Calculate validates the input and then runs the twelve calculation steps.
// The returned payslip is a DRAFT at version 1; callers set versioning and
// ownership fields for amendments.
func (p *Pipeline) Calculate(snap directory.CompensationSnapshot, in Input, actorID uuid.UUID, now time.Time) (*Payslip, error) {
	c, err := p.prepare(snap, in)
	if err != nil {
		return nil, err
	}

	c.slip.CreatedBy = actorID
	c.slip.GeneratedAt = now.UTC()

	c.earnings()
	c.allowances()
	c.gross()
	c.preTaxDeductions()
	c.taxableBase()
	if err := c.taxes(p.dispatcher); err != nil {
		return nil, err
	}
	c.postTaxDeductions()
	c.employerContributions()
	c.netPay()
	c.negativeNetGuard()
	c.yearToDate()

	c.slip.Warnings = c.warnings
	c.slip.Signature = p.signer.Sign(c.slip)
	return c.slip, nil
}

func (p *Pipeline) prepare(snap directory.CompensationSnapshot, in Input) (*calculation, error) {
	if err := p.validate.Struct(in); err != nil {
		return nil, apperror.MapValidationError(err)
	}

	start, _ := time.Parse(dateLayout, in.PeriodStart)
	end, _ := time.Parse(dateLayout, in.PeriodEnd)
	if start.After(end) {
		return nil, payslipserrors.ErrInvalidDateRange
	}
	payDate := end
	if in.PayDate != "" {
		payDate, _ = time.Parse(dateLayout, in.PayDate)
	}

	if err := checkNonNegative(snap, in); err != nil {
		return nil, err
	}

	freq, err := tax.ParseFrequency(snap.PayFrequency)
	if err != nil {
		return nil, err
	}
	periods, _ := freq.PeriodsPerYear()

	currency := strings.ToUpper(strings.TrimSpace(snap.Currency))
	if currency == "" || !money.Valid(currency) {
		return nil, payslipserrors.ErrMissingCurrency
	}

	slip := &Payslip{
		ID:           uuid.New(),
		CompanyID:    snap.CompanyID,
		EmployeeID:   snap.EmployeeID,
		EmployeeName: snap.FullName,
		Department:   snap.Department,
		PeriodStart:  start,
		PeriodEnd:    end,
		PayDate:      payDate,
		Country:      strings.ToUpper(strings.TrimSpace(snap.Country)),
		Currency:     currency,
		Frequency:    string(freq),
		Status:       StatusDraft,
		Version:      1,
	}
	if in.PayrollRunID != "" {
		runID := uuid.MustParse(in.PayrollRunID)
		slip.PayrollRunID = &runID
	}

	return &calculation{
		snap:     snap,
		in:       in,
		freq:     freq,
		periods:  decimal.NewFromInt(periods),
		currency: currency,
		slip:     slip,
	}, nil
}

func checkNonNegative(snap directory.CompensationSnapshot, in Input) error {
	values := []decimal.Decimal{snap.BaseSalary, snap.WeeklyHours, snap.PensionEmployeePct, snap.PensionEmployerPct, in.OvertimeHours}
	if in.OvertimeMultiplier != nil {
		values = append(values, *in.OvertimeMultiplier)
	}
	for _, b := range in.Bonuses {
		values = append(values, b.Amount)
	}
	for _, a := range in.Allowances {
		values = append(values, a.Amount)
	}
	for _, d := range in.Deductions {
		values = append(values, d.Amount)
	}
	if in.PriorYTD != nil {
		values = append(values, in.PriorYTD.Gross, in.PriorYTD.Tax, in.PriorYTD.PreTax, in.PriorYTD.PostTax)
	}

	for _, v := range values {
		if v.IsNegative() {
			return payslipserrors.ErrNegativeAmount
		}
	}
	return nil
}

func (c *calculation) round(v decimal.Decimal) decimal.Decimal {
	return money.Round(v, c.currency)
}

func (c *calculation) add(l PayslipLine) {
	l.ID = uuid.New()
	l.PayslipID = c.slip.ID
	l.CompanyID = c.slip.CompanyID
	l.Position = len(c.slip.Lines) + 1
	if l.Quantity.IsZero() {
		l.Quantity = decimal.NewFromInt(1)
	}
	l.Quantity = l.Quantity.Round(quantityScale)
	c.slip.Lines = append(c.slip.Lines, l)
}

func (c *calculation) warn(code, message string) {
	c.warnings = append(c.warnings, Warning{Code: code, Message: message})
}

func (c *calculation) sum(match func(PayslipLine) bool) decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.slip.Lines {
		if match(l) {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// Step 1: base salary for the period, overtime and bonuses.
func (c *calculation) earnings() {
	annual := c.snap.BaseSalary
	c.add(PayslipLine{
		LineType:        LineEarning,
		Classification:  ClassBase,
		Code:            "BASIC",
		Label:           "Basic Salary",
		Amount:          c.round(annual.Div(c.periods)),
		Taxable:         true,
		SocialEligible:  true,
		PensionEligible: true,
		Trace: traceOf(tax.FormulaTrace("annual_salary / periods_per_year", "", map[string]string{
			"annual_salary": annual.String(),
			"periods":       c.periods.String(),
			"frequency":     string(c.freq),
		})),
	})

	if c.in.OvertimeHours.IsPositive() {
		weekly := c.snap.WeeklyHours
		if !weekly.IsPositive() {
			weekly = defaultWeeklyHours
		}
		multiplier := defaultOvertimeMultiplier
		if c.in.OvertimeMultiplier != nil && c.in.OvertimeMultiplier.IsPositive() {
			multiplier = *c.in.OvertimeMultiplier
		}
		hours := c.in.OvertimeHours.Round(quantityScale)
		hourly := annual.Div(weekly.Mul(weeksPerYear))
		rate := hourly.Mul(multiplier).Round(6)

		c.add(PayslipLine{
			LineType:       LineEarning,
			Classification: ClassOvertime,
			Code:           "OVERTIME",
			Label:          "Overtime",
			Quantity:       hours,
			Rate:           &rate,
			Amount:         c.round(hours.Mul(hourly).Mul(multiplier)),
			Taxable:        true,
			SocialEligible: true,
			Trace: traceOf(tax.FormulaTrace("hours * (annual_salary / (weekly_hours * 52)) * multiplier", "", map[string]string{
				"hours":         hours.String(),
				"annual_salary": annual.String(),
				"weekly_hours":  weekly.String(),
				"multiplier":    multiplier.String(),
			})),
		})
	}

	for _, b := range c.in.Bonuses {
		c.add(PayslipLine{
			LineType:       LineEarning,
			Classification: ClassBonus,
			Code:           b.Code,
			Label:          b.Label,
			Amount:         c.round(b.Amount),
			Taxable:        !b.NonTaxable,
			SocialEligible: !b.NonTaxable,
			Trace:          traceOf(tax.FormulaTrace("declared bonus", "", map[string]string{"amount": b.Amount.String()})),
		})
	}
}

// Step 2.
func (c *calculation) allowances() {
	for _, a := range c.in.Allowances {
		c.add(PayslipLine{
			LineType:        LineAllowance,
			Code:            a.Code,
			Label:           a.Label,
			Amount:          c.round(a.Amount),
			Taxable:         a.Taxable,
			SocialEligible:  a.SocialEligible,
			PensionEligible: a.PensionEligible,
			Trace:           traceOf(tax.FormulaTrace("declared allowance", "", map[string]string{"amount": a.Amount.String()})),
		})
	}
}

// Step 3.
func (c *calculation) gross() {
	c.slip.GrossPay = c.sum(func(l PayslipLine) bool {
		return l.LineType == LineEarning || l.LineType == LineAllowance
	})
	c.pensionable = c.sum(func(l PayslipLine) bool {
		return (l.LineType == LineEarning || l.LineType == LineAllowance) && l.PensionEligible
	})
}

// Step 4: employee pension first, then declared pre-tax deductions.
func (c *calculation) preTaxDeductions() {
	if c.snap.PensionEmployeePct.IsPositive() && c.pensionable.IsPositive() {
		rate := c.snap.PensionEmployeePct.Div(hundred)
		c.add(PayslipLine{
			LineType:       LineDeduction,
			Classification: ClassPension,
			Code:           "PENSION_EE",
			Label:          "Pension (employee)",
			Rate:           &rate,
			Amount:         c.round(c.pensionable.Mul(rate)),
			PreTax:         true,
			Trace: traceOf(tax.NewFlatTrace("pensionable_earnings * employee_rate", "", tax.FlatTrace{
				Base:   c.pensionable,
				Rate:   rate,
				Amount: c.pensionable.Mul(rate),
			})),
		})
	}

	for _, d := range c.in.Deductions {
		if !d.PreTax {
			continue
		}
		c.add(PayslipLine{
			LineType: LineDeduction,
			Code:     d.Code,
			Label:    d.Label,
			Amount:   c.round(d.Amount),
			PreTax:   true,
			Trace:    traceOf(tax.FormulaTrace("declared pre-tax deduction", "", map[string]string{"amount": d.Amount.String()})),
		})
	}

	c.slip.TotalPreTax = c.sum(func(l PayslipLine) bool { return l.LineType == LineDeduction && l.PreTax })
}

// Step 5.
func (c *calculation) taxableBase() {
	taxable := c.sum(func(l PayslipLine) bool {
		return (l.LineType == LineEarning || l.LineType == LineAllowance) && l.Taxable
	})
	base := taxable.Sub(c.slip.TotalPreTax)
	if base.IsNegative() {
		c.warn(WarnTaxableBaseClamped, "pre-tax deductions exceed taxable earnings, taxable base set to zero")
		base = decimal.Zero
	}
	c.slip.TaxableBase = base
}

// Step 6. Step 8 reuses the employer side of the same result.
func (c *calculation) taxes(dispatcher *tax.Dispatcher) error {
	ctx := c.snap.TaxContext()
	ctx.Currency = c.currency

	res, err := dispatcher.Calculate(c.slip.Country, c.slip.TaxableBase, c.freq, ctx)
	if err != nil {
		return err
	}
	c.taxResult = res
	c.slip.Country = dispatcher.Canonical(c.slip.Country)
	c.slip.TaxJurisdiction = res.Jurisdiction
	c.slip.UsedFallback = res.UsedFallback

	if res.UsedFallback {
		c.warn(WarnTaxFallbackUsed, "no tax module for country "+c.slip.Country+", generic flat rates applied")
	}
	for _, w := range res.Warnings {
		c.warn(w, "tax module warning")
	}

	for _, l := range res.Lines {
		c.add(taxLine(LineTax, l))
	}
	c.slip.TotalTax = res.TotalEmployee
	return nil
}

// Step 7.
func (c *calculation) postTaxDeductions() {
	for _, d := range c.in.Deductions {
		if d.PreTax {
			continue
		}
		c.add(PayslipLine{
			LineType: LineDeduction,
			Code:     d.Code,
			Label:    d.Label,
			Amount:   c.round(d.Amount),
			Trace:    traceOf(tax.FormulaTrace("declared post-tax deduction", "", map[string]string{"amount": d.Amount.String()})),
		})
	}
	c.slip.TotalPostTax = c.sum(func(l PayslipLine) bool { return l.LineType == LineDeduction && !l.PreTax })
}

// Step 8.
func (c *calculation) employerContributions() {
	for _, l := range c.taxResult.EmployerLines {
		c.add(taxLine(LineEmployer, l))
	}

	if c.snap.PensionEmployerPct.IsPositive() && c.pensionable.IsPositive() {
		rate := c.snap.PensionEmployerPct.Div(hundred)
		c.add(PayslipLine{
			LineType:       LineEmployer,
			Classification: ClassPension,
			Code:           "PENSION_ER",
			Label:          "Pension (employer)",
			Rate:           &rate,
			Amount:         c.round(c.pensionable.Mul(rate)),
			Trace: traceOf(tax.NewFlatTrace("pensionable_earnings * employer_rate", "", tax.FlatTrace{
				Base:   c.pensionable,
				Rate:   rate,
				Amount: c.pensionable.Mul(rate),
			})),
		})
	}

	c.slip.TotalEmployer = c.sum(func(l PayslipLine) bool { return l.LineType == LineEmployer })
}

// Step 9.
func (c *calculation) netPay() {
	s := c.slip
	s.TotalDeductions = s.TotalPreTax.Add(s.TotalTax).Add(s.TotalPostTax)
	s.NetPay = s.GrossPay.Sub(s.TotalPreTax).Sub(s.TotalTax).Sub(s.TotalPostTax)
}

// Step 10: negative net is kept and flagged for publish gating.
func (c *calculation) negativeNetGuard() {
	if c.slip.NetPay.IsNegative() {
		c.slip.RequiresOverride = true
		c.warn(WarnNegativeNetPay, "net pay is negative, publishing requires an override")
	}
}

// Step 11.
func (c *calculation) yearToDate() {
	prior := YTD{}
	if c.in.PriorYTD != nil {
		prior = *c.in.PriorYTD
	}
	ytd := prior.Add(YTD{
		Gross:   c.slip.GrossPay,
		Tax:     c.slip.TotalTax,
		PreTax:  c.slip.TotalPreTax,
		PostTax: c.slip.TotalPostTax,
	})
	c.slip.YTDGross = ytd.Gross
	c.slip.YTDTax = ytd.Tax
	c.slip.YTDPreTax = ytd.PreTax
	c.slip.YTDPostTax = ytd.PostTax
	c.slip.Input = datatypesInput(c.in)
}

func taxLine(lineType string, l tax.Line) PayslipLine {
	base := l.TaxableBase
	return PayslipLine{
		LineType:       lineType,
		Classification: string(l.Kind),
		Code:           l.Code,
		Label:          l.Label,
		Rate:           l.Rate,
		Amount:         l.Amount,
		Jurisdiction:   l.Jurisdiction,
		Basis:          string(l.Basis),
		TaxableBase:    &base,
		Trace:          traceOf(l.Trace),
	}
}

func sortedLines(lines []PayslipLine) []PayslipLine {
	out := make([]PayslipLine, len(lines))
	copy(out, lines)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
