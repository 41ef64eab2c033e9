package tax

import (
	"github.com/shopspring/decimal"

	taxerrors "go-payroll/internal/tax/errors"
)

type TraceKind string

const (
	TraceFormula TraceKind = "formula"
	TraceBanded  TraceKind = "banded"
	TraceFlat    TraceKind = "flat"
	TraceCapped  TraceKind = "capped"
)

// Trace records enough of a computation to replay it by hand. Exactly one
// of the shape pointers is set, matching Kind.
type Trace struct {
	Kind         TraceKind         `json:"kind"`
	Formula      string            `json:"formula"`
	TableVersion string            `json:"table_version,omitempty"`
	Inputs       map[string]string `json:"inputs,omitempty"`

	Banded *BandedTrace `json:"banded,omitempty"`
	Flat   *FlatTrace   `json:"flat,omitempty"`
	Capped *CappedTrace `json:"capped,omitempty"`
}

type BandedTrace struct {
	AnnualBase decimal.Decimal `json:"annual_base"`
	Periods    int64           `json:"periods"`
	Slices     []BandSlice     `json:"slices"`
	AnnualTax  decimal.Decimal `json:"annual_tax"`
}

type FlatTrace struct {
	Base   decimal.Decimal `json:"base"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

type CappedTrace struct {
	AnnualBase  decimal.Decimal `json:"annual_base"`
	AnnualCap   decimal.Decimal `json:"annual_cap"`
	Threshold   decimal.Decimal `json:"threshold"`
	Rate        decimal.Decimal `json:"rate"`
	Periods     int64           `json:"periods"`
	AnnualValue decimal.Decimal `json:"annual_value"`
}

func FormulaTrace(formula, version string, inputs map[string]string) Trace {
	return Trace{Kind: TraceFormula, Formula: formula, TableVersion: version, Inputs: inputs}
}

func NewBandedTrace(formula, version string, b BandedTrace) Trace {
	return Trace{Kind: TraceBanded, Formula: formula, TableVersion: version, Banded: &b}
}

func NewFlatTrace(formula, version string, f FlatTrace) Trace {
	return Trace{Kind: TraceFlat, Formula: formula, TableVersion: version, Flat: &f}
}

func NewCappedTrace(formula, version string, c CappedTrace) Trace {
	return Trace{Kind: TraceCapped, Formula: formula, TableVersion: version, Capped: &c}
}

// Validate rejects traces whose payload does not match their kind.
func (t Trace) Validate() error {
	if t.Formula == "" {
		return taxerrors.ErrInvalidTrace
	}

	set := 0
	for _, p := range []bool{t.Banded != nil, t.Flat != nil, t.Capped != nil} {
		if p {
			set++
		}
	}

	switch t.Kind {
	case TraceFormula:
		if set != 0 {
			return taxerrors.ErrInvalidTrace
		}
	case TraceBanded:
		if set != 1 || t.Banded == nil {
			return taxerrors.ErrInvalidTrace
		}
	case TraceFlat:
		if set != 1 || t.Flat == nil {
			return taxerrors.ErrInvalidTrace
		}
	case TraceCapped:
		if set != 1 || t.Capped == nil {
			return taxerrors.ErrInvalidTrace
		}
	default:
		return taxerrors.ErrInvalidTrace
	}
	return nil
}
