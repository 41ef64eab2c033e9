package payslip

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"

	"go-payroll/internal/shared/money"
)

const signatureScheme = "v1"

const (
	ReasonSignatureValid    = "signature valid"
	ReasonContentTampered   = "payslip contents do not match the stored signature"
	ReasonSignatureMismatch = "signature does not match this payslip"
	ReasonPayslipVoid       = "payslip has been voided or superseded"
)

// Signer produces a keyed BLAKE2b-256 MAC over a payslip's identity,
// period, totals and line items.
type Signer struct {
	key []byte
}

func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, errors.New("payslip signing key is required")
	}
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Signer{key: key}, nil
}

func (s *Signer) Sign(p *Payslip) string {
	h, _ := blake2b.New256(s.key)
	h.Write([]byte(canonical(p)))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the MAC from the stored fields and compares it with
// both the stored signature and the caller's token.
func (s *Signer) Verify(p *Payslip, token string) (bool, string) {
	expected := s.Sign(p)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(p.Signature)) != 1 {
		return false, ReasonContentTampered
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(token)))) != 1 {
		return false, ReasonSignatureMismatch
	}
	if p.Status == StatusVoid {
		return false, ReasonPayslipVoid
	}
	return true, ReasonSignatureValid
}

func canonical(p *Payslip) string {
	cur := p.Currency
	var b strings.Builder
	b.WriteString(signatureScheme)
	b.WriteString("\nemployee=" + p.EmployeeID.String())
	b.WriteString("\nperiod=" + p.PeriodStart.Format(dateLayout) + "/" + p.PeriodEnd.Format(dateLayout))
	b.WriteString("\ngross=" + money.Format(p.GrossPay, cur))
	b.WriteString("\nnet=" + money.Format(p.NetPay, cur))

	for _, l := range sortedLines(p.Lines) {
		switch l.LineType {
		case LineEarning, LineAllowance:
			b.WriteString("\nearning=" + l.LineType + "|" + l.Code + "|" + l.Quantity.StringFixed(4) + "|" + money.Format(l.Amount, cur))
		case LineTax:
			b.WriteString("\ntax=" + l.Jurisdiction + "|" + l.Code + "|" + l.Basis + "|" + money.Format(l.Amount, cur))
		}
	}
	return b.String()
}
