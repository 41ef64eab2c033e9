package bankfile

import (
	"encoding/xml"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	bankfileerrors "go-payroll/internal/bankfile/errors"
	"go-payroll/internal/shared/money"
)

const (
	painNamespace = "urn:iso:std:iso:20022:tech:xsd:pain.001.001.03"
	sepaMaxMinor  = 99_999_999_999
)

var (
	ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
	bicPattern  = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
)

// SEPAGenerator writes ISO 20022 pain.001.001.03 credit transfers with the
// SALA category purpose.
type SEPAGenerator struct{}

func (SEPAGenerator) Format() string { return FormatSEPA }

type painDocument struct {
	XMLName xml.Name     `xml:"Document"`
	Xmlns   string       `xml:"xmlns,attr"`
	Init    painInitiate `xml:"CstmrCdtTrfInitn"`
}

type painInitiate struct {
	GrpHdr painGroupHeader `xml:"GrpHdr"`
	PmtInf painPaymentInfo `xml:"PmtInf"`
}

type painGroupHeader struct {
	MsgID    string    `xml:"MsgId"`
	CreDtTm  string    `xml:"CreDtTm"`
	NbOfTxs  int       `xml:"NbOfTxs"`
	CtrlSum  string    `xml:"CtrlSum"`
	InitgPty painParty `xml:"InitgPty"`
}

type painParty struct {
	Nm string `xml:"Nm"`
}

type painAccount struct {
	IBAN string `xml:"Id>IBAN"`
}

type painAgent struct {
	BIC   string `xml:"FinInstnId>BIC,omitempty"`
	Other string `xml:"FinInstnId>Othr>Id,omitempty"`
}

func agent(bic string) painAgent {
	if bic == "" {
		return painAgent{Other: "NOTPROVIDED"}
	}
	return painAgent{BIC: strings.ToUpper(bic)}
}

type painPaymentInfo struct {
	PmtInfID    string          `xml:"PmtInfId"`
	PmtMtd      string          `xml:"PmtMtd"`
	BtchBookg   bool            `xml:"BtchBookg"`
	NbOfTxs     int             `xml:"NbOfTxs"`
	CtrlSum     string          `xml:"CtrlSum"`
	SvcLvl      string          `xml:"PmtTpInf>SvcLvl>Cd"`
	CtgyPurp    string          `xml:"PmtTpInf>CtgyPurp>Cd"`
	ReqdExctnDt string          `xml:"ReqdExctnDt"`
	Dbtr        painParty       `xml:"Dbtr"`
	DbtrAcct    painAccount     `xml:"DbtrAcct"`
	DbtrAgt     painAgent       `xml:"DbtrAgt"`
	ChrgBr      string          `xml:"ChrgBr"`
	Txs         []painCreditTxn `xml:"CdtTrfTxInf"`
}

type painCreditTxn struct {
	EndToEndID string      `xml:"PmtId>EndToEndId"`
	Amount     painAmount  `xml:"Amt>InstdAmt"`
	CdtrAgt    *painAgent  `xml:"CdtrAgt,omitempty"`
	Cdtr       painParty   `xml:"Cdtr"`
	CdtrAcct   painAccount `xml:"CdtrAcct"`
	Ustrd      string      `xml:"RmtInf>Ustrd,omitempty"`
}

type painAmount struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

func (g SEPAGenerator) Generate(payments []Payment, opts Options) (File, error) {
	const currency = "EUR"
	debtorIBAN := normalizeIBAN(opts.DebtorIBAN)
	if !validIBAN(debtorIBAN) || strings.TrimSpace(opts.CompanyName) == "" {
		return File{}, bankfileerrors.ErrMissingOriginator
	}

	accepted, rejected := partition(payments, currency,
		required("name", func(p Payment) string { return p.Name }),
		func(p Payment) (string, string) {
			if !validIBAN(normalizeIBAN(p.IBAN)) {
				return "iban", "a valid IBAN is required for SEPA credit transfer"
			}
			return "", ""
		},
		func(p Payment) (string, string) {
			if p.BIC != "" && !bicPattern.MatchString(strings.ToUpper(p.BIC)) {
				return "bic", "BIC is malformed"
			}
			return "", ""
		},
		// InstdAmt tops out at 999999999.99 EUR
		maxMinor(currency, sepaMaxMinor, "SEPA instructed"),
	)

	sum, _ := totals(accepted, currency)
	ctrl := money.Format(sum, currency)
	msgID := fmt.Sprintf("PAYROLL-%06d", opts.Sequence)
	if opts.Reference != "" {
		msgID = fmt.Sprintf("%s-%06d", Sanitize(opts.Reference), opts.Sequence)
	}

	doc := painDocument{
		Xmlns: painNamespace,
		Init: painInitiate{
			GrpHdr: painGroupHeader{
				MsgID:    truncate(msgID, 35),
				CreDtTm:  opts.CreatedAt.UTC().Format("2006-01-02T15:04:05"),
				NbOfTxs:  len(accepted),
				CtrlSum:  ctrl,
				InitgPty: painParty{Nm: truncate(Sanitize(opts.CompanyName), 70)},
			},
			PmtInf: painPaymentInfo{
				PmtInfID:    truncate(msgID+"-1", 35),
				PmtMtd:      "TRF",
				BtchBookg:   true,
				NbOfTxs:     len(accepted),
				CtrlSum:     ctrl,
				SvcLvl:      "SEPA",
				CtgyPurp:    "SALA",
				ReqdExctnDt: opts.ValueDate.Format("2006-01-02"),
				Dbtr:        painParty{Nm: truncate(Sanitize(opts.CompanyName), 70)},
				DbtrAcct:    painAccount{IBAN: debtorIBAN},
				DbtrAgt:     agent(opts.DebtorBIC),
				ChrgBr:      "SLEV",
			},
		},
	}

	for i, p := range accepted {
		tx := painCreditTxn{
			EndToEndID: truncate(endToEndID(p, i), 35),
			Amount:     painAmount{Ccy: currency, Value: money.Format(p.Amount, currency)},
			Cdtr:       painParty{Nm: truncate(Sanitize(p.Name), 70)},
			CdtrAcct:   painAccount{IBAN: normalizeIBAN(p.IBAN)},
			Ustrd:      truncate(Sanitize(p.Reference), 140),
		}
		if p.BIC != "" {
			tx.CdtrAgt = &painAgent{BIC: strings.ToUpper(p.BIC)}
		}
		doc.Init.PmtInf.Txs = append(doc.Init.PmtInf.Txs, tx)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return File{}, err
	}
	content := append([]byte(xml.Header), body...)
	content = append(content, '\n')

	return finish(File{
		Format:      FormatSEPA,
		Filename:    fmt.Sprintf("SEPA_%s_%06d.xml", opts.ValueDate.Format("20060102"), opts.Sequence),
		ContentType: "application/xml",
		Content:     content,
		Rejected:    rejected,
	}, accepted, currency)
}

func endToEndID(p Payment, i int) string {
	if p.PaymentID != "" {
		return strings.ReplaceAll(p.PaymentID, "-", "")
	}
	return fmt.Sprintf("E2E%06d", i+1)
}

func normalizeIBAN(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// validIBAN checks shape and the ISO 7064 mod-97 check digits.
func validIBAN(iban string) bool {
	if !ibanPattern.MatchString(iban) {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			digits.WriteString(fmt.Sprintf("%d", r-'A'+10))
		} else {
			digits.WriteRune(r)
		}
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
