package ledger

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	ledgererrors "go-payroll/internal/ledger/errors"
	"go-payroll/internal/shared/money"
)

const (
	ExportCSV  = "csv"
	ExportXML  = "xml"
	ExportJSON = "json"
	ExportXLSX = "xlsx"
)

const entryDateLayout = "2006-01-02"

// CSVColumns is the fixed header of the CSV export.
var CSVColumns = []string{
	"entry_number", "entry_date", "account_code", "account_name",
	"currency", "debit", "credit", "description",
}

type Export struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Exporter reshapes a journal entry. Implementations format the stored
// amounts and never derive new ones.
type Exporter interface {
	Format() string
	Export(e JournalEntry) (Export, error)
}

var exporters = map[string]Exporter{
	ExportCSV:  CSVExporter{},
	ExportXML:  XMLExporter{},
	ExportJSON: XeroExporter{},
	ExportXLSX: XLSXExporter{},
}

func ExporterFor(format string) (Exporter, error) {
	e, ok := exporters[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, ledgererrors.ErrUnsupportedExport
	}
	return e, nil
}

func ExportFormats() []string {
	out := make([]string, 0, len(exporters))
	for f := range exporters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func filename(e JournalEntry, ext string) string {
	return fmt.Sprintf("journal_%s.%s", e.Number, ext)
}

type CSVExporter struct{}

func (CSVExporter) Format() string { return ExportCSV }

func (CSVExporter) Export(e JournalEntry) (Export, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVColumns); err != nil {
		return Export{}, err
	}
	for _, l := range e.Lines {
		row := []string{
			e.Number,
			e.EntryDate.Format(entryDateLayout),
			l.AccountCode,
			l.AccountName,
			l.Currency,
			money.Format(l.Debit, l.Currency),
			money.Format(l.Credit, l.Currency),
			l.Description,
		}
		if err := w.Write(row); err != nil {
			return Export{}, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Export{}, err
	}
	return Export{Filename: filename(e, "csv"), ContentType: "text/csv", Content: buf.Bytes()}, nil
}

type XMLExporter struct{}

func (XMLExporter) Format() string { return ExportXML }

type xmlJournal struct {
	XMLName   xml.Name  `xml:"JournalEntry"`
	Number    string    `xml:"number,attr"`
	Date      string    `xml:"date,attr"`
	RunID     string    `xml:"payrollRunId,attr"`
	Narration string    `xml:"Narration,omitempty"`
	Lines     []xmlLine `xml:"Lines>Line"`
}

type xmlLine struct {
	AccountCode string `xml:"AccountCode"`
	AccountName string `xml:"AccountName"`
	Currency    string `xml:"Currency"`
	Debit       string `xml:"Debit"`
	Credit      string `xml:"Credit"`
	Description string `xml:"Description,omitempty"`
}

func (XMLExporter) Export(e JournalEntry) (Export, error) {
	doc := xmlJournal{
		Number:    e.Number,
		Date:      e.EntryDate.Format(entryDateLayout),
		RunID:     e.PayrollRunID.String(),
		Narration: e.Narration,
	}
	for _, l := range e.Lines {
		doc.Lines = append(doc.Lines, xmlLine{
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Currency:    l.Currency,
			Debit:       money.Format(l.Debit, l.Currency),
			Credit:      money.Format(l.Credit, l.Currency),
			Description: l.Description,
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Export{}, err
	}
	content := append([]byte(xml.Header), body...)
	return Export{Filename: filename(e, "xml"), ContentType: "application/xml", Content: append(content, '\n')}, nil
}

// XeroExporter writes the manual journal shape of the Xero accounting API:
// one signed LineAmount per line, debits positive.
type XeroExporter struct{}

func (XeroExporter) Format() string { return ExportJSON }

type xeroPayload struct {
	ManualJournals []xeroJournal `json:"ManualJournals"`
}

type xeroJournal struct {
	Narration       string     `json:"Narration"`
	Date            string     `json:"Date"`
	Status          string     `json:"Status"`
	LineAmountTypes string     `json:"LineAmountTypes"`
	Reference       string     `json:"Reference"`
	JournalLines    []xeroLine `json:"JournalLines"`
}

type xeroLine struct {
	LineAmount  json.RawMessage `json:"LineAmount"`
	AccountCode string          `json:"AccountCode"`
	Description string          `json:"Description"`
	Currency    string          `json:"CurrencyCode"`
}

func (XeroExporter) Export(e JournalEntry) (Export, error) {
	narration := e.Narration
	if narration == "" {
		narration = "Payroll " + e.Number
	}
	j := xeroJournal{
		Narration:       narration,
		Date:            e.EntryDate.Format(entryDateLayout),
		Status:          "DRAFT",
		LineAmountTypes: "NoTax",
		Reference:       e.Number,
		JournalLines:    make([]xeroLine, 0, len(e.Lines)),
	}
	for _, l := range e.Lines {
		amount := l.Debit
		if amount.IsZero() {
			amount = l.Credit.Neg()
		}
		j.JournalLines = append(j.JournalLines, xeroLine{
			LineAmount:  json.RawMessage(money.Format(amount, l.Currency)),
			AccountCode: l.AccountCode,
			Description: l.Description,
			Currency:    l.Currency,
		})
	}

	body, err := json.MarshalIndent(xeroPayload{ManualJournals: []xeroJournal{j}}, "", "  ")
	if err != nil {
		return Export{}, err
	}
	return Export{Filename: filename(e, "json"), ContentType: "application/json", Content: body}, nil
}

type XLSXExporter struct{}

func (XLSXExporter) Format() string { return ExportXLSX }

const journalSheet = "Journal"

func (XLSXExporter) Export(e JournalEntry) (Export, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", journalSheet); err != nil {
		return Export{}, err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return Export{}, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return Export{}, err
	}

	for i, h := range CSVColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(journalSheet, cell, h)
	}
	f.SetCellStyle(journalSheet, "A1", "H1", headerStyle)

	for i, l := range e.Lines {
		row := i + 2
		values := []any{
			e.Number,
			e.EntryDate.Format(entryDateLayout),
			l.AccountCode,
			l.AccountName,
			l.Currency,
			cellAmount(l.Debit, l.Currency),
			cellAmount(l.Credit, l.Currency),
			l.Description,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(journalSheet, cell, v)
		}
	}
	if n := len(e.Lines); n > 0 {
		last := n + 1
		f.SetCellStyle(journalSheet, "F2", fmt.Sprintf("G%d", last), amountStyle)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Export{}, err
	}
	return Export{
		Filename:    filename(e, "xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     buf.Bytes(),
	}, nil
}

// cellAmount hands excelize a float rounded to the currency's minor unit;
// spreadsheets have no decimal type.
func cellAmount(d decimal.Decimal, currency string) float64 {
	return money.Round(d, currency).InexactFloat64()
}
