package ledger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go-payroll/internal/ledger"
	"go-payroll/internal/payslip"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func sampleEntry() ledger.JournalEntry {
	e := ledger.Build(uuid.New(), uuid.New(), []payslip.Payslip{gbpSlip()}, "May 2024")
	e.Number = "JE-000042"
	return e
}

func TestExporters_UseStoredAmounts(t *testing.T) {
	entry := sampleEntry()
	// amounts are reshaped, never derived: a doctored line must come out as is
	entry.Lines[4].Debit = dec("1234.56")

	for _, format := range ledger.ExportFormats() {
		t.Run(format, func(t *testing.T) {
			exporter, err := ledger.ExporterFor(format)
			assert.NoError(t, err)
			out, err := exporter.Export(entry)
			assert.NoError(t, err)
			assert.True(t, strings.HasSuffix(out.Filename, "."+format))

			if format == ledger.ExportXLSX {
				f, err := excelize.OpenReader(bytes.NewReader(out.Content))
				assert.NoError(t, err)
				v, err := f.GetCellValue("Journal", "F6")
				assert.NoError(t, err)
				assert.Equal(t, "1,234.56", v)
				return
			}
			assert.Contains(t, string(out.Content), "1234.56")
		})
	}
}

func TestCSVExporter(t *testing.T) {
	out, err := ledger.CSVExporter{}.Export(sampleEntry())
	assert.NoError(t, err)

	rows := strings.Split(strings.TrimSpace(string(out.Content)), "\n")
	assert.Equal(t, "entry_number,entry_date,account_code,account_name,currency,debit,credit,description", rows[0])
	assert.Equal(t, "JE-000042,2024-05-31,2200,Tax payable,GBP,0.00,700.00,Tax payable - May 2024", rows[1])
	assert.Len(t, rows, 10)
}

func TestXeroExporter(t *testing.T) {
	out, err := ledger.XeroExporter{}.Export(sampleEntry())
	assert.NoError(t, err)

	var payload struct {
		ManualJournals []struct {
			Narration    string
			Reference    string
			JournalLines []struct {
				LineAmount  json.Number
				AccountCode string
			}
		}
	}
	decoder := json.NewDecoder(bytes.NewReader(out.Content))
	decoder.UseNumber()
	assert.NoError(t, decoder.Decode(&payload))

	assert.Len(t, payload.ManualJournals, 1)
	j := payload.ManualJournals[0]
	assert.Equal(t, "May 2024", j.Narration)
	assert.Equal(t, "JE-000042", j.Reference)
	assert.Equal(t, "2200", j.JournalLines[0].AccountCode)
	assert.Equal(t, json.Number("-700.00"), j.JournalLines[0].LineAmount)
	assert.Equal(t, json.Number("3000.00"), j.JournalLines[4].LineAmount)
}

func TestXMLExporter(t *testing.T) {
	out, err := ledger.XMLExporter{}.Export(sampleEntry())
	assert.NoError(t, err)

	body := string(out.Content)
	assert.Contains(t, body, `<JournalEntry number="JE-000042" date="2024-05-31"`)
	assert.Contains(t, body, "<AccountCode>2300</AccountCode>")
	assert.Contains(t, body, "<Credit>2650.00</Credit>")
}
