package ledger

type LineResponse struct {
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Currency    string `json:"currency"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description"`
}

type BalanceResponse struct {
	Currency   string `json:"currency"`
	Debit      string `json:"debit"`
	Credit     string `json:"credit"`
	Difference string `json:"difference"`
	Balanced   bool   `json:"balanced"`
}

type EntryResponse struct {
	ID           string            `json:"id"`
	PayrollRunID string            `json:"payroll_run_id"`
	Number       string            `json:"number"`
	EntryDate    string            `json:"entry_date"`
	Narration    string            `json:"narration"`
	PayslipCount int               `json:"payslip_count"`
	Lines        []LineResponse    `json:"lines"`
	Balances     []BalanceResponse `json:"balances"`
}

type Mismatch struct {
	AccountCode string `json:"account_code"`
	Currency    string `json:"currency"`
	Journal     string `json:"journal"`
	Payslips    string `json:"payslips"`
}

// ReconcileReport compares a stored journal entry with the run's current
// payslips. Reconciled is false on any imbalance, drift or missing entry.
type ReconcileReport struct {
	PayrollRunID string            `json:"payroll_run_id"`
	EntryNumber  string            `json:"entry_number,omitempty"`
	Reconciled   bool              `json:"reconciled"`
	Balanced     bool              `json:"balanced"`
	Balances     []BalanceResponse `json:"balances"`
	Mismatches   []Mismatch        `json:"mismatches"`
	Issues       []string          `json:"issues"`
}

func ToEntryResponse(e JournalEntry) EntryResponse {
	resp := EntryResponse{
		ID:           e.ID.String(),
		PayrollRunID: e.PayrollRunID.String(),
		Number:       e.Number,
		EntryDate:    e.EntryDate.Format(entryDateLayout),
		Narration:    e.Narration,
		PayslipCount: e.PayslipCount,
		Lines:        make([]LineResponse, 0, len(e.Lines)),
		Balances:     toBalanceResponses(e.Balances()),
	}
	for _, l := range e.Lines {
		resp.Lines = append(resp.Lines, LineResponse{
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Currency:    l.Currency,
			Debit:       l.Debit.StringFixed(2),
			Credit:      l.Credit.StringFixed(2),
			Description: l.Description,
		})
	}
	return resp
}

func toBalanceResponses(bs []Balance) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, BalanceResponse{
			Currency:   b.Currency,
			Debit:      b.Debit.StringFixed(2),
			Credit:     b.Credit.StringFixed(2),
			Difference: b.Difference.StringFixed(2),
			Balanced:   b.Balanced,
		})
	}
	return out
}
