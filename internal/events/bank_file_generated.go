package events

import "time"

const BankFileGeneratedTopic = "hr.payroll.bankfile.generated.v1"

type BankFileGeneratedEvent struct {
	EventType     string    `json:"event_type"`
	BankFileID    string    `json:"bank_file_id"`
	PayrollRunID  string    `json:"payroll_run_id"`
	CompanyID     string    `json:"company_id"`
	Format        string    `json:"format"`
	Filename      string    `json:"filename"`
	StorageURI    string    `json:"storage_uri"`
	PaymentCount  int       `json:"payment_count"`
	RejectedCount int       `json:"rejected_count"`
	ControlSum    string    `json:"control_sum"`
	OccurredAt    time.Time `json:"occurred_at"`
}
