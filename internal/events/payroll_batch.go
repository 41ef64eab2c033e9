package events

import (
	"encoding/json"
	"time"
)

const (
	PayrollBatchRequestedTopic = "hr.payroll.batch.requested.v1"
	PayrollBatchCompletedTopic = "hr.payroll.batch.completed.v1"
)

type PayrollBatchRequestedEvent struct {
	EventType    string   `json:"event_type"`
	CompanyID    string   `json:"company_id"`
	PayrollRunID string   `json:"payroll_run_id,omitempty"`
	EmployeeIDs  []string `json:"employee_ids"`
	PeriodStart  string   `json:"period_start"`
	PeriodEnd    string   `json:"period_end"`
	PayDate      string   `json:"pay_date"`
	// Inputs maps employee id to variable pay, in the batch request shape.
	Inputs      json.RawMessage `json:"inputs,omitempty"`
	RequestedBy string          `json:"requested_by"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type PayrollBatchCompletedEvent struct {
	EventType    string    `json:"event_type"`
	BatchID      string    `json:"batch_id"`
	CompanyID    string    `json:"company_id"`
	Status       string    `json:"status"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	TotalAmount  string    `json:"total_amount"`
	PayslipIDs   []string  `json:"payslip_ids"`
	OccurredAt   time.Time `json:"occurred_at"`
}
