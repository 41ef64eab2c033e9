package events

import "time"

const PayslipIssuedTopic = "hr.payroll.payslip.issued.v1"

type PayslipIssuedEvent struct {
	EventType   string    `json:"event_type"`
	PayslipID   string    `json:"payslip_id"`
	Version     int       `json:"version"`
	CompanyID   string    `json:"company_id"`
	EmployeeID  string    `json:"employee_id"`
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
	NetPay      string    `json:"net_pay"`
	Currency    string    `json:"currency"`
	Overridden  bool      `json:"overridden"`
	IssuedBy    string    `json:"issued_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}
