package payroll

import (
	"go-payroll/internal/batch"
	"go-payroll/internal/shared/money"
)

type CreateRunRequest struct {
	Name        string `json:"name"`
	PeriodStart string `json:"period_start" binding:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" binding:"required,datetime=2006-01-02"`
	PayDate     string `json:"pay_date" binding:"omitempty,datetime=2006-01-02"`
}

type GetRunsFilterRequest struct {
	Status string `form:"status"`
	From   string `form:"from"`
	To     string `form:"to"`
}

// ProcessRequest names the employees to calculate into the run. The period
// and pay date come from the run itself.
type ProcessRequest struct {
	EmployeeIDs []string                       `json:"employee_ids" binding:"required,min=1"`
	Inputs      map[string]batch.EmployeeInput `json:"inputs"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type TotalsResponse struct {
	Gross        string `json:"gross"`
	Net          string `json:"net"`
	Tax          string `json:"tax"`
	Employer     string `json:"employer"`
	Deductions   string `json:"deductions"`
	EmployerCost string `json:"employer_cost"`
}

type BreakdownItemResponse struct {
	Key          string `json:"key"`
	Currency     string `json:"currency"`
	PayslipCount int    `json:"payslip_count"`
	TotalsResponse
}

type IssueResponse struct {
	Code       string `json:"code"`
	EmployeeID string `json:"employee_id,omitempty"`
	PayslipID  string `json:"payslip_id,omitempty"`
	BatchID    string `json:"batch_id,omitempty"`
	Message    string `json:"message"`
	At         string `json:"at"`
}

type RunResponse struct {
	ID                 string          `json:"id"`
	CompanyID          string          `json:"company_id"`
	Name               string          `json:"name"`
	PeriodStart        string          `json:"period_start"`
	PeriodEnd          string          `json:"period_end"`
	PayDate            string          `json:"pay_date"`
	Status             string          `json:"status"`
	PayslipCount       int             `json:"payslip_count"`
	Currency           string          `json:"currency,omitempty"`
	Totals             *TotalsResponse `json:"totals,omitempty"`
	Errors             []IssueResponse `json:"errors"`
	Warnings           []IssueResponse `json:"warnings"`
	LastBatchID        *string         `json:"last_batch_id,omitempty"`
	BankFileCount      int             `json:"bank_file_count"`
	JournalEntryNumber *string         `json:"journal_entry_number,omitempty"`
	CreatedBy          string          `json:"created_by"`
	ApprovedBy         *string         `json:"approved_by,omitempty"`
	ApprovedAt         *string         `json:"approved_at,omitempty"`
	PaidAt             *string         `json:"paid_at,omitempty"`
	CompletedAt        *string         `json:"completed_at,omitempty"`
	CancelledAt        *string         `json:"cancelled_at,omitempty"`
	CancelReason       *string         `json:"cancel_reason,omitempty"`
	CreatedAt          string          `json:"created_at"`
}

type BreakdownResponse struct {
	PayrollRunID string                  `json:"payroll_run_id"`
	Status       string                  `json:"status"`
	PayslipCount int                     `json:"payslip_count"`
	ByCurrency   []BreakdownItemResponse `json:"by_currency"`
	ByCountry    []BreakdownItemResponse `json:"by_country"`
	ByDepartment []BreakdownItemResponse `json:"by_department"`
}

type ProcessResponse struct {
	Run   RunResponse  `json:"run"`
	Batch batch.Result `json:"batch"`
}

type ApproveResponse struct {
	Run            RunResponse `json:"run"`
	IssuedPayslips int         `json:"issued_payslips"`
}

func toTotalsResponse(t Totals, currency string) TotalsResponse {
	return TotalsResponse{
		Gross:        money.Format(t.Gross, currency),
		Net:          money.Format(t.Net, currency),
		Tax:          money.Format(t.Tax, currency),
		Employer:     money.Format(t.Employer, currency),
		Deductions:   money.Format(t.Deductions, currency),
		EmployerCost: money.Format(t.EmployerCost(), currency),
	}
}

func toIssueResponses(issues []Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for _, i := range issues {
		out = append(out, IssueResponse{
			Code:       i.Code,
			EmployeeID: i.EmployeeID,
			PayslipID:  i.PayslipID,
			BatchID:    i.BatchID,
			Message:    i.Message,
			At:         i.At.UTC().Format(timestampLayout),
		})
	}
	return out
}

func toBreakdownItems(bs []Breakdown, dimension string) []BreakdownItemResponse {
	filtered := ByDimension(bs, dimension)
	out := make([]BreakdownItemResponse, 0, len(filtered))
	for _, b := range filtered {
		out = append(out, BreakdownItemResponse{
			Key:            b.Key,
			Currency:       b.Currency,
			PayslipCount:   b.PayslipCount,
			TotalsResponse: toTotalsResponse(b.Totals, b.Currency),
		})
	}
	return out
}

func MapToResponse(r *PayrollRun) RunResponse {
	resp := RunResponse{
		ID:                 r.ID.String(),
		CompanyID:          r.CompanyID.String(),
		Name:               r.Name,
		PeriodStart:        r.PeriodStart.Format(dateLayout),
		PeriodEnd:          r.PeriodEnd.Format(dateLayout),
		PayDate:            r.PayDate.Format(dateLayout),
		Status:             r.Status,
		PayslipCount:       r.PayslipCount,
		Currency:           r.Currency,
		Errors:             toIssueResponses(r.Errors),
		Warnings:           toIssueResponses(r.Warnings),
		BankFileCount:      r.BankFileCount,
		JournalEntryNumber: r.JournalEntryNumber,
		CreatedBy:          r.CreatedBy.String(),
		CancelReason:       r.CancelReason,
		CreatedAt:          r.CreatedAt.UTC().Format(timestampLayout),
	}
	if r.Currency != "" {
		t := toTotalsResponse(r.Totals, r.Currency)
		resp.Totals = &t
	}
	if r.LastBatchID != nil {
		v := r.LastBatchID.String()
		resp.LastBatchID = &v
	}
	if r.ApprovedBy != nil {
		v := r.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	resp.ApprovedAt = formatTime(r.ApprovedAt)
	resp.PaidAt = formatTime(r.PaidAt)
	resp.CompletedAt = formatTime(r.CompletedAt)
	resp.CancelledAt = formatTime(r.CancelledAt)
	return resp
}

func toBreakdownResponse(r *PayrollRun) BreakdownResponse {
	return BreakdownResponse{
		PayrollRunID: r.ID.String(),
		Status:       r.Status,
		PayslipCount: r.PayslipCount,
		ByCurrency:   toBreakdownItems(r.Breakdowns, ByCurrency),
		ByCountry:    toBreakdownItems(r.Breakdowns, ByCountry),
		ByDepartment: toBreakdownItems(r.Breakdowns, ByDepartment),
	}
}
