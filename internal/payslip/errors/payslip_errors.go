package payslipserrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

var (
	ErrInvalidPayslipID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payslip id",
		http.StatusBadRequest,
	)
	ErrInvalidInput = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payslip calculation input",
		http.StatusBadRequest,
	)
	ErrNegativeAmount = apperror.New(
		apperror.CodeInvalidInput,
		"hours and amounts cannot be negative",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"period_start must be before or equal period_end",
		http.StatusBadRequest,
	)
	ErrMissingCurrency = apperror.New(
		apperror.CodeInvalidInput,
		"employee currency is missing or not an ISO 4217 code",
		http.StatusBadRequest,
	)
	ErrPayslipNotFound = apperror.New(
		apperror.CodeNotFound,
		"payslip not found",
		http.StatusNotFound,
	)
	ErrPayslipExists = apperror.New(
		apperror.CodeConflict,
		"an active payslip already exists for this employee and period",
		http.StatusConflict,
	)
	ErrReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"regeneration reason is required",
		http.StatusBadRequest,
	)
	ErrPayslipVoid = apperror.New(
		apperror.CodeInvalidState,
		"payslip is void and cannot be changed",
		http.StatusBadRequest,
	)
	ErrConcurrentAmendment = apperror.New(
		apperror.CodeConflict,
		"payslip was amended concurrently, reload and retry",
		http.StatusConflict,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid payslip status transition",
		http.StatusBadRequest,
	)
	ErrOverrideRequired = apperror.New(
		apperror.CodeOverrideRequired,
		"payslip has negative net pay and needs an explicit override to publish",
		http.StatusUnprocessableEntity,
	)
	ErrTokenRequired = apperror.New(
		apperror.CodeInvalidInput,
		"signature token is required",
		http.StatusBadRequest,
	)
)
