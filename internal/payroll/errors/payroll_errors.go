package payrollerrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

var (
	ErrInvalidRunID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payroll run id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"period_start must be before or equal period_end",
		http.StatusBadRequest,
	)
	ErrInvalidStatusFilter = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payroll run status filter",
		http.StatusBadRequest,
	)
	ErrRunNotFound = apperror.New(
		apperror.CodeNotFound,
		"payroll run not found",
		http.StatusNotFound,
	)
	ErrRunExists = apperror.New(
		apperror.CodeConflict,
		"an open payroll run already covers this period",
		http.StatusConflict,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid payroll run status transition",
		http.StatusBadRequest,
	)
	ErrRunBusy = apperror.New(
		apperror.CodeConflict,
		"payroll run is being processed",
		http.StatusConflict,
	)
	ErrNoPayslips = apperror.New(
		apperror.CodeInvalidState,
		"payroll run has no payslips",
		http.StatusBadRequest,
	)
	ErrOverridePending = apperror.New(
		apperror.CodeOverrideRequired,
		"payslips with negative net pay need an override before approval",
		http.StatusUnprocessableEntity,
	)
	ErrNotReconciled = apperror.New(
		apperror.CodeInvalidState,
		"journal entry does not reconcile with the run's payslips",
		http.StatusUnprocessableEntity,
	)
	ErrCancelReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"cancel reason is required",
		http.StatusBadRequest,
	)
)
