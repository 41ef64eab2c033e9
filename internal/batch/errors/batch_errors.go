package batcherrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

var (
	ErrInvalidBatchID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid batch id",
		http.StatusBadRequest,
	)
	ErrEmptyEmployeeList = apperror.New(
		apperror.CodeInvalidInput,
		"at least one employee id is required",
		http.StatusBadRequest,
	)
	ErrInvalidPeriod = apperror.New(
		apperror.CodeInvalidInput,
		"period_start and period_end must be valid dates with start <= end",
		http.StatusBadRequest,
	)
	ErrBatchLocked = apperror.New(
		apperror.CodeConflict,
		"another batch is already running for this organization and period",
		http.StatusConflict,
	)
	ErrBatchNotFound = apperror.New(
		apperror.CodeNotFound,
		"batch not found or rollback window expired",
		http.StatusNotFound,
	)
	ErrBatchTimeout = apperror.New(
		apperror.CodeTransactionFailure,
		"batch exceeded its time budget and was rolled back",
		http.StatusGatewayTimeout,
	)
)
