package bankfileerrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

var (
	ErrUnsupportedFormat = apperror.New(
		apperror.CodeInvalidInput,
		"unsupported bank file format",
		http.StatusBadRequest,
	)
	ErrMissingOriginator = apperror.New(
		apperror.CodeInvalidInput,
		"originator details required by this format are missing",
		http.StatusBadRequest,
	)
	ErrNoValidPayments = apperror.New(
		apperror.CodeFormatConstraint,
		"no payment satisfies the format constraints",
		http.StatusUnprocessableEntity,
	)
	ErrControlTotalTooLarge = apperror.New(
		apperror.CodeFormatConstraint,
		"file control total exceeds the format's amount field",
		http.StatusUnprocessableEntity,
	)
	ErrNoIssuedPayslips = apperror.New(
		apperror.CodeInvalidState,
		"payroll run has no issued payslips",
		http.StatusBadRequest,
	)
)
