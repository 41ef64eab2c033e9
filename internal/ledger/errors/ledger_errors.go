package ledgererrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

var (
	ErrNoPayslips = apperror.New(
		apperror.CodeInvalidState,
		"payroll run has no active payslips to journal",
		http.StatusBadRequest,
	)
	ErrUnsupportedExport = apperror.New(
		apperror.CodeInvalidInput,
		"unsupported journal export format",
		http.StatusBadRequest,
	)
	ErrJournalUnbalanced = apperror.New(
		apperror.CodeInvalidState,
		"journal entry debits and credits do not balance",
		http.StatusUnprocessableEntity,
	)
)
