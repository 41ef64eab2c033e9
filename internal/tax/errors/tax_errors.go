package taxerrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

var (
	ErrUnsupportedFrequency = apperror.New(
		apperror.CodeInvalidInput,
		"unsupported pay frequency",
		http.StatusBadRequest,
	)
	ErrInvalidTaxCode = apperror.New(
		apperror.CodeInvalidInput,
		"invalid tax code",
		http.StatusBadRequest,
	)
	ErrNegativeTaxableBase = apperror.New(
		apperror.CodeInvalidInput,
		"taxable base cannot be negative",
		http.StatusBadRequest,
	)
	ErrInvalidTrace = apperror.New(
		apperror.CodeInternalError,
		"calculation trace does not match its kind",
		http.StatusInternalServerError,
	)
)
