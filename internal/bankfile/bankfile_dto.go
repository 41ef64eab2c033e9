package bankfile

// GenerateRequest selects the rail and carries the paying company's account
// details for it. Only the fields of the chosen format are read.
type GenerateRequest struct {
	Format    string `json:"format" binding:"required"`
	ValueDate string `json:"value_date" binding:"required"`
	Reference string `json:"reference"`

	CompanyName string `json:"company_name" binding:"required"`
	DebtorIBAN  string `json:"debtor_iban"`
	DebtorBIC   string `json:"debtor_bic"`

	OriginatorID       string `json:"originator_id"`
	OriginatorRouting  string `json:"originator_routing"`
	DestinationRouting string `json:"destination_routing"`
	DestinationName    string `json:"destination_name"`

	ServiceUserNumber     string `json:"service_user_number"`
	OriginatorSortCode    string `json:"originator_sort_code"`
	OriginatorAccount     string `json:"originator_account"`
	OriginatorAccountName string `json:"originator_account_name"`

	DebitAccount string `json:"debit_account"`
}

type Response struct {
	ID           string      `json:"id"`
	PayrollRunID string      `json:"payroll_run_id"`
	Format       string      `json:"format"`
	Sequence     int64       `json:"sequence"`
	Filename     string      `json:"filename"`
	StorageURI   string      `json:"storage_uri"`
	Currency     string      `json:"currency"`
	PaymentCount int         `json:"payment_count"`
	ControlSum   string      `json:"control_sum"`
	Rejected     []Rejection `json:"rejected"`
	CreatedAt    string      `json:"created_at"`
}

func toResponse(r Record) Response {
	rejected := []Rejection(r.Rejected)
	if rejected == nil {
		rejected = []Rejection{}
	}
	return Response{
		ID:           r.ID.String(),
		PayrollRunID: r.PayrollRunID.String(),
		Format:       r.Format,
		Sequence:     r.Sequence,
		Filename:     r.Filename,
		StorageURI:   r.StorageURI,
		Currency:     r.Currency,
		PaymentCount: r.PaymentCount,
		ControlSum:   r.ControlSum.StringFixed(2),
		Rejected:     rejected,
		CreatedAt:    r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
