package transfer

type CheckoutRequest struct {
	PlanID  string `json:"plan_id" validate:"required,max=50"`
	Gateway string `json:"gateway" validate:"required,max=20"`
}

// CheckoutResponse is what the checkout page needs to open the gateway.
// Reference must be sent back to us in the gateway's notes or
// client_reference_id field.
type CheckoutResponse struct {
	Reference string `json:"reference"`
	Gateway   string `json:"gateway"`
	PlanID    string `json:"plan_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Credits   int64  `json:"credits"`
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}
