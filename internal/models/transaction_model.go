package models

import "time"

const (
	GatewayRazorpay = "RAZORPAY"
	GatewayStripe   = "STRIPE"
)

const (
	TransactionPending   = "PENDING"
	TransactionCompleted = "COMPLETED"
	TransactionFailed    = "FAILED"
)

type Transaction struct {
	ID               int64     `db:"id" json:"id"`
	UserID           int64     `db:"user_id" json:"user_id"`
	Gateway          string    `db:"gateway" json:"gateway"`
	GatewayTxnID     string    `db:"gateway_txn_id" json:"gateway_txn_id"`
	PlanID           string    `db:"plan_id" json:"plan_id"`
	Amount           int64     `db:"amount" json:"amount"` // minor units
	Currency         string    `db:"currency" json:"currency"`
	CreditsPurchased int64     `db:"credits_purchased" json:"credits_purchased"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Credits  int64  `json:"credits"`
	Currency string `json:"currency"`
}
