package models

import "time"

// Credit is the ledger entry for one account.
type Credit struct {
	ID          int64     `db:"id" json:"-"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Balance     int64     `db:"balance" json:"balance"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}

// CreditRefund records a compensating credit so a retried refund applies once.
type CreditRefund struct {
	OperationID string    `db:"operation_id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	CreatedAt   time.Time `db:"created_at"`
}
