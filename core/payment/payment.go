package payment

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

type Status string

const (
	Initiated Status = "initiated"
	Completed Status = "completed"
	Failed    Status = "failed"
)

type Payment struct {
	ID            string         `json:"id" db:"payment_id"`
	OrderID       string         `json:"orderId" db:"order_id"`
	UserID        string         `json:"userId" db:"user_id"`
	Amount        int            `json:"amount" db:"amount"`
	Method        string         `json:"method" db:"method"`
	Status        Status         `json:"status" db:"status"`
	TransactionID string         `json:"transactionId" db:"transaction_id"`
	RawResponse   types.JSONText `json:"-" db:"raw_response"`
	PaymentDate   *time.Time     `json:"paymentDate" db:"payment_date"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" db:"updated_at"`
}
