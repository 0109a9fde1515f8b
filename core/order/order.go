package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	Pending Status = "pending"
	Paid    Status = "paid"
	Expired Status = "expired"
)

type ReceiveStatus string

const (
	NotReceived ReceiveStatus = "not_received"
	Received    ReceiveStatus = "received"
	Refunding   ReceiveStatus = "refunding"
	Refunded    ReceiveStatus = "refunded"
)

const (
	ProviderChapa  = "chapa"
	ProviderPaypal = "paypal"
)

// Notes is the serialized free-form note list attached to an order.
type Notes []string

func (n Notes) Value() (driver.Value, error) {
	if n == nil {
		n = Notes{}
	}
	return json.Marshal(n)
}

func (n *Notes) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Notes", src)
	}
	return json.Unmarshal(b, n)
}

type Order struct {
	ID              string        `json:"id" db:"order_id"`
	UserID          string        `json:"userId" db:"user_id"`
	ProductID       string        `json:"productId" db:"product_id"`
	Quantity        int           `json:"quantity" db:"quantity"`
	TotalAmount     int           `json:"totalAmount" db:"total_amount"`
	Status          Status        `json:"orderStatus" db:"order_status"`
	ReceiveStatus   ReceiveStatus `json:"receiveStatus" db:"receive_status"`
	Provider        string        `json:"provider" db:"provider"`
	TxRef           *string       `json:"txRef" db:"tx_ref"`
	CustomerEmail   string        `json:"customerEmail" db:"customer_email"`
	CustomerPhone   string        `json:"customerPhone" db:"customer_phone"`
	ShippingAddress string        `json:"shippingAddress" db:"shipping_address"`
	ReceiverPhone   string        `json:"receiverPhone" db:"receiver_phone"`
	Notes           Notes         `json:"notes" db:"notes"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}

type OrderNew struct {
	ProductID       string   `json:"productId" validate:"required,uuid"`
	Quantity        int      `json:"quantity" validate:"required,gte=1,lte=100"`
	CustomerPhone   string   `json:"phone" validate:"required"`
	ShippingAddress string   `json:"address" validate:"required"`
	ReceiverPhone   string   `json:"receiverPhone"`
	Notes           []string `json:"notes" validate:"max=20,dive,max=500"`
}

var (
	ErrNotPaid      = errors.New("order has not been paid")
	ErrNotPending   = errors.New("order is not pending")
	ErrNotRefunding = errors.New("order has no refund in progress")
	ErrRefundState  = errors.New("order cannot be refunded in its current state")
)

// CanFulfill reports whether marking the order paid is a valid or an
// idempotent transition. Only a pending order actually transitions; a paid
// one is a no-op.
func (o Order) CanFulfill() error {
	switch o.Status {
	case Pending, Paid:
		return nil
	}
	return ErrNotPending
}

// CanReceive guards the buyer's delivery acknowledgment: the order must be
// paid and not already past the received state.
func (o Order) CanReceive() error {
	if o.Status != Paid {
		return ErrNotPaid
	}
	if o.ReceiveStatus != NotReceived {
		return ErrRefundState
	}
	return nil
}

// CanRequestRefund guards the buyer's refund request.
func (o Order) CanRequestRefund() error {
	if o.Status != Paid {
		return ErrNotPaid
	}
	switch o.ReceiveStatus {
	case NotReceived, Received:
		return nil
	}
	return ErrRefundState
}

// CanResolveRefund guards the back-office refund resolution.
func (o Order) CanResolveRefund() error {
	if o.ReceiveStatus != Refunding {
		return ErrNotRefunding
	}
	return nil
}
