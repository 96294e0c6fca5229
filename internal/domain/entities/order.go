package entities

import (
	"encoding/json"
	"time"
)

// OrderStatus represents the lifecycle of an order row.
//
// Domain notes:
//   - Statuses only move forward: initialized -> payment_processed -> completed | cancelled.
//   - completed and cancelled are final; nothing writes over them.

type OrderStatus string

const (
	OrderStatusInitialized      OrderStatus = "initialized"
	OrderStatusPaymentProcessed OrderStatus = "payment_processed"
	OrderStatusCompleted        OrderStatus = "completed"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusInitialized:
		return 1
	case OrderStatusPaymentProcessed:
		return 2
	case OrderStatusCompleted, OrderStatusCancelled:
		return 3
	default:
		return 0
	}
}

// IsFinal reports whether the status can no longer change.
func (s OrderStatus) IsFinal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsFinal() {
		return false
	}
	return next.rank() == s.rank()+1
}

// Order is the order row persisted in the order table.
//
// Storage model (DynamoDB):
//   - PK: user_id (owner)
//   - SK: id
//
// Payload holds the submitted line items exactly as received; the orchestrator
// never interprets it beyond the amount used for payment authorization.
type Order struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"user_id"`
	Status        OrderStatus     `json:"status"`
	Amount        float64         `json:"amount"`
	PaymentStatus string          `json:"payment_status,omitempty"`
	PaymentID     string          `json:"payment_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// HasPayment reports whether a payment outcome was already recorded.
func (o Order) HasPayment() bool {
	return o.PaymentStatus != ""
}
