package entities

import (
	"encoding/json"
	"time"
)

// QueueMessage is one delivery of an ingestion queue message.
//
// ReceiptHandle identifies this particular lease: acknowledging or extending with
// the handle of an expired lease has no effect on a newer delivery.
type QueueMessage struct {
	ID            string          `json:"id"`
	ReceiptHandle string          `json:"-"`
	Body          json.RawMessage `json:"body"`
	Attempt       int             `json:"attempt"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
}

// OrderOutcome is the terminal outcome announced to subscribers.
type OrderOutcome string

const (
	OrderOutcomeCompleted OrderOutcome = "completed"
	OrderOutcomeCancelled OrderOutcome = "cancelled"
)

// OrderNotification is the fire-and-forget event published on a terminal outcome.
// Consumers must tolerate duplicates.
type OrderNotification struct {
	OrderID    string       `json:"orderId"`
	OwnerID    string       `json:"ownerId"`
	Outcome    OrderOutcome `json:"outcome"`
	OccurredAt time.Time    `json:"occurredAt"`
}
