package interfaces

import (
	"context"
	"encoding/json"

	"orderflow/internal/domain/entities"
)

// IOrderRepository abstracts the order table, keyed by (owner-id, order-id).
//
// Conventions:
//   - a missing row is returned as a zero-value Order and a nil error
//   - conditional writes that lose their condition return a zero-value Order and a nil error;
//     callers re-read to tell "already done" from "conflict"

type IOrderRepository interface {
	// CreateIfAbsent writes the order only when no row exists for its key.
	// It returns the stored row and whether this call created it.
	CreateIfAbsent(ctx context.Context, o entities.Order) (entities.Order, bool, error)
	GetByID(ctx context.Context, ownerID, orderID string) (entities.Order, error)
	// TransitionStatus moves the order to next only if its current status equals from.
	TransitionStatus(ctx context.Context, ownerID, orderID string, from, next entities.OrderStatus) (entities.Order, error)
	// RecordPayment writes the payment outcome only if none was recorded yet.
	RecordPayment(ctx context.Context, ownerID, orderID string, result entities.PaymentResult) (entities.Order, error)
	// UpdatePayload replaces the line-item payload of a non-final order.
	UpdatePayload(ctx context.Context, ownerID, orderID string, payload json.RawMessage) (entities.Order, error)
	Delete(ctx context.Context, ownerID, orderID string) (bool, error)
}
