package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"
)

// OrderMemoryRepository is an in-process order table with the same conditional
// write rules as OrderDynamoRepository. Used for local runs and tests.
type OrderMemoryRepository struct {
	mu     sync.Mutex
	orders map[string]entities.Order
	now    func() time.Time
}

var _ interfaces.IOrderRepository = (*OrderMemoryRepository)(nil)

func NewOrderMemoryRepository() *OrderMemoryRepository {
	return &OrderMemoryRepository{
		orders: make(map[string]entities.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func memoryOrderKey(ownerID, orderID string) string {
	return ownerID + "\x00" + orderID
}

func (r *OrderMemoryRepository) CreateIfAbsent(_ context.Context, o entities.Order) (entities.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memoryOrderKey(o.OwnerID, o.ID)
	if existing, ok := r.orders[k]; ok {
		return cloneOrder(existing), false, nil
	}
	r.orders[k] = cloneOrder(o)
	return cloneOrder(o), true, nil
}

func (r *OrderMemoryRepository) GetByID(_ context.Context, ownerID, orderID string) (entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOrder(r.orders[memoryOrderKey(ownerID, orderID)]), nil
}

func (r *OrderMemoryRepository) TransitionStatus(_ context.Context, ownerID, orderID string, from, next entities.OrderStatus) (entities.Order, error) {
	if !from.CanTransitionTo(next) {
		return entities.Order{}, nil
	}
	return r.update(ownerID, orderID, func(o *entities.Order) bool {
		if o.Status != from {
			return false
		}
		o.Status = next
		return true
	})
}

func (r *OrderMemoryRepository) RecordPayment(_ context.Context, ownerID, orderID string, result entities.PaymentResult) (entities.Order, error) {
	return r.update(ownerID, orderID, func(o *entities.Order) bool {
		if o.Status != entities.OrderStatusInitialized || o.PaymentStatus != "" {
			return false
		}
		o.Status = entities.OrderStatusPaymentProcessed
		o.PaymentStatus = result.Status
		o.PaymentID = result.PaymentID
		return true
	})
}

func (r *OrderMemoryRepository) UpdatePayload(_ context.Context, ownerID, orderID string, payload json.RawMessage) (entities.Order, error) {
	return r.update(ownerID, orderID, func(o *entities.Order) bool {
		if o.Status.IsFinal() {
			return false
		}
		o.Payload = append(json.RawMessage(nil), payload...)
		return true
	})
}

func (r *OrderMemoryRepository) Delete(_ context.Context, ownerID, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memoryOrderKey(ownerID, orderID)
	if _, ok := r.orders[k]; !ok {
		return false, nil
	}
	delete(r.orders, k)
	return true, nil
}

// update applies mutate under the lock. A missing row or a false return leaves
// the row untouched and yields a zero-value Order.
func (r *OrderMemoryRepository) update(ownerID, orderID string, mutate func(o *entities.Order) bool) (entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memoryOrderKey(ownerID, orderID)
	current, ok := r.orders[k]
	if !ok {
		return entities.Order{}, nil
	}
	next := cloneOrder(current)
	if !mutate(&next) {
		return entities.Order{}, nil
	}
	next.UpdatedAt = r.now()
	r.orders[k] = next
	return cloneOrder(next), nil
}

func cloneOrder(o entities.Order) entities.Order {
	if o.Payload != nil {
		o.Payload = append(json.RawMessage(nil), o.Payload...)
	}
	return o
}
