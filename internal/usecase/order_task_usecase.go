package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound            = errors.New("order not found")
	ErrOrderStatusConflict      = errors.New("order status conflict")
	ErrPaymentNotRecorded       = errors.New("payment outcome not recorded")
	ErrPaymentGatewayNotSet     = errors.New("payment gateway not configured")
	ErrOrderRepositoryNotSet    = errors.New("order repository not configured")
	ErrInvalidOrderIdentity     = errors.New("invalid order identity")
	ErrPaymentGatewayEmptyReply = errors.New("payment gateway returned no status")
)

// IOrderTaskUseCase holds the four task functions invoked by the workflow engine.
//
// Every task is idempotent: re-invoking it for an order it already handled
// returns the recorded result instead of writing again.

type IOrderTaskUseCase interface {
	InitializeOrder(ctx context.Context, sub entities.OrderSubmission) (entities.Order, error)
	ProcessPayment(ctx context.Context, ownerID, orderID string) (entities.PaymentResult, error)
	CompleteOrder(ctx context.Context, ownerID, orderID string) (entities.Order, error)
	CancelOrder(ctx context.Context, ownerID, orderID string) (entities.Order, error)
}

type OrderTaskUseCase struct {
	repo      interfaces.IOrderRepository
	gateway   interfaces.IPaymentGateway
	publisher interfaces.INotificationPublisher
	now       func() time.Time
}

var _ IOrderTaskUseCase = (*OrderTaskUseCase)(nil)

func NewOrderTaskUseCase(repo interfaces.IOrderRepository, gateway interfaces.IPaymentGateway, publisher interfaces.INotificationPublisher) *OrderTaskUseCase {
	return &OrderTaskUseCase{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (u *OrderTaskUseCase) InitializeOrder(ctx context.Context, sub entities.OrderSubmission) (entities.Order, error) {
	if u.repo == nil {
		return entities.Order{}, ErrOrderRepositoryNotSet
	}
	ownerID, orderID, err := normalizeIdentity(sub.OwnerID, sub.ID)
	if err != nil {
		return entities.Order{}, err
	}

	now := u.now()
	o := entities.Order{
		ID:        orderID,
		OwnerID:   ownerID,
		Status:    entities.OrderStatusInitialized,
		Amount:    sub.Amount,
		Payload:   sub.Raw,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, created, err := u.repo.CreateIfAbsent(ctx, o)
	if err != nil {
		log.Printf("[order][task] initialize failed owner_id=%s order_id=%s err=%v", ownerID, orderID, err)
		return entities.Order{}, err
	}
	if !created {
		log.Printf("[order][task] initialize no-op (already exists) owner_id=%s order_id=%s status=%s", ownerID, orderID, stored.Status)
		return stored, nil
	}
	log.Printf("[order][task] initialized owner_id=%s order_id=%s amount=%.2f", ownerID, orderID, stored.Amount)
	return stored, nil
}

func (u *OrderTaskUseCase) ProcessPayment(ctx context.Context, ownerID, orderID string) (entities.PaymentResult, error) {
	if u.repo == nil {
		return entities.PaymentResult{}, ErrOrderRepositoryNotSet
	}
	ownerID, orderID, err := normalizeIdentity(ownerID, orderID)
	if err != nil {
		return entities.PaymentResult{}, err
	}

	o, err := u.getOrder(ctx, ownerID, orderID)
	if err != nil {
		return entities.PaymentResult{}, err
	}
	if o.HasPayment() {
		log.Printf("[payment][task] returning recorded outcome owner_id=%s order_id=%s payment_status=%s", ownerID, orderID, o.PaymentStatus)
		return recordedResult(o), nil
	}
	if o.Status != entities.OrderStatusInitialized {
		return entities.PaymentResult{}, fmt.Errorf("%w: cannot process payment from %s", ErrOrderStatusConflict, o.Status)
	}
	if u.gateway == nil {
		return entities.PaymentResult{}, ErrPaymentGatewayNotSet
	}

	reqPayload, err := json.Marshal(map[string]any{
		"transaction_amount": o.Amount,
		"external_reference": entities.IdempotencyKey(ownerID, orderID),
		"description":        fmt.Sprintf("Order %s", orderID),
	})
	if err != nil {
		return entities.PaymentResult{}, err
	}

	log.Printf("[payment][task] authorizing owner_id=%s order_id=%s amount=%.2f", ownerID, orderID, o.Amount)
	providerID, providerStatus, _, err := u.gateway.CreatePayment(ctx, reqPayload)
	if err != nil {
		log.Printf("[payment][task] gateway failed owner_id=%s order_id=%s err=%v", ownerID, orderID, err)
		return entities.PaymentResult{}, err
	}
	if strings.TrimSpace(providerStatus) == "" {
		return entities.PaymentResult{}, ErrPaymentGatewayEmptyReply
	}

	result := entities.PaymentResult{
		Status:    entities.PaymentStatusFromProvider(providerStatus),
		PaymentID: providerID,
	}
	updated, err := u.repo.RecordPayment(ctx, ownerID, orderID, result)
	if err != nil {
		return entities.PaymentResult{}, err
	}
	if updated.ID == "" {
		// Lost the conditional write to a concurrent or earlier invocation: its outcome wins.
		current, err := u.getOrder(ctx, ownerID, orderID)
		if err != nil {
			return entities.PaymentResult{}, err
		}
		if !current.HasPayment() {
			return entities.PaymentResult{}, ErrPaymentNotRecorded
		}
		log.Printf("[payment][task] concurrent outcome kept owner_id=%s order_id=%s payment_status=%s", ownerID, orderID, current.PaymentStatus)
		return recordedResult(current), nil
	}

	log.Printf("[payment][task] recorded owner_id=%s order_id=%s provider_status=%s payment_status=%s", ownerID, orderID, providerStatus, result.Status)
	return result, nil
}

func (u *OrderTaskUseCase) CompleteOrder(ctx context.Context, ownerID, orderID string) (entities.Order, error) {
	return u.finish(ctx, ownerID, orderID, entities.OrderStatusCompleted, entities.OrderOutcomeCompleted)
}

func (u *OrderTaskUseCase) CancelOrder(ctx context.Context, ownerID, orderID string) (entities.Order, error) {
	return u.finish(ctx, ownerID, orderID, entities.OrderStatusCancelled, entities.OrderOutcomeCancelled)
}

func (u *OrderTaskUseCase) finish(ctx context.Context, ownerID, orderID string, target entities.OrderStatus, outcome entities.OrderOutcome) (entities.Order, error) {
	if u.repo == nil {
		return entities.Order{}, ErrOrderRepositoryNotSet
	}
	ownerID, orderID, err := normalizeIdentity(ownerID, orderID)
	if err != nil {
		return entities.Order{}, err
	}

	updated, err := u.repo.TransitionStatus(ctx, ownerID, orderID, entities.OrderStatusPaymentProcessed, target)
	if err != nil {
		log.Printf("[order][task] transition failed owner_id=%s order_id=%s target=%s err=%v", ownerID, orderID, target, err)
		return entities.Order{}, err
	}
	if updated.ID == "" {
		current, err := u.getOrder(ctx, ownerID, orderID)
		if err != nil {
			return entities.Order{}, err
		}
		if current.Status != target {
			return entities.Order{}, fmt.Errorf("%w: order is %s, wanted %s", ErrOrderStatusConflict, current.Status, target)
		}
		// Already in the target status: an earlier invocation wrote it. Publish again,
		// subscribers tolerate duplicates and the earlier publish may not have happened.
		log.Printf("[order][task] %s no-op (already %s) owner_id=%s order_id=%s", outcome, target, ownerID, orderID)
		updated = current
	}

	u.publish(ctx, entities.OrderNotification{
		OrderID:    orderID,
		OwnerID:    ownerID,
		Outcome:    outcome,
		OccurredAt: u.now(),
	})
	return updated, nil
}

func (u *OrderTaskUseCase) publish(ctx context.Context, n entities.OrderNotification) {
	if u.publisher == nil {
		log.Printf("[notification][task] publisher not configured; dropping outcome=%s order_id=%s", n.Outcome, n.OrderID)
		return
	}
	if err := u.publisher.Publish(ctx, n); err != nil {
		log.Error().Err(err).Str("order_id", n.OrderID).Str("owner_id", n.OwnerID).Str("outcome", string(n.Outcome)).
			Msg("[notification][task] publish failed")
		return
	}
	log.Printf("[notification][task] published outcome=%s owner_id=%s order_id=%s", n.Outcome, n.OwnerID, n.OrderID)
}

func (u *OrderTaskUseCase) getOrder(ctx context.Context, ownerID, orderID string) (entities.Order, error) {
	o, err := u.repo.GetByID(ctx, ownerID, orderID)
	if err != nil {
		return entities.Order{}, err
	}
	if o.ID == "" {
		return entities.Order{}, ErrOrderNotFound
	}
	return o, nil
}

func recordedResult(o entities.Order) entities.PaymentResult {
	return entities.PaymentResult{Status: o.PaymentStatus, PaymentID: o.PaymentID, Recorded: true}
}

func normalizeIdentity(ownerID, orderID string) (string, string, error) {
	ownerID = strings.TrimSpace(ownerID)
	orderID = strings.TrimSpace(orderID)
	if ownerID == "" || orderID == "" {
		return "", "", ErrInvalidOrderIdentity
	}
	return ownerID, orderID, nil
}
