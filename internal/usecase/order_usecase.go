package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidOrderPayload = errors.New("invalid order payload")
	ErrOrderFinal          = errors.New("order already reached a final status")
	ErrQueueNotSet         = errors.New("order queue not configured")
)

// IOrderUseCase exposes the order surface used by the API layer:
//   - Submit pushes a new order onto the ingestion queue (the workflow does the rest)
//   - GetByID / UpdatePayload / Delete are plain reads and writes of one row

type IOrderUseCase interface {
	Submit(ctx context.Context, payload json.RawMessage) (messageID string, sub entities.OrderSubmission, err error)
	GetByID(ctx context.Context, ownerID, orderID string) (entities.Order, error)
	UpdatePayload(ctx context.Context, ownerID, orderID string, payload json.RawMessage) (entities.Order, error)
	Delete(ctx context.Context, ownerID, orderID string) error
}

type OrderUseCase struct {
	repo  interfaces.IOrderRepository
	queue interfaces.IOrderQueue
}

var _ IOrderUseCase = (*OrderUseCase)(nil)

func NewOrderUseCase(repo interfaces.IOrderRepository, queue interfaces.IOrderQueue) *OrderUseCase {
	return &OrderUseCase{repo: repo, queue: queue}
}

func (u *OrderUseCase) Submit(ctx context.Context, payload json.RawMessage) (string, entities.OrderSubmission, error) {
	sub, err := entities.ParseOrderSubmission(payload)
	if err != nil {
		return "", entities.OrderSubmission{}, err
	}
	if u.queue == nil {
		return "", entities.OrderSubmission{}, ErrQueueNotSet
	}

	messageID, err := u.queue.Enqueue(ctx, sub.Raw)
	if err != nil {
		log.Printf("[order][usecase] enqueue failed owner_id=%s order_id=%s err=%v", sub.OwnerID, sub.ID, err)
		return "", entities.OrderSubmission{}, err
	}
	log.Printf("[order][usecase] submitted owner_id=%s order_id=%s message_id=%s", sub.OwnerID, sub.ID, messageID)
	return messageID, sub, nil
}

func (u *OrderUseCase) GetByID(ctx context.Context, ownerID, orderID string) (entities.Order, error) {
	ownerID, orderID, err := normalizeIdentity(ownerID, orderID)
	if err != nil {
		return entities.Order{}, err
	}

	o, err := u.repo.GetByID(ctx, ownerID, orderID)
	if err != nil {
		return entities.Order{}, err
	}
	if o.ID == "" {
		return entities.Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (u *OrderUseCase) UpdatePayload(ctx context.Context, ownerID, orderID string, payload json.RawMessage) (entities.Order, error) {
	ownerID, orderID, err := normalizeIdentity(ownerID, orderID)
	if err != nil {
		return entities.Order{}, err
	}
	if len(strings.TrimSpace(string(payload))) == 0 || !json.Valid(payload) {
		return entities.Order{}, ErrInvalidOrderPayload
	}

	updated, err := u.repo.UpdatePayload(ctx, ownerID, orderID, payload)
	if err != nil {
		return entities.Order{}, err
	}
	if updated.ID == "" {
		current, err := u.GetByID(ctx, ownerID, orderID)
		if err != nil {
			return entities.Order{}, err
		}
		if current.Status.IsFinal() {
			return entities.Order{}, ErrOrderFinal
		}
		return entities.Order{}, ErrOrderStatusConflict
	}
	return updated, nil
}

func (u *OrderUseCase) Delete(ctx context.Context, ownerID, orderID string) error {
	ownerID, orderID, err := normalizeIdentity(ownerID, orderID)
	if err != nil {
		return err
	}

	deleted, err := u.repo.Delete(ctx, ownerID, orderID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrOrderNotFound
	}
	log.Printf("[order][usecase] deleted owner_id=%s order_id=%s", ownerID, orderID)
	return nil
}
