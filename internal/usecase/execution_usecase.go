package usecase

import (
	"context"
	"errors"
	"strings"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"
)

var (
	ErrExecutionNotFound   = errors.New("execution not found")
	ErrInvalidExecutionID  = errors.New("invalid execution id")
	ErrDeadLetterQueueNone = errors.New("dead-letter queue not configured")
)

const maxDeadLetterPeek = 50

// IExecutionUseCase is the read-only workflow status surface.

type IExecutionUseCase interface {
	GetByID(ctx context.Context, id string) (entities.Execution, error)
	GetByOrder(ctx context.Context, ownerID, orderID string) (entities.Execution, error)
	ListDeadLetters(ctx context.Context, max int) ([]entities.QueueMessage, error)
}

type ExecutionUseCase struct {
	repo interfaces.IExecutionRepository
	dlq  interfaces.IDeadLetterQueue
}

var _ IExecutionUseCase = (*ExecutionUseCase)(nil)

func NewExecutionUseCase(repo interfaces.IExecutionRepository, dlq interfaces.IDeadLetterQueue) *ExecutionUseCase {
	return &ExecutionUseCase{repo: repo, dlq: dlq}
}

func (u *ExecutionUseCase) GetByID(ctx context.Context, id string) (entities.Execution, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.Execution{}, ErrInvalidExecutionID
	}

	e, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return entities.Execution{}, err
	}
	if e.ID == "" {
		return entities.Execution{}, ErrExecutionNotFound
	}
	return e, nil
}

func (u *ExecutionUseCase) GetByOrder(ctx context.Context, ownerID, orderID string) (entities.Execution, error) {
	ownerID, orderID, err := normalizeIdentity(ownerID, orderID)
	if err != nil {
		return entities.Execution{}, err
	}
	return u.GetByID(ctx, entities.ExecutionIDFor(entities.IdempotencyKey(ownerID, orderID)))
}

func (u *ExecutionUseCase) ListDeadLetters(ctx context.Context, max int) ([]entities.QueueMessage, error) {
	if u.dlq == nil {
		return nil, ErrDeadLetterQueueNone
	}
	if max <= 0 || max > maxDeadLetterPeek {
		max = maxDeadLetterPeek
	}
	return u.dlq.ListDeadLetters(ctx, max)
}
