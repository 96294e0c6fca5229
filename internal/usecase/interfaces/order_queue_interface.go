package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"orderflow/internal/domain/entities"
)

// ErrStaleReceipt is returned when a lease expired before it was acknowledged or extended.
var ErrStaleReceipt = errors.New("stale receipt handle")

// IOrderQueue is the at-least-once ingestion queue.
//
// Deliveries beyond the queue's receive ceiling are moved to the dead-letter
// channel by Receive and never handed to the caller.

type IOrderQueue interface {
	Enqueue(ctx context.Context, payload json.RawMessage) (string, error)
	Receive(ctx context.Context, maxBatch int, visibilityTimeout time.Duration) ([]entities.QueueMessage, error)
	Acknowledge(ctx context.Context, msg entities.QueueMessage) error
	ExtendVisibility(ctx context.Context, msg entities.QueueMessage, d time.Duration) error
}

// IDeadLetterQueue exposes the dead-letter channel for manual inspection only.
type IDeadLetterQueue interface {
	ListDeadLetters(ctx context.Context, max int) ([]entities.QueueMessage, error)
}
