package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultMaxReceiveCount is the number of deliveries a message gets before it is
// routed to the dead-letter channel on its next receive.
const DefaultMaxReceiveCount = 5

type memoryEntry struct {
	id           string
	body         json.RawMessage
	enqueuedAt   time.Time
	receiveCount int
	visibleAt    time.Time
	receipt      string
}

// MemoryQueue is an in-process ingestion queue with SQS semantics: visibility
// leases, per-message receive counts and a dead-letter redirect.
type MemoryQueue struct {
	mu              sync.Mutex
	order           []string
	entries         map[string]*memoryEntry
	deadLetters     []entities.QueueMessage
	maxReceiveCount int

	now          func() time.Time
	onDeadLetter func(msg entities.QueueMessage)
}

var (
	_ interfaces.IOrderQueue      = (*MemoryQueue)(nil)
	_ interfaces.IDeadLetterQueue = (*MemoryQueue)(nil)
)

func NewMemoryQueue(maxReceiveCount int) *MemoryQueue {
	if maxReceiveCount <= 0 {
		maxReceiveCount = DefaultMaxReceiveCount
	}
	return &MemoryQueue{
		entries:         make(map[string]*memoryEntry),
		maxReceiveCount: maxReceiveCount,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the queue's time source.
func (q *MemoryQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// OnDeadLetter registers a callback run for every message moved to the dead-letter channel.
func (q *MemoryQueue) OnDeadLetter(fn func(msg entities.QueueMessage)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onDeadLetter = fn
}

func (q *MemoryQueue) MaxReceiveCount() int {
	return q.maxReceiveCount
}

func (q *MemoryQueue) Enqueue(_ context.Context, payload json.RawMessage) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	id := uuid.NewString()
	q.entries[id] = &memoryEntry{
		id:         id,
		body:       append(json.RawMessage(nil), payload...),
		enqueuedAt: now,
		visibleAt:  now,
	}
	q.order = append(q.order, id)
	return id, nil
}

func (q *MemoryQueue) Receive(ctx context.Context, maxBatch int, visibilityTimeout time.Duration) ([]entities.QueueMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxBatch <= 0 {
		maxBatch = 1
	}

	q.mu.Lock()
	now := q.now()
	batch := make([]entities.QueueMessage, 0, maxBatch)
	dead := make([]entities.QueueMessage, 0)
	kept := q.order[:0]

	for _, id := range q.order {
		e := q.entries[id]
		if len(batch) >= maxBatch || now.Before(e.visibleAt) {
			kept = append(kept, id)
			continue
		}

		e.receiveCount++
		if e.receiveCount > q.maxReceiveCount {
			msg := e.message()
			delete(q.entries, id)
			q.deadLetters = append(q.deadLetters, msg)
			dead = append(dead, msg)
			continue
		}

		e.receipt = uuid.NewString()
		e.visibleAt = now.Add(visibilityTimeout)
		batch = append(batch, e.message())
		kept = append(kept, id)
	}
	q.order = kept
	hook := q.onDeadLetter
	q.mu.Unlock()

	for _, msg := range dead {
		log.Warn().Str("message_id", msg.ID).Int("receive_count", msg.Attempt).
			Msg("[queue][memory] message moved to dead-letter channel")
		if hook != nil {
			hook(msg)
		}
	}
	return batch, nil
}

func (q *MemoryQueue) Acknowledge(_ context.Context, msg entities.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[msg.ID]
	if !ok {
		return nil
	}
	if e.receipt != msg.ReceiptHandle {
		return interfaces.ErrStaleReceipt
	}
	delete(q.entries, msg.ID)
	for i, id := range q.order {
		if id == msg.ID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return nil
}

func (q *MemoryQueue) ExtendVisibility(_ context.Context, msg entities.QueueMessage, d time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[msg.ID]
	if !ok || e.receipt != msg.ReceiptHandle {
		return interfaces.ErrStaleReceipt
	}
	e.visibleAt = q.now().Add(d)
	return nil
}

// ListDeadLetters returns up to max dead-lettered messages without removing them.
func (q *MemoryQueue) ListDeadLetters(_ context.Context, max int) ([]entities.QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.deadLetters)
	if max > 0 && max < n {
		n = max
	}
	out := make([]entities.QueueMessage, n)
	copy(out, q.deadLetters[:n])
	return out, nil
}

// Len reports the messages still owned by the main queue, visible or leased.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (e *memoryEntry) message() entities.QueueMessage {
	return entities.QueueMessage{
		ID:            e.id,
		ReceiptHandle: e.receipt,
		Body:          append(json.RawMessage(nil), e.body...),
		Attempt:       e.receiveCount,
		EnqueuedAt:    e.enqueuedAt,
	}
}
