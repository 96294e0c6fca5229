package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var (
	ErrExecutionRegistryNotSet = errors.New("execution registry not configured")
	ErrDispatcherNotSet        = errors.New("execution dispatcher not configured")
)

// TriggerOutcome tells what the trigger did with one delivery.
type TriggerOutcome string

const (
	TriggerOutcomeStarted   TriggerOutcome = "started"
	TriggerOutcomeDuplicate TriggerOutcome = "duplicate"
	// TriggerOutcomeRejected means the message was left unacknowledged; the queue
	// redelivers it and eventually dead-letters it.
	TriggerOutcomeRejected TriggerOutcome = "rejected"
)

// TriggerResult is the per-message result of HandleBatch.
type TriggerResult struct {
	MessageID   string
	ExecutionID string
	Outcome     TriggerOutcome
	Err         error
}

// TriggerObserver receives trigger events for metrics.
type TriggerObserver interface {
	ExecutionStarted()
	DuplicateSuppressed()
	MessageRejected()
}

// WorkflowTrigger bridges the ingestion queue and the workflow engine.
//
// Per message: derive the idempotency key, create-if-absent the execution record,
// and acknowledge only after that write succeeded. A lost ack is harmless (the
// redelivery is suppressed as a duplicate); a lost start is not, hence start-then-ack.
type WorkflowTrigger struct {
	queue       interfaces.IOrderQueue
	executions  interfaces.IExecutionRepository
	dispatcher  interfaces.IExecutionDispatcher
	observer    TriggerObserver
	backoff     func(attempt int) time.Duration
	concurrency int
	now         func() time.Time
}

func NewWorkflowTrigger(
	queue interfaces.IOrderQueue,
	executions interfaces.IExecutionRepository,
	dispatcher interfaces.IExecutionDispatcher,
	backoff func(attempt int) time.Duration,
	concurrency int,
) *WorkflowTrigger {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &WorkflowTrigger{
		queue:       queue,
		executions:  executions,
		dispatcher:  dispatcher,
		backoff:     backoff,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (t *WorkflowTrigger) SetObserver(o TriggerObserver) {
	t.observer = o
}

// HandleBatch processes a received batch concurrently, bounded by the trigger's
// concurrency. Start-or-suppress decisions for the same order are serialized by
// the registry's conditional write, not by this process.
//
// A rejected message does not stop its siblings. The returned error is the first
// rejection; every message's outcome is in the results.
func (t *WorkflowTrigger) HandleBatch(ctx context.Context, msgs []entities.QueueMessage) ([]TriggerResult, error) {
	results := make([]TriggerResult, len(msgs))
	var g errgroup.Group
	g.SetLimit(t.concurrency)
	for i, msg := range msgs {
		g.Go(func() error {
			execID, outcome, err := t.HandleMessage(ctx, msg)
			results[i] = TriggerResult{MessageID: msg.ID, ExecutionID: execID, Outcome: outcome, Err: err}
			if err != nil {
				return fmt.Errorf("message %s: %w", msg.ID, err)
			}
			return nil
		})
	}
	return results, g.Wait()
}

// HandleMessage runs start-or-suppress for one delivery.
func (t *WorkflowTrigger) HandleMessage(ctx context.Context, msg entities.QueueMessage) (string, TriggerOutcome, error) {
	ctx, span := otel.Tracer("orderflow/trigger").Start(ctx, "trigger.HandleMessage")
	defer span.End()
	span.SetAttributes(attribute.String("message.id", msg.ID), attribute.Int("message.attempt", msg.Attempt))

	if t.queue == nil {
		return "", TriggerOutcomeRejected, ErrQueueNotSet
	}
	if t.executions == nil {
		return "", TriggerOutcomeRejected, ErrExecutionRegistryNotSet
	}
	if t.dispatcher == nil {
		return "", TriggerOutcomeRejected, ErrDispatcherNotSet
	}

	sub, err := entities.ParseOrderSubmission(msg.Body)
	if err != nil {
		// Poison message: never ack, the queue's receive ceiling dead-letters it.
		log.Warn().Err(err).Str("message_id", msg.ID).Int("attempt", msg.Attempt).
			Msg("[workflow][trigger] rejecting malformed order payload")
		t.rejected()
		span.SetStatus(codes.Error, err.Error())
		return "", TriggerOutcomeRejected, err
	}

	exec := entities.NewExecution(sub, t.now())
	span.SetAttributes(attribute.String("execution.id", exec.ID), attribute.String("order.id", sub.ID))

	stored, created, err := t.executions.CreateIfAbsent(ctx, exec)
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Str("execution_id", exec.ID).
			Msg("[workflow][trigger] start failed; leaving message for redelivery")
		t.delayRedelivery(ctx, msg)
		t.rejected()
		span.SetStatus(codes.Error, err.Error())
		return exec.ID, TriggerOutcomeRejected, fmt.Errorf("start execution %s: %w", exec.ID, err)
	}

	if !created {
		log.Info().Str("message_id", msg.ID).Str("execution_id", stored.ID).Str("state", string(stored.State)).
			Msg("[workflow][trigger] duplicate delivery suppressed")
		t.ack(ctx, msg)
		if t.observer != nil {
			t.observer.DuplicateSuppressed()
		}
		return stored.ID, TriggerOutcomeDuplicate, nil
	}

	log.Info().Str("message_id", msg.ID).Str("execution_id", stored.ID).Str("order_id", sub.ID).Str("owner_id", sub.OwnerID).
		Msg("[workflow][trigger] execution started")
	if t.observer != nil {
		t.observer.ExecutionStarted()
	}
	t.dispatcher.Dispatch(stored)
	t.ack(ctx, msg)
	return stored.ID, TriggerOutcomeStarted, nil
}

func (t *WorkflowTrigger) ack(ctx context.Context, msg entities.QueueMessage) {
	if err := t.queue.Acknowledge(ctx, msg); err != nil {
		// Safe to lose: a redelivery lands on the existing execution and is suppressed.
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("[workflow][trigger] acknowledge failed")
	}
}

func (t *WorkflowTrigger) delayRedelivery(ctx context.Context, msg entities.QueueMessage) {
	if t.backoff == nil {
		return
	}
	if err := t.queue.ExtendVisibility(ctx, msg, t.backoff(msg.Attempt)); err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("[workflow][trigger] extend visibility failed")
	}
}

func (t *WorkflowTrigger) rejected() {
	if t.observer != nil {
		t.observer.MessageRejected()
	}
}
