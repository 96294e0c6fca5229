package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase"
	"orderflow/internal/usecase/interfaces"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

var (
	ErrTaskTimeout  = errors.New("task timed out")
	ErrTaskPanicked = errors.New("task panicked")
	ErrLeaseHeld    = errors.New("execution leased by another worker")
)

// Observer receives engine events for metrics.
type Observer interface {
	TaskAttempted(task string, err error)
	ExecutionFinished(state entities.ExecutionState)
}

// Engine advances executions through the state machine.
//
// Within one execution tasks run strictly one after another. Different executions
// run in parallel, bounded by the engine's concurrency. Every transition is written
// to the registry with a version check, and a worker must hold the execution's lease
// before invoking any of its tasks.
type Engine struct {
	executions interfaces.IExecutionRepository
	tasks      usecase.IOrderTaskUseCase
	policy     RetryPolicy
	workerID   string
	observer   Observer
	tracer     trace.Tracer

	sem     *semaphore.Weighted
	running sync.Map
	wg      sync.WaitGroup
	baseCtx context.Context

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ interfaces.IExecutionDispatcher = (*Engine)(nil)

func NewEngine(executions interfaces.IExecutionRepository, tasks usecase.IOrderTaskUseCase, policy RetryPolicy, workerID string, maxConcurrent int) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Engine{
		executions: executions,
		tasks:      tasks,
		policy:     policy.normalized(),
		workerID:   workerID,
		tracer:     otel.Tracer("orderflow/workflow"),
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		baseCtx:    context.Background(),
		now:        func() time.Time { return time.Now().UTC() },
		sleep:      sleepContext,
	}
}

func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Policy returns the effective retry policy.
func (e *Engine) Policy() RetryPolicy {
	return e.policy
}

// Bind sets the context that dispatched executions run under. Cancelling it stops
// them at the next suspension point, leaving them resumable.
func (e *Engine) Bind(ctx context.Context) {
	e.baseCtx = ctx
}

// Dispatch runs the execution in the background. An execution already running in
// this process is not started twice.
func (e *Engine) Dispatch(exec entities.Execution) {
	if _, loaded := e.running.LoadOrStore(exec.ID, struct{}{}); loaded {
		return
	}
	ctx := e.baseCtx
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.running.Delete(exec.ID)

		if err := e.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer e.sem.Release(1)

		final, err := e.Run(ctx, exec)
		switch {
		case err == nil:
		case errors.Is(err, ErrLeaseHeld), errors.Is(err, context.Canceled):
			log.Debug().Err(err).Str("execution_id", exec.ID).Msg("[workflow][engine] run skipped or suspended")
		default:
			log.Warn().Err(err).Str("execution_id", exec.ID).Str("state", string(final.State)).
				Msg("[workflow][engine] run stopped before a terminal state")
		}
	}()
}

// Wait blocks until every dispatched execution returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Run drives exec until it reaches a terminal state, the context ends, or the
// registry refuses a write. The returned execution is the last persisted one.
func (e *Engine) Run(ctx context.Context, exec entities.Execution) (entities.Execution, error) {
	if exec.State.IsTerminal() {
		return exec, nil
	}
	if err := e.claim(ctx, &exec); err != nil {
		return exec, err
	}
	if exec.State.IsTerminal() {
		// Finished elsewhere since the caller's copy was read.
		return exec, nil
	}

	for !exec.State.IsTerminal() {
		if err := e.step(ctx, &exec); err != nil {
			return exec, err
		}
	}

	log.Info().Str("execution_id", exec.ID).Str("order_id", exec.OrderID).Str("owner_id", exec.OwnerID).
		Str("state", string(exec.State)).Int("attempt", exec.Attempt).Str("last_error", exec.LastError).
		Msg("[workflow][engine] execution finished")
	if e.observer != nil {
		e.observer.ExecutionFinished(exec.State)
	}
	return exec, nil
}

// claim takes the lease, re-reading first so a stale copy never overwrites newer state.
func (e *Engine) claim(ctx context.Context, exec *entities.Execution) error {
	current, err := e.executions.GetByID(ctx, exec.ID)
	if err != nil {
		return err
	}
	if current.ID == "" {
		return fmt.Errorf("execution %s not registered", exec.ID)
	}
	if current.LeasedByOther(e.workerID, e.now()) {
		return fmt.Errorf("%w: %s", ErrLeaseHeld, current.LeaseOwner)
	}
	*exec = current
	if exec.State.IsTerminal() {
		return nil
	}

	next := *exec
	e.renewLease(&next)
	stored, err := e.executions.Update(ctx, next)
	if err != nil {
		return err
	}
	*exec = stored
	return nil
}

// step runs the current state's task until it succeeds or its budget is spent,
// and records the resulting transition.
func (e *Engine) step(ctx context.Context, exec *entities.Execution) error {
	task := TaskName(exec.State)
	for {
		attempt := exec.Attempt + 1
		event, payment, taskErr := e.invoke(ctx, *exec, attempt)
		if ctx.Err() != nil {
			// Shutdown, not a task failure: the attempt is not counted.
			return ctx.Err()
		}
		if e.observer != nil {
			e.observer.TaskAttempted(task, taskErr)
		}

		if taskErr == nil {
			if exec.State == entities.ExecutionStateProcessingPayment {
				exec.PaymentStatus = payment.Status
			}
			return e.advance(ctx, exec, event, "")
		}

		exec.Attempt = attempt
		log.Warn().Err(taskErr).Str("execution_id", exec.ID).Str("task", task).
			Int("attempt", attempt).Int("max_attempts", e.policy.MaxAttempts).
			Msg("[workflow][engine] task failed")

		if attempt >= e.policy.MaxAttempts {
			return e.advance(ctx, exec, EventRetriesExhausted, taskErr.Error())
		}
		if err := e.advance(ctx, exec, EventTaskFailed, taskErr.Error()); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.policy.Backoff(attempt)); err != nil {
			return err
		}
	}
}

// taskOutcome is what one task call produced.
type taskOutcome struct {
	event   Event
	payment entities.PaymentResult
	err     error
}

// invoke runs one attempt of the current state's task under the task timeout.
// The attempt ends at the deadline even if the task ignores its context; a result
// arriving later is discarded. Panics count as failures.
func (e *Engine) invoke(ctx context.Context, exec entities.Execution, attempt int) (Event, entities.PaymentResult, error) {
	task := TaskName(exec.State)
	tctx, cancel := context.WithTimeout(ctx, e.policy.TaskTimeout)
	defer cancel()

	tctx, span := e.tracer.Start(tctx, "task."+task)
	defer span.End()
	span.SetAttributes(
		attribute.String("execution.id", exec.ID),
		attribute.String("order.id", exec.OrderID),
		attribute.Int("attempt", attempt),
	)

	done := make(chan taskOutcome, 1)
	go func() {
		done <- e.call(tctx, exec)
	}()

	var out taskOutcome
	select {
	case out = <-done:
		switch {
		case out.err == nil && tctx.Err() != nil:
			out.err = fmt.Errorf("%w: %s", ErrTaskTimeout, task)
		case out.err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && !errors.Is(out.err, ErrTaskTimeout):
			out.err = fmt.Errorf("%w: %s: %v", ErrTaskTimeout, task, out.err)
		}
	case <-tctx.Done():
		out = taskOutcome{err: fmt.Errorf("%w: %s", ErrTaskTimeout, task)}
		log.Warn().Str("execution_id", exec.ID).Str("task", task).Int("attempt", attempt).
			Msg("[workflow][engine] task abandoned at deadline")
	}

	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
	} else if exec.State == entities.ExecutionStateProcessingPayment {
		span.SetAttributes(attribute.String("payment.status", out.payment.Status))
	}
	return out.event, out.payment, out.err
}

// call runs the task bound to exec's state.
func (e *Engine) call(ctx context.Context, exec entities.Execution) (out taskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = taskOutcome{err: fmt.Errorf("%w: %v", ErrTaskPanicked, r)}
		}
	}()

	switch exec.State {
	case entities.ExecutionStateInitializing:
		sub, err := exec.Submission()
		if err != nil {
			return taskOutcome{err: err}
		}
		_, err = e.tasks.InitializeOrder(ctx, sub)
		return taskOutcome{event: EventTaskSucceeded, err: err}
	case entities.ExecutionStateProcessingPayment:
		payment, err := e.tasks.ProcessPayment(ctx, exec.OwnerID, exec.OrderID)
		if err != nil {
			return taskOutcome{payment: payment, err: err}
		}
		return taskOutcome{event: PaymentEvent(payment), payment: payment}
	case entities.ExecutionStateCompleting:
		_, err := e.tasks.CompleteOrder(ctx, exec.OwnerID, exec.OrderID)
		return taskOutcome{event: EventTaskSucceeded, err: err}
	case entities.ExecutionStateCancelling:
		_, err := e.tasks.CancelOrder(ctx, exec.OwnerID, exec.OrderID)
		return taskOutcome{event: EventTaskSucceeded, err: err}
	default:
		return taskOutcome{err: fmt.Errorf("%w: no task for state %q", ErrInvalidTransition, exec.State)}
	}
}

// advance applies event to exec and persists the result with a version check.
func (e *Engine) advance(ctx context.Context, exec *entities.Execution, event Event, errMsg string) error {
	next, err := Transition(exec.State, event)
	if err != nil {
		return err
	}

	now := e.now()
	updated := *exec
	updated.History = append(append([]entities.StateTransition(nil), exec.History...), entities.StateTransition{
		From:  exec.State,
		To:    next,
		Event: string(event),
		Error: errMsg,
		At:    now,
	})
	if next != exec.State && next != entities.ExecutionStateFailed {
		updated.Attempt = 0
	}
	updated.State = next
	updated.LastError = errMsg
	updated.UpdatedAt = now
	if next.IsTerminal() {
		updated.FinishedAt = now
		updated.LeaseOwner = ""
		updated.LeaseExpiresAt = time.Time{}
	} else {
		e.renewLease(&updated)
	}

	stored, err := e.executions.Update(ctx, updated)
	if err != nil {
		log.Error().Err(err).Str("execution_id", exec.ID).Str("from", string(exec.State)).Str("to", string(next)).
			Msg("[workflow][engine] persisting transition failed")
		return err
	}
	if next != exec.State {
		log.Info().Str("execution_id", exec.ID).Str("from", string(exec.State)).Str("to", string(next)).
			Str("event", string(event)).Msg("[workflow][engine] transition")
	}
	*exec = stored
	return nil
}

// renewLease covers one full attempt plus the longest backoff that may follow it.
func (e *Engine) renewLease(exec *entities.Execution) {
	exec.LeaseOwner = e.workerID
	exec.LeaseExpiresAt = e.now().Add(e.policy.TaskTimeout + e.policy.MaxBackoff + time.Minute)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
