// Package workflow drives one order execution through its task sequence.
//
// The state machine is an explicit transition function over
// entities.ExecutionState; the Engine feeds it events produced by task
// invocations and persists every transition in the execution registry.
package workflow

import (
	"errors"
	"fmt"

	"orderflow/internal/domain/entities"
)

// Event is something that happened to an execution.
type Event string

const (
	EventStarted          Event = "execution_started"
	EventTaskSucceeded    Event = "task_succeeded"
	EventPaymentApproved  Event = "payment_approved"
	EventPaymentDeclined  Event = "payment_declined"
	EventTaskFailed       Event = "task_failed"
	EventRetriesExhausted Event = "retries_exhausted"
)

var (
	ErrTerminalState     = errors.New("execution is in a terminal state")
	ErrInvalidTransition = errors.New("invalid transition")
)

// Transition returns the state reached from s on event e.
//
// The empty state stands for "not started yet" and only accepts EventStarted.
// Terminal states accept nothing.
func Transition(s entities.ExecutionState, e Event) (entities.ExecutionState, error) {
	if s.IsTerminal() {
		return s, fmt.Errorf("%w: %s on %s", ErrTerminalState, e, s)
	}

	switch e {
	case EventStarted:
		if s == "" {
			return entities.ExecutionStateInitializing, nil
		}
	case EventTaskFailed:
		if s != "" {
			return s, nil
		}
	case EventRetriesExhausted:
		if s != "" {
			return entities.ExecutionStateFailed, nil
		}
	case EventTaskSucceeded:
		switch s {
		case entities.ExecutionStateInitializing:
			return entities.ExecutionStateProcessingPayment, nil
		case entities.ExecutionStateCompleting:
			return entities.ExecutionStateCompleted, nil
		case entities.ExecutionStateCancelling:
			return entities.ExecutionStateCancelled, nil
		}
	case EventPaymentApproved:
		if s == entities.ExecutionStateProcessingPayment {
			return entities.ExecutionStateCompleting, nil
		}
	case EventPaymentDeclined:
		if s == entities.ExecutionStateProcessingPayment {
			return entities.ExecutionStateCancelling, nil
		}
	}
	return s, fmt.Errorf("%w: %s on %q", ErrInvalidTransition, e, s)
}

// PaymentEvent turns a payment result into the branch event. Only an exact "ok"
// approves; anything else, including an empty status, declines.
func PaymentEvent(r entities.PaymentResult) Event {
	if r.Approved() {
		return EventPaymentApproved
	}
	return EventPaymentDeclined
}

// TaskName names the task run while an execution sits in s.
func TaskName(s entities.ExecutionState) string {
	switch s {
	case entities.ExecutionStateInitializing:
		return "initialize_order"
	case entities.ExecutionStateProcessingPayment:
		return "process_payment"
	case entities.ExecutionStateCompleting:
		return "complete_order"
	case entities.ExecutionStateCancelling:
		return "cancel_order"
	default:
		return ""
	}
}
