package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExecutionState is the state of one workflow execution.
//
// INITIALIZING -> PROCESSING_PAYMENT -> COMPLETING | CANCELLING -> COMPLETED | CANCELLED.
// FAILED is reached from any non-terminal state once a task exhausts its retry budget.
type ExecutionState string

const (
	ExecutionStateInitializing      ExecutionState = "INITIALIZING"
	ExecutionStateProcessingPayment ExecutionState = "PROCESSING_PAYMENT"
	ExecutionStateCompleting        ExecutionState = "COMPLETING"
	ExecutionStateCancelling        ExecutionState = "CANCELLING"
	ExecutionStateCompleted         ExecutionState = "COMPLETED"
	ExecutionStateCancelled         ExecutionState = "CANCELLED"
	ExecutionStateFailed            ExecutionState = "FAILED"
)

func (s ExecutionState) IsTerminal() bool {
	switch s {
	case ExecutionStateCompleted, ExecutionStateCancelled, ExecutionStateFailed:
		return true
	}
	return false
}

// executionNamespace scopes the UUIDv5 execution ids derived from idempotency keys.
var executionNamespace = uuid.MustParse("6f1c2d1e-8f0a-4d55-9a3b-2b7e0c4f9e11")

// ExecutionIDFor derives the execution id deterministically from an idempotency key,
// so every delivery of the same order targets the same registry row.
func ExecutionIDFor(idempotencyKey string) string {
	return uuid.NewSHA1(executionNamespace, []byte(idempotencyKey)).String()
}

// StateTransition is one entry of an execution's history.
type StateTransition struct {
	From  ExecutionState `json:"from,omitempty"`
	To    ExecutionState `json:"to"`
	Event string         `json:"event"`
	Error string         `json:"error,omitempty"`
	At    time.Time      `json:"at"`
}

// Execution is the durable record of one order's workflow.
//
// Storage model (DynamoDB):
//   - PK: id (ExecutionIDFor(idempotency_key))
//
// Version is bumped on every write; writers must present the version they read
// (compare-and-swap), so a stale runner can never overwrite a newer state.
type Execution struct {
	ID             string            `json:"id"`
	IdempotencyKey string            `json:"idempotency_key"`
	OrderID        string            `json:"order_id"`
	OwnerID        string            `json:"owner_id"`
	State          ExecutionState    `json:"state"`
	Attempt        int               `json:"attempt"`
	PaymentStatus  string            `json:"payment_status,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
	History        []StateTransition `json:"history,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	FinishedAt     time.Time         `json:"finished_at,omitempty"`
	// LeaseOwner is the worker currently allowed to invoke tasks for this execution.
	LeaseOwner     string            `json:"lease_owner,omitempty"`
	LeaseExpiresAt time.Time         `json:"lease_expires_at,omitempty"`
	Version        int64             `json:"version"`
}

// NewExecution builds the initial record for a submission. The caller registers it
// with a create-if-absent write.
func NewExecution(sub OrderSubmission, now time.Time) Execution {
	key := sub.IdempotencyKey()
	return Execution{
		ID:             ExecutionIDFor(key),
		IdempotencyKey: key,
		OrderID:        sub.ID,
		OwnerID:        sub.OwnerID,
		State:          ExecutionStateInitializing,
		Payload:        sub.Raw,
		History: []StateTransition{{
			To:    ExecutionStateInitializing,
			Event: "execution_started",
			At:    now,
		}},
		StartedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// LeasedByOther reports whether another worker holds a live lease at now.
func (e Execution) LeasedByOther(workerID string, now time.Time) bool {
	return e.LeaseOwner != "" && e.LeaseOwner != workerID && now.Before(e.LeaseExpiresAt)
}

// Submission re-reads the stored payload.
func (e Execution) Submission() (OrderSubmission, error) {
	return ParseOrderSubmission(e.Payload)
}
