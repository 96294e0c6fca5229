package response

import (
	"encoding/json"
	"time"

	"orderflow/internal/domain/entities"
)

type TransitionResponse struct {
	From  string    `json:"from,omitempty"`
	To    string    `json:"to"`
	Event string    `json:"event"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

type ExecutionResponse struct {
	ID            string               `json:"id"`
	OrderID       string               `json:"order_id"`
	UserID        string               `json:"user_id"`
	State         string               `json:"state"`
	Terminal      bool                 `json:"terminal"`
	Attempt       int                  `json:"attempt"`
	PaymentStatus string               `json:"payment_status,omitempty"`
	LastError     string               `json:"last_error,omitempty"`
	StartedAt     time.Time            `json:"started_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	FinishedAt    *time.Time           `json:"finished_at,omitempty"`
	History       []TransitionResponse `json:"history"`
}

func FromExecution(e entities.Execution) ExecutionResponse {
	history := make([]TransitionResponse, 0, len(e.History))
	for _, h := range e.History {
		history = append(history, TransitionResponse{
			From:  string(h.From),
			To:    string(h.To),
			Event: h.Event,
			Error: h.Error,
			At:    h.At,
		})
	}

	var finishedAt *time.Time
	if !e.FinishedAt.IsZero() {
		t := e.FinishedAt
		finishedAt = &t
	}

	return ExecutionResponse{
		ID:            e.ID,
		OrderID:       e.OrderID,
		UserID:        e.OwnerID,
		State:         string(e.State),
		Terminal:      e.State.IsTerminal(),
		Attempt:       e.Attempt,
		PaymentStatus: e.PaymentStatus,
		LastError:     e.LastError,
		StartedAt:     e.StartedAt,
		UpdatedAt:     e.UpdatedAt,
		FinishedAt:    finishedAt,
		History:       history,
	}
}

type DeadLetterResponse struct {
	MessageID    string          `json:"message_id"`
	ReceiveCount int             `json:"receive_count"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	Body         json.RawMessage `json:"body" swaggertype:"object"`
}

func FromDeadLetters(msgs []entities.QueueMessage) []DeadLetterResponse {
	out := make([]DeadLetterResponse, 0, len(msgs))
	for _, m := range msgs {
		body := m.Body
		if !json.Valid(body) {
			// Poison messages may not be JSON; keep them readable.
			b, _ := json.Marshal(string(m.Body))
			body = b
		}
		out = append(out, DeadLetterResponse{
			MessageID:    m.ID,
			ReceiveCount: m.Attempt,
			EnqueuedAt:   m.EnqueuedAt,
			Body:         body,
		})
	}
	return out
}
