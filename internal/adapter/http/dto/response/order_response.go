package response

import (
	"encoding/json"
	"time"

	"orderflow/internal/domain/entities"
)

type OrderResponse struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Status        string          `json:"status"`
	Amount        float64         `json:"amount"`
	PaymentStatus string          `json:"payment_status,omitempty"`
	PaymentID     string          `json:"payment_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func FromOrder(o entities.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		UserID:        o.OwnerID,
		Status:        string(o.Status),
		Amount:        o.Amount,
		PaymentStatus: o.PaymentStatus,
		PaymentID:     o.PaymentID,
		Payload:       o.Payload,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// SubmitOrderResponse acknowledges an accepted submission. The workflow runs
// asynchronously; ExecutionID can be polled on /v1/executions/{id}.
type SubmitOrderResponse struct {
	MessageID   string `json:"message_id"`
	OrderID     string `json:"id"`
	UserID      string `json:"user_id"`
	ExecutionID string `json:"execution_id"`
}

func FromSubmission(messageID string, sub entities.OrderSubmission) SubmitOrderResponse {
	return SubmitOrderResponse{
		MessageID:   messageID,
		OrderID:     sub.ID,
		UserID:      sub.OwnerID,
		ExecutionID: entities.ExecutionIDFor(sub.IdempotencyKey()),
	}
}
