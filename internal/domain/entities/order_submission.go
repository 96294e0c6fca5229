package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidSubmission        = errors.New("invalid order submission")
	ErrSubmissionMissingID      = errors.New("order submission missing id")
	ErrSubmissionMissingOwnerID = errors.New("order submission missing user_id")
)

// OrderSubmission is the "new order" event carried by the ingestion queue.
//
// Shape: { id, user_id, <line items/payload> }. Only id, user_id and amount are
// read; Raw keeps the full body so it can be stored untouched.
type OrderSubmission struct {
	ID      string          `json:"id"`
	OwnerID string          `json:"user_id"`
	Amount  float64         `json:"amount"`
	Raw     json.RawMessage `json:"-"`
}

// IdempotencyKey identifies the single workflow execution allowed for this order.
func (s OrderSubmission) IdempotencyKey() string {
	return IdempotencyKey(s.OwnerID, s.ID)
}

// IdempotencyKey builds the key from the order identity (owner-id, order-id).
func IdempotencyKey(ownerID, orderID string) string {
	return ownerID + ":" + orderID
}

// ParseOrderSubmission decodes and validates a queue payload.
func ParseOrderSubmission(raw []byte) (OrderSubmission, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || !json.Valid(raw) {
		return OrderSubmission{}, ErrInvalidSubmission
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return OrderSubmission{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	id, err := stringField(fields, "id")
	if err != nil {
		return OrderSubmission{}, err
	}
	if id == "" {
		return OrderSubmission{}, ErrSubmissionMissingID
	}
	ownerID, err := stringField(fields, "user_id")
	if err != nil {
		return OrderSubmission{}, err
	}
	if ownerID == "" {
		return OrderSubmission{}, ErrSubmissionMissingOwnerID
	}
	amount, err := amountField(fields)
	if err != nil {
		return OrderSubmission{}, err
	}

	return OrderSubmission{
		ID:      id,
		OwnerID: ownerID,
		Amount:  amount,
		Raw:     append(json.RawMessage(nil), raw...),
	}, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	v, ok := fields[key]
	if !ok || string(v) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidSubmission, key)
	}
	return strings.TrimSpace(s), nil
}

// amountField accepts both numbers and numeric strings; absence means zero.
func amountField(fields map[string]json.RawMessage) (float64, error) {
	v, ok := fields["amount"]
	if !ok || string(v) == "null" {
		return 0, nil
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: amount must be numeric", ErrInvalidSubmission)
}
