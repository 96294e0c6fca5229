package request

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrEmptyOrderPayload = errors.New("payload is required")
)

// UpdateOrderRequest replaces the line-item payload of an order still in flight.
type UpdateOrderRequest struct {
	Payload json.RawMessage `json:"payload" swaggertype:"object"`
}

func (r UpdateOrderRequest) Validate() error {
	p := strings.TrimSpace(string(r.Payload))
	if p == "" || p == "null" {
		return ErrEmptyOrderPayload
	}
	return nil
}
