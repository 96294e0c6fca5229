package entities

// PaymentStatusOK is the only payment status that completes an order.
// Every other value, including the empty string, routes to cancellation.
const PaymentStatusOK = "ok"

const PaymentStatusDeclined = "declined"

// PaymentResult is produced by the Process Payment task and consumed immediately
// by the engine's branch decision. Its status is also written on the order row.
type PaymentResult struct {
	Status    string `json:"status"`
	PaymentID string `json:"payment_id,omitempty"`
	// Recorded is true when the outcome was read back from an earlier invocation
	// instead of a new authorization.
	Recorded bool `json:"recorded,omitempty"`
}

// Approved is an exact match on "ok".
func (r PaymentResult) Approved() bool {
	return r.Status == PaymentStatusOK
}

// PaymentStatusFromProvider maps a gateway status onto the audit status stored on the order.
func PaymentStatusFromProvider(providerStatus string) string {
	switch providerStatus {
	case "approved":
		return PaymentStatusOK
	case "rejected":
		return PaymentStatusDeclined
	default:
		return providerStatus
	}
}
