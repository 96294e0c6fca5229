package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	appconfig "orderflow/internal/config"
	"orderflow/internal/usecase/interfaces"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/rs/zerolog/log"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")
var ErrMercadoPagoGatewayNotConfigured = errors.New("mercado pago gateway not configured")

const (
	providerStatusApproved = "approved"
	providerStatusRejected = "rejected"
)

// MercadoPagoGateway authorizes order amounts with Mercado Pago. In mock mode it
// simulates the provider: every payment is approved unless its amount exceeds
// declineAbove (when set), in which case it is rejected.
type MercadoPagoGateway struct {
	client       payment.Client
	mockMode     bool
	declineAbove float64
	seq          atomic.Int64
}

var _ interfaces.IPaymentGateway = (*MercadoPagoGateway)(nil)

func NewMercadoPagoGateway(c appconfig.Payment) (*MercadoPagoGateway, error) {
	if c.Mock {
		log.Printf("[payment][gateway] mock mode enabled decline_above=%v", c.DeclineAbove)
		return NewMockGateway(c.DeclineAbove), nil
	}

	if c.AccessToken == "" {
		log.Printf("[payment][gateway] missing MERCADOPAGO_ACCESS_TOKEN")
		return nil, ErrMissingMercadoPagoAccessToken
	}

	cfg, err := config.New(c.AccessToken)
	if err != nil {
		log.Printf("[payment][gateway] failed creating sdk config err=%v", err)
		return nil, err
	}
	log.Printf("[payment][gateway] Mercado Pago client initialized")

	return &MercadoPagoGateway{client: payment.NewClient(cfg)}, nil
}

// NewMockGateway returns the provider simulator. declineAbove <= 0 approves everything.
func NewMockGateway(declineAbove float64) *MercadoPagoGateway {
	return &MercadoPagoGateway{mockMode: true, declineAbove: declineAbove}
}

func (g *MercadoPagoGateway) CreatePayment(ctx context.Context, requestPayload json.RawMessage) (providerPaymentID string, providerStatus string, providerResponse json.RawMessage, err error) {
	if g != nil && g.mockMode {
		return g.simulate(ctx, requestPayload)
	}

	if g == nil || g.client == nil {
		log.Printf("[payment][gateway] gateway not configured")
		return "", "", nil, ErrMercadoPagoGatewayNotConfigured
	}
	log.Printf("[payment][gateway] create start payload_len=%d", len(requestPayload))

	var req payment.Request
	if err := json.Unmarshal(requestPayload, &req); err != nil {
		log.Printf("[payment][gateway] payload unmarshal failed err=%v", err)
		return "", "", nil, err
	}

	resp, err := g.client.Create(ctx, req)
	if err != nil {
		log.Printf("[payment][gateway] sdk create failed err=%v", err)
		return "", "", nil, err
	}

	b, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[payment][gateway] response marshal failed err=%v", err)
		return "", "", nil, err
	}
	log.Printf("[payment][gateway] create success provider_payment_id=%d provider_status=%s", resp.ID, resp.Status)

	return fmt.Sprintf("%d", resp.ID), resp.Status, b, nil
}

func (g *MercadoPagoGateway) simulate(ctx context.Context, requestPayload json.RawMessage) (string, string, json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return "", "", nil, err
	}
	log.Printf("[payment][gateway] mock create start payload_len=%d", len(requestPayload))

	var req payment.Request
	if len(requestPayload) > 0 {
		if err := json.Unmarshal(requestPayload, &req); err != nil {
			return "", "", nil, fmt.Errorf("mock gateway: %w", err)
		}
	}

	status, detail := providerStatusApproved, "accredited"
	if g.declineAbove > 0 && req.TransactionAmount > g.declineAbove {
		status, detail = providerStatusRejected, "cc_rejected_insufficient_amount"
	}

	now := time.Now().UTC()
	id := strconv.FormatInt(now.UnixNano()+g.seq.Add(1), 10)
	b, err := json.Marshal(map[string]any{
		"id":                 id,
		"status":             status,
		"status_detail":      detail,
		"transaction_amount": req.TransactionAmount,
		"external_reference": req.ExternalReference,
		"date_created":       now.Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[payment][gateway] mock response marshal failed err=%v", err)
		return "", "", nil, err
	}

	log.Printf("[payment][gateway] mock create done provider_payment_id=%s provider_status=%s", id, status)
	return id, status, b, nil
}
