package payments

import (
	"context"
	"encoding/json"
	"testing"

	appconfig "orderflow/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMercadoPagoGateway(t *testing.T) {
	t.Run("mock mode needs no token", func(t *testing.T) {
		g, err := NewMercadoPagoGateway(appconfig.Payment{Mock: true})
		require.NoError(t, err)
		assert.True(t, g.mockMode)
	})

	t.Run("live mode requires a token", func(t *testing.T) {
		g, err := NewMercadoPagoGateway(appconfig.Payment{})
		assert.ErrorIs(t, err, ErrMissingMercadoPagoAccessToken)
		assert.Nil(t, g)
	})
}

func TestMockGateway_CreatePayment(t *testing.T) {
	g := NewMockGateway(100)

	id, status, resp, err := g.CreatePayment(context.Background(), json.RawMessage(`{"transaction_amount":99.9,"external_reference":"u1:o1"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "approved", status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp, &body))
	assert.Equal(t, "u1:o1", body["external_reference"])
	assert.Equal(t, "accredited", body["status_detail"])

	id2, status, _, err := g.CreatePayment(context.Background(), json.RawMessage(`{"transaction_amount":100.01}`))
	require.NoError(t, err)
	assert.Equal(t, "rejected", status)
	assert.NotEqual(t, id, id2)
}

func TestMockGateway_Errors(t *testing.T) {
	g := NewMockGateway(0)

	_, _, _, err := g.CreatePayment(context.Background(), json.RawMessage(`not json`))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err = g.CreatePayment(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)

	var unset *MercadoPagoGateway
	_, _, _, err = unset.CreatePayment(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMercadoPagoGatewayNotConfigured)
}
