package billing

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload собирает валидный Stripe-Signature заголовок для payload.
func signPayload(payload []byte, secret string, ts time.Time) string {
	sig := webhook.ComputeSignature(ts, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func TestVerifyWebhook_ValidSignature(t *testing.T) {
	t.Parallel()

	gw := NewStripeGateway("sk_test_x", testWebhookSecret)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":9900,"currency":"eur","metadata":{"user_id":"u1","plan_id":"standard"}}}}`)

	event, err := gw.VerifyWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))

	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventPaymentSucceeded, event.Type)
	assert.Contains(t, string(event.Data), `"pi_1"`)
}

func TestVerifyWebhook_InvalidSignature(t *testing.T) {
	t.Parallel()

	gw := NewStripeGateway("sk_test_x", testWebhookSecret)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{}}}`)

	// Подпись другим секретом
	_, err := gw.VerifyWebhook(payload, signPayload(payload, "whsec_other", time.Now()))
	assert.Error(t, err)

	// Подпись валидна, но тело подменено
	header := signPayload(payload, testWebhookSecret, time.Now())
	tampered := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"amount":1}}}`)
	_, err = gw.VerifyWebhook(tampered, header)
	assert.Error(t, err)

	// Протухшая метка времени
	_, err = gw.VerifyWebhook(payload, signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
	assert.Error(t, err)
}
