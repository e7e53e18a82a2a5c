package toss

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unselab/saju/internal/config"
	"github.com/unselab/saju/internal/payment/domain"
)

func newTestAdapter() *Adapter {
	return NewAdapter(config.Config{
		Toss: config.TossConfig{SecretKey: "sk_test", WebhookSecret: "whsec_test"},
	})
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	a := newTestAdapter()
	payload := []byte(`{"eventType":"PAYMENT_STATUS_CHANGED"}`)

	headers := http.Header{}
	headers.Set(signatureHeader, sign("whsec_test", payload))
	assert.NoError(t, a.Verify(payload, headers))
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	a := newTestAdapter()
	payload := []byte(`{"eventType":"PAYMENT_STATUS_CHANGED"}`)

	headers := http.Header{}
	headers.Set(signatureHeader, sign("wrong_secret", payload))
	assert.ErrorIs(t, a.Verify(payload, headers), domain.ErrInvalidSignature)

	assert.ErrorIs(t, a.Verify(payload, http.Header{}), domain.ErrInvalidSignature)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	a := newTestAdapter()
	payload := []byte(`{"amount":1000}`)

	headers := http.Header{}
	headers.Set(signatureHeader, sign("whsec_test", payload))
	assert.ErrorIs(t, a.Verify([]byte(`{"amount":9000}`), headers), domain.ErrInvalidSignature)
}

func TestParseCompletedEvent(t *testing.T) {
	a := newTestAdapter()
	payload := []byte(`{
		"eventType": "PAYMENT_STATUS_CHANGED",
		"data": {
			"paymentKey": "pk-1",
			"orderId": "11111111-2222-3333-4444-555555555555",
			"status": "DONE",
			"totalAmount": 11000
		}
	}`)

	event, err := a.Parse(payload)
	require.NoError(t, err)
	assert.Equal(t, "toss", event.Provider)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", event.OrderID)
	assert.Equal(t, "pk-1", event.PaymentKey)
	assert.Equal(t, int64(11000), event.Amount)
	assert.Equal(t, domain.StatusCompleted, event.Status)
}

func TestParseUnknownStatusIsIgnored(t *testing.T) {
	a := newTestAdapter()
	payload := []byte(`{"data":{"orderId":"o-1","status":"WAITING_FOR_DEPOSIT"}}`)

	_, err := a.Parse(payload)
	assert.ErrorIs(t, err, domain.ErrEventIgnored)
}

func TestParseMalformedPayload(t *testing.T) {
	a := newTestAdapter()

	_, err := a.Parse([]byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = a.Parse([]byte(`{"data":{"status":"DONE"}}`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}
