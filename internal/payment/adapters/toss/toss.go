// Package toss implements the Toss Payments adapter: confirm over the
// payments API with basic auth, webhooks signed with a base64 HMAC-SHA256
// of the raw body.
package toss

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/unselab/saju/internal/config"
	"github.com/unselab/saju/internal/payment/domain"
)

const (
	confirmURL      = "https://api.tosspayments.com/v1/payments/confirm"
	signatureHeader = "Toss-Signature"
)

type Adapter struct {
	secretKey     string
	webhookSecret string
	client        *http.Client
}

func NewAdapter(cfg config.Config) *Adapter {
	return &Adapter{
		secretKey:     cfg.Toss.SecretKey,
		webhookSecret: cfg.Toss.WebhookSecret,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Adapter) Provider() string { return "toss" }

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type confirmResponse struct {
	Status  string `json:"status"`
	Method  string `json:"method"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *Adapter) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (domain.ConfirmResult, error) {
	body, err := json.Marshal(confirmRequest{PaymentKey: paymentKey, OrderID: orderID, Amount: amount})
	if err != nil {
		return domain.ConfirmResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, confirmURL, bytes.NewReader(body))
	if err != nil {
		return domain.ConfirmResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(a.secretKey+":")))

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.ConfirmResult{}, err
	}
	defer resp.Body.Close()

	var parsed confirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.ConfirmResult{}, err
	}

	if resp.StatusCode != http.StatusOK || parsed.Status != "DONE" {
		return domain.ConfirmResult{
			OK:           false,
			ErrorCode:    parsed.Code,
			ErrorMessage: parsed.Message,
		}, nil
	}
	return domain.ConfirmResult{OK: true, Method: parsed.Method}, nil
}

func (a *Adapter) Verify(payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(signatureHeader))
	if signature == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type webhookEvent struct {
	EventType string `json:"eventType"`
	Data      struct {
		PaymentKey  string `json:"paymentKey"`
		OrderID     string `json:"orderId"`
		Status      string `json:"status"`
		TotalAmount int64  `json:"totalAmount"`
	} `json:"data"`
}

func (a *Adapter) Parse(payload []byte) (*domain.Event, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.Data.OrderID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	status, err := mapStatus(event.Data.Status)
	if err != nil {
		return nil, err
	}
	return &domain.Event{
		Provider:   a.Provider(),
		OrderID:    event.Data.OrderID,
		PaymentKey: event.Data.PaymentKey,
		Amount:     event.Data.TotalAmount,
		Status:     status,
	}, nil
}

func mapStatus(s string) (domain.Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DONE":
		return domain.StatusCompleted, nil
	case "CANCELED", "PARTIAL_CANCELED":
		return domain.StatusCanceled, nil
	case "ABORTED":
		return domain.StatusFailed, nil
	case "EXPIRED":
		return domain.StatusExpired, nil
	default:
		return "", fmt.Errorf("%w: status %q", domain.ErrEventIgnored, s)
	}
}
