// Package stripe implements the Stripe adapter. Webhook signatures use the
// t=...,v1=... composite header: a hex HMAC-SHA256 over "timestamp.body",
// accepted only within a five minute replay window.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/unselab/saju/internal/clock"
	"github.com/unselab/saju/internal/config"
	"github.com/unselab/saju/internal/payment/domain"
)

const (
	confirmURLBase  = "https://api.stripe.com/v1/payment_intents"
	signatureHeader = "Stripe-Signature"

	// tolerance bounds the t= timestamp against replayed deliveries.
	tolerance = 5 * time.Minute
)

type Adapter struct {
	secretKey     string
	webhookSecret string
	clock         clock.Clock
	client        *http.Client
}

func NewAdapter(cfg config.Config, clk clock.Clock) *Adapter {
	return &Adapter{
		secretKey:     cfg.Stripe.SecretKey,
		webhookSecret: cfg.Stripe.WebhookSecret,
		clock:         clk,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Adapter) Provider() string { return "stripe" }

type intentResponse struct {
	Status string `json:"status"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	PaymentMethodTypes []string `json:"payment_method_types"`
}

func (a *Adapter) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (domain.ConfirmResult, error) {
	form := url.Values{}
	endpoint := fmt.Sprintf("%s/%s/confirm", confirmURLBase, url.PathEscape(paymentKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.ConfirmResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+a.secretKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.ConfirmResult{}, err
	}
	defer resp.Body.Close()

	var parsed intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.ConfirmResult{}, err
	}

	if resp.StatusCode != http.StatusOK || parsed.Status != "succeeded" {
		return domain.ConfirmResult{
			OK:           false,
			ErrorCode:    parsed.Error.Code,
			ErrorMessage: parsed.Error.Message,
		}, nil
	}

	method := ""
	if len(parsed.PaymentMethodTypes) > 0 {
		method = parsed.PaymentMethodTypes[0]
	}
	return domain.ConfirmResult{OK: true, Method: method}, nil
}

func (a *Adapter) Verify(payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get(signatureHeader))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	age := a.clock.Now().Sub(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type paymentIntent struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

func (a *Adapter) Parse(payload []byte) (*domain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	var status domain.Status
	switch strings.TrimSpace(event.Type) {
	case "payment_intent.succeeded":
		status = domain.StatusCompleted
	case "payment_intent.payment_failed":
		status = domain.StatusFailed
	case "payment_intent.canceled":
		status = domain.StatusCanceled
	default:
		return nil, domain.ErrEventIgnored
	}

	var intent paymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	orderID := strings.TrimSpace(intent.Metadata["order_id"])
	if orderID == "" {
		return nil, domain.ErrInvalidPayload
	}

	return &domain.Event{
		Provider:   a.Provider(),
		OrderID:    orderID,
		PaymentKey: intent.ID,
		Amount:     intent.Amount,
		Status:     status,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid signature header")
	}
	return timestamp, signatures, nil
}
