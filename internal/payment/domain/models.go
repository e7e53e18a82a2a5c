// Package domain holds the payment state machine and the contracts the
// reconciliation path depends on. Payments move pending -> completed |
// failed | canceled | expired; terminal states never transition again.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Type selects what a payment buys and therefore how it is fulfilled.
type Type string

const (
	TypePoint        Type = "point"
	TypeSubscription Type = "subscription"
	TypeAnalysis     Type = "analysis"
	TypeAddon        Type = "addon"
	TypeQR           Type = "qr"
)

// ValidType reports whether t is a known payment type.
func ValidType(t Type) bool {
	switch t {
	case TypePoint, TypeSubscription, TypeAnalysis, TypeAddon, TypeQR:
		return true
	}
	return false
}

// Status is the payment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s != StatusPending }

// Payment is one checkout. The id doubles as the gateway order id and is
// always a UUID.
type Payment struct {
	ID          string    `gorm:"primaryKey;type:text"`
	UserID      string    `gorm:"type:text;not null;index"`
	Type        Type      `gorm:"type:text;not null"`
	ReferenceID string    `gorm:"type:text"`
	Amount      int64     `gorm:"not null"`
	Currency    string    `gorm:"type:text;not null"`
	Status      Status    `gorm:"type:text;not null;index"`
	Provider    string    `gorm:"type:text;not null"`
	PaymentKey  string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// PointPackage is a sellable bundle; Bonus is credited on top of Points.
type PointPackage struct {
	Points int64
	Bonus  int64
}

// PointPackages is the catalog, keyed by the payment's reference id.
var PointPackages = map[string]PointPackage{
	"point_basic":   {Points: 1000, Bonus: 100},
	"point_plus":    {Points: 3000, Bonus: 450},
	"point_premium": {Points: 5000, Bonus: 1000},
}

// ConfirmResult is the gateway's answer to the confirm step.
type ConfirmResult struct {
	OK           bool
	Method       string
	ErrorCode    string
	ErrorMessage string
}

// Event is a normalized gateway webhook event.
type Event struct {
	Provider   string
	OrderID    string
	PaymentKey string
	Amount     int64
	Status     Status
}

// Adapter is one payment provider: the confirm call plus webhook
// verification and parsing. Verify must use a constant-time comparison and
// must be called before Parse output is acted on.
type Adapter interface {
	Provider() string
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (ConfirmResult, error)
	Verify(payload []byte, headers http.Header) error
	Parse(payload []byte) (*Event, error)
}

// ReconcileOutcome reports how a reconciliation call ended.
type ReconcileOutcome string

const (
	// OutcomeFulfilled means this call won the pending claim and ran
	// fulfillment.
	OutcomeFulfilled ReconcileOutcome = "fulfilled"
	// OutcomeAlreadyProcessed means another call got there first; benign.
	OutcomeAlreadyProcessed ReconcileOutcome = "already_processed"
)

// Service reconciles payments and runs fulfillment exactly once each.
type Service interface {
	// CreateCheckout opens a pending payment and returns its order id.
	CreateCheckout(ctx context.Context, userID string, paymentType Type, referenceID string, amount int64, currency, provider string) (*Payment, error)

	// Reconcile handles the redirect confirmation. Duplicate calls are
	// benign no-ops.
	Reconcile(ctx context.Context, userID, paymentKey, orderID string, amount int64) (ReconcileOutcome, error)

	// HandleEvent applies one verified webhook event.
	HandleEvent(ctx context.Context, event Event) (ReconcileOutcome, error)

	// Get returns one payment scoped to its owner. Other users' rows read
	// as ErrPaymentNotFound.
	Get(ctx context.Context, userID, orderID string) (*Payment, error)
}

// WebhookService ingests raw provider webhooks.
type WebhookService interface {
	// Ingest verifies, parses and applies one webhook delivery. A
	// signature failure mutates nothing.
	Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

var (
	ErrInvalidOrderID     = errors.New("invalid_order_id")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidType        = errors.New("invalid_payment_type")
	ErrAmountMismatch     = errors.New("amount_mismatch")
	ErrPaymentNotFound    = errors.New("payment_not_found")
	ErrConfirmationFailed = errors.New("confirmation_failed")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrEventIgnored       = errors.New("event_ignored")
	ErrProviderNotFound   = errors.New("provider_not_found")
)
