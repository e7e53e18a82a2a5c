package domain

import "context"

// Repository persists payments. The pending-state filters below are the
// concurrency control for the whole reconciliation path: no locks, only
// conditional reads and writes.
type Repository interface {
	Create(ctx context.Context, payment *Payment) error

	// Get returns ErrPaymentNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Payment, error)

	// FindPending loads the payment only while it is still pending and
	// owned by userID. A nil result is the benign already-processed case.
	FindPending(ctx context.Context, id, userID string) (*Payment, error)

	// FindPendingByID is FindPending without the ownership filter, for
	// webhook events which carry no user.
	FindPendingByID(ctx context.Context, id string) (*Payment, error)

	// ClaimCompleted performs the pending -> completed transition. Only
	// one caller wins; the loser sees false.
	ClaimCompleted(ctx context.Context, id, paymentKey string) (bool, error)

	// MarkTerminal performs pending -> failed|canceled|expired, keeping
	// the gateway-reported reason. A no-op when the payment is already
	// terminal.
	MarkTerminal(ctx context.Context, id string, status Status) error
}
