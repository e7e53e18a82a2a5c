// Package domain contains the referral commission model. A referral pays
// out once, on the referee's first completed purchase, guarded by the
// first_purchase_processed flag.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the referral lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Referral links a referrer to the user they brought in. One row per
// referee.
type Referral struct {
	ID                     snowflake.ID `gorm:"primaryKey"`
	ReferrerID             string       `gorm:"type:text;not null;index"`
	RefereeID              string       `gorm:"type:text;not null;uniqueIndex"`
	CommissionRate         float64      `gorm:"not null"`
	Status                 Status       `gorm:"type:text;not null"`
	FirstPurchaseProcessed bool         `gorm:"not null;default:false"`
	ProcessedAt            *time.Time
	CreatedAt              time.Time `gorm:"not null"`
}

func (Referral) TableName() string { return "referrals" }

// Payout reports one commission credit.
type Payout struct {
	ReferrerID string
	Commission int64
}

var (
	ErrInvalidUser  = errors.New("invalid_user")
	ErrSelfReferral = errors.New("self_referral")
)

// Service registers referrals and pays commissions.
type Service interface {
	// Register records that referrer brought in referee. Duplicate
	// registrations for the same referee are no-ops.
	Register(ctx context.Context, referrerID, refereeID string) error

	// ProcessFirstPurchase pays the commission for the referee's first
	// completed purchase. Returns nil payout when the referee has no
	// pending referral or the payout already happened.
	ProcessFirstPurchase(ctx context.Context, refereeID, paymentID string, amount int64) (*Payout, error)
}
