// Package domain contains persistence models for memberships.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the subscription lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

// MemberTier is the membership level granted by an active subscription.
type MemberTier string

const (
	TierFree    MemberTier = "free"
	TierMember  MemberTier = "member"
	TierPremium MemberTier = "premium"
)

// Subscription is one user's membership agreement. A user holds at most
// one active row; renewals extend ExpiresAt rather than creating siblings.
type Subscription struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    string       `gorm:"type:text;not null;uniqueIndex"`
	Tier      MemberTier   `gorm:"type:text;not null"`
	Status    Status       `gorm:"type:text;not null"`
	StartedAt time.Time    `gorm:"not null"`
	ExpiresAt time.Time    `gorm:"not null;index"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

// MemberProfile mirrors the current tier onto a per-user row the serving
// layer can read without joining subscriptions.
type MemberProfile struct {
	UserID    string     `gorm:"primaryKey;type:text"`
	Tier      MemberTier `gorm:"type:text;not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (MemberProfile) TableName() string { return "member_profiles" }

var ErrInvalidUser = errors.New("invalid_user")

// Service manages memberships driven by payment fulfillment.
type Service interface {
	// ActivateMonth grants or extends a membership by one month and
	// mirrors the tier onto the member profile.
	ActivateMonth(ctx context.Context, userID string, tier MemberTier) (*Subscription, error)

	// ActiveFor returns the user's active subscription, or nil when the
	// user has none or it has lapsed.
	ActiveFor(ctx context.Context, userID string) (*Subscription, error)
}
