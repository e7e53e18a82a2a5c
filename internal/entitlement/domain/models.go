package domain

import (
	"errors"
	"fmt"
	"time"
)

// ProductTier selects the depth of an analysis and its point cost.
type ProductTier string

const (
	TierBasic   ProductTier = "basic"
	TierDeep    ProductTier = "deep"
	TierPremium ProductTier = "premium"
)

// TierCosts is the fixed point price per tier.
var TierCosts = map[ProductTier]int64{
	TierBasic:   300,
	TierDeep:    500,
	TierPremium: 1000,
}

// ValidTier reports whether t names a sellable tier.
func ValidTier(t ProductTier) bool {
	_, ok := TierCosts[t]
	return ok
}

// Unlimited is the sentinel reported for privileged users in place of a
// numeric quota.
const Unlimited = -1

// PointAccount is a user's spendable point balance. The balance is only
// mutated through conditional updates, so it can never go negative.
type PointAccount struct {
	UserID    string    `gorm:"primaryKey;type:text"`
	Balance   int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (PointAccount) TableName() string { return "point_accounts" }

// FreeUsage is one user's free-analysis counter for one period bucket.
type FreeUsage struct {
	UserID    string    `gorm:"primaryKey;type:text"`
	PeriodKey string    `gorm:"primaryKey;type:text"`
	Count     int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (FreeUsage) TableName() string { return "free_usages" }

// PeriodKey buckets a timestamp into the daily quota period. Quota state is
// keyed by (user, period) rather than an ambient "today" so tests can pin
// arbitrary dates.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// FreeAnalysisStatus reports quota standing.
type FreeAnalysisStatus struct {
	CanUse    bool `json:"can_use"`
	Remaining int  `json:"remaining"`
	Limit     int  `json:"limit"`
}

// AccessMode says how an analysis request was paid for.
type AccessMode string

const (
	AccessFree       AccessMode = "free"
	AccessPoints     AccessMode = "points"
	AccessPrivileged AccessMode = "privileged"
)

// AccessDecision is the outcome of gating one analysis request. Unblinded
// is true only for point payers and privileged users; a free analysis still
// gets the teaser redaction.
type AccessDecision struct {
	Mode      AccessMode
	Unblinded bool
	Cost      int64
}

// InsufficientPointsError carries enough structure for the caller to offer
// a top-up.
type InsufficientPointsError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: balance %d, required %d", e.Balance, e.Required)
}

// Shortage is the amount missing from the balance.
func (e *InsufficientPointsError) Shortage() int64 {
	return e.Required - e.Balance
}

var (
	ErrInvalidUser   = errors.New("invalid_user")
	ErrInvalidTier   = errors.New("invalid_tier")
	ErrInvalidAmount = errors.New("invalid_amount")
)
