package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SourceType identifies what moved points.
type SourceType string

const (
	SourceTypePayment    SourceType = "payment"    // purchased point package
	SourceTypeAnalysis   SourceType = "analysis"   // analysis paid with points
	SourceTypeUnblind    SourceType = "unblind"    // stored result unlocked with points
	SourceTypeCommission SourceType = "commission" // referral commission payout
	SourceTypeAdjustment SourceType = "adjustment" // manual correction
)

// Transaction is one immutable point movement. BalanceAfter snapshots the
// account balance at posting time so statements need no replay.
type Transaction struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	UserID       string       `gorm:"type:text;not null;index"`
	Delta        int64        `gorm:"not null"`
	BalanceAfter int64        `gorm:"not null"`
	SourceType   SourceType   `gorm:"type:text;not null;uniqueIndex:ux_point_txns_source,priority:1"`
	SourceID     string       `gorm:"type:text;not null;uniqueIndex:ux_point_txns_source,priority:2"`
	Memo         string       `gorm:"type:text"`
	CreatedAt    time.Time    `gorm:"not null"`
}

func (Transaction) TableName() string { return "point_transactions" }

var (
	ErrInvalidUser   = errors.New("invalid_user")
	ErrInvalidSource = errors.New("invalid_source")
	ErrInvalidDelta  = errors.New("invalid_delta")
)

// Service posts and lists point transactions.
type Service interface {
	// Record posts a transaction inside the caller's database transaction.
	// It reports false without error when a row for the same source
	// already exists, which makes retried fulfillment harmless.
	Record(ctx context.Context, tx *gorm.DB, txn *Transaction) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Transaction, error)
}
