package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository performs the conditional writes behind the ledger. Every
// mutation re-checks its precondition at write time so concurrent requests
// cannot produce a negative balance or a lost update.
type Repository interface {
	FreeUsageCount(ctx context.Context, db *gorm.DB, userID, periodKey string) (int, error)
	IncrementFreeUsage(ctx context.Context, db *gorm.DB, userID, periodKey string, now time.Time) error

	Balance(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	// TryDeduct subtracts cost only while the balance covers it.
	TryDeduct(ctx context.Context, db *gorm.DB, userID string, cost int64, now time.Time) (bool, error)
	// Credit upserts the account and returns the balance after the credit.
	Credit(ctx context.Context, db *gorm.DB, userID string, amount int64, now time.Time) (int64, error)
}
