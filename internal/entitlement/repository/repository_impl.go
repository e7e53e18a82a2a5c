package repository

import (
	"context"
	"time"

	"github.com/unselab/saju/internal/entitlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FreeUsageCount(ctx context.Context, db *gorm.DB, userID, periodKey string) (int, error) {
	var row struct{ Count int }
	err := db.WithContext(ctx).Raw(
		`SELECT count FROM free_usages WHERE user_id = ? AND period_key = ? LIMIT 1`,
		userID,
		periodKey,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

func (r *repo) IncrementFreeUsage(ctx context.Context, db *gorm.DB, userID, periodKey string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO free_usages (user_id, period_key, count, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT (user_id, period_key)
		 DO UPDATE SET count = free_usages.count + 1, updated_at = ?`,
		userID,
		periodKey,
		now,
		now,
	).Error
}

func (r *repo) Balance(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var row struct{ Balance int64 }
	err := db.WithContext(ctx).Raw(
		`SELECT balance FROM point_accounts WHERE user_id = ? LIMIT 1`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Balance, nil
}

// TryDeduct is the atomicity point: the balance precondition lives in the
// WHERE clause, so two concurrent deductions can never both win on a
// balance that covers only one.
func (r *repo) TryDeduct(ctx context.Context, db *gorm.DB, userID string, cost int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE point_accounts
		 SET balance = balance - ?, updated_at = ?
		 WHERE user_id = ? AND balance >= ?`,
		cost,
		now,
		userID,
		cost,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Credit(ctx context.Context, db *gorm.DB, userID string, amount int64, now time.Time) (int64, error) {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO point_accounts (user_id, balance, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id)
		 DO UPDATE SET balance = point_accounts.balance + ?, updated_at = ?`,
		userID,
		amount,
		now,
		amount,
		now,
	).Error
	if err != nil {
		return 0, err
	}
	return r.Balance(ctx, db, userID)
}
