package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/unselab/saju/internal/analysis/domain"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	"gorm.io/gorm"
)

var _ domain.Repository = (*repo)(nil)

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, record *domain.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repo) Get(ctx context.Context, id snowflake.ID) (*domain.Record, error) {
	var record domain.Record
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) MarkUnblinded(ctx context.Context, id snowflake.ID, pointsPaid int64) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE analyses
		 SET is_blinded = ?, points_paid = points_paid + ?
		 WHERE id = ? AND is_blinded = ?`,
		false,
		pointsPaid,
		id,
		true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) RedeemVoucher(ctx context.Context, userID string, productType entitlementdomain.ProductTier, now time.Time) (bool, error) {
	var voucher domain.Voucher
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_type = ? AND redeemed = ?", userID, productType, false).
		Order("created_at ASC").
		First(&voucher).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Claim is re-checked at write time so a voucher is never spent twice.
	res := r.db.WithContext(ctx).Exec(
		`UPDATE vouchers SET redeemed = ?, redeemed_at = ? WHERE id = ? AND redeemed = ?`,
		true,
		now,
		voucher.ID,
		false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.Record{})
	return res.RowsAffected, res.Error
}
