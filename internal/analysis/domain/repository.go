package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
)

// Repository persists analysis records and vouchers.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id snowflake.ID) (*Record, error)
	// MarkUnblinded flips is_blinded only while it is still set, so two
	// concurrent unlocks charge once. Reports whether this call won.
	MarkUnblinded(ctx context.Context, id snowflake.ID, pointsPaid int64) (bool, error)
	// RedeemVoucher claims one unredeemed voucher of the given product
	// type. Reports false when the user holds none.
	RedeemVoucher(ctx context.Context, userID string, productType entitlementdomain.ProductTier, now time.Time) (bool, error)
	// DeleteExpired removes records past their expires_at.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
