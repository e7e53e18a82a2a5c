package repository

import (
	"context"
	"errors"

	"github.com/unselab/saju/internal/clock"
	"github.com/unselab/saju/internal/payment/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Clock clock.Clock
}

type repo struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewRepository(p Params) domain.Repository {
	return &repo{db: p.DB, clock: p.Clock}
}

var _ domain.Repository = (*repo)(nil)

func (r *repo) Create(ctx context.Context, payment *domain.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repo) Get(ctx context.Context, id string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindPending(ctx context.Context, id, userID string) (*domain.Payment, error) {
	return r.findPending(ctx, map[string]any{"id": id, "user_id": userID, "status": domain.StatusPending})
}

func (r *repo) FindPendingByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.findPending(ctx, map[string]any{"id": id, "status": domain.StatusPending})
}

func (r *repo) findPending(ctx context.Context, filter map[string]any) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).Where(filter).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ClaimCompleted(ctx context.Context, id, paymentKey string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, payment_key = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusCompleted,
		paymentKey,
		r.clock.Now(),
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkTerminal(ctx context.Context, id string, status domain.Status) error {
	if !status.Terminal() {
		return domain.ErrEventIgnored
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status,
		r.clock.Now(),
		id,
		domain.StatusPending,
	).Error
}
