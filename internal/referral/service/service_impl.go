package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/unselab/saju/internal/clock"
	"github.com/unselab/saju/internal/config"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	ledgerdomain "github.com/unselab/saju/internal/ledger/domain"
	"github.com/unselab/saju/internal/referral/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Entitlement entitlementdomain.Service
}

type Service struct {
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	entitlement entitlementdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		cfg:         p.Config,
		db:          p.DB,
		log:         p.Log.Named("referral.service"),
		clock:       p.Clock,
		genID:       p.GenID,
		entitlement: p.Entitlement,
	}
}

func (s *Service) Register(ctx context.Context, referrerID, refereeID string) error {
	if strings.TrimSpace(referrerID) == "" || strings.TrimSpace(refereeID) == "" {
		return domain.ErrInvalidUser
	}
	if referrerID == refereeID {
		return domain.ErrSelfReferral
	}

	// One referral per referee, first registration wins.
	return s.db.WithContext(ctx).Exec(
		`INSERT INTO referrals (
			id, referrer_id, referee_id, commission_rate, status,
			first_purchase_processed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (referee_id) DO NOTHING`,
		s.genID.Generate(),
		referrerID,
		refereeID,
		s.cfg.Referral.CommissionRate,
		domain.StatusPending,
		false,
		s.clock.Now(),
	).Error
}

func (s *Service) ProcessFirstPurchase(ctx context.Context, refereeID, paymentID string, amount int64) (*domain.Payout, error) {
	if strings.TrimSpace(refereeID) == "" {
		return nil, domain.ErrInvalidUser
	}
	if amount <= 0 {
		return nil, nil
	}

	var referral domain.Referral
	err := s.db.WithContext(ctx).
		Where("referee_id = ? AND first_purchase_processed = ?", refereeID, false).
		First(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// The guard flag is the mutual exclusion: only the caller that flips
	// it pays out, so a referee's lifetime carries at most one payout.
	now := s.clock.Now()
	claim := s.db.WithContext(ctx).Exec(
		`UPDATE referrals
		 SET first_purchase_processed = ?, status = ?, processed_at = ?
		 WHERE id = ? AND first_purchase_processed = ?`,
		true,
		domain.StatusCompleted,
		now,
		referral.ID,
		false,
	)
	if claim.Error != nil {
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		return nil, nil
	}

	commission := int64(float64(amount)*referral.CommissionRate) + s.cfg.Referral.FlatBonus
	credited, err := s.entitlement.CreditPoints(ctx, referral.ReferrerID, commission,
		string(ledgerdomain.SourceTypeCommission), paymentID,
		"referral commission")
	if err != nil {
		return nil, err
	}
	if !credited {
		return nil, nil
	}

	s.log.Info("referral commission paid",
		zap.String("referrer_id", referral.ReferrerID),
		zap.String("referee_id", refereeID),
		zap.Int64("commission", commission),
	)
	return &domain.Payout{ReferrerID: referral.ReferrerID, Commission: commission}, nil
}
