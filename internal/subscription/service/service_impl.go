package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/unselab/saju/internal/clock"
	"github.com/unselab/saju/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		clock: p.Clock,
		genID: p.GenID,
	}
}

func (s *Service) ActivateMonth(ctx context.Context, userID string, tier domain.MemberTier) (*domain.Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUser
	}
	if tier == "" || tier == domain.TierFree {
		tier = domain.TierMember
	}

	now := s.clock.Now()
	var sub domain.Subscription

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&sub, "user_id = ?", userID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = domain.Subscription{
				ID:        s.genID.Generate(),
				UserID:    userID,
				Tier:      tier,
				Status:    domain.StatusActive,
				StartedAt: now,
				ExpiresAt: now.AddDate(0, 1, 0),
				UpdatedAt: now,
			}
			if err := tx.Create(&sub).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// A renewal while still active extends from the current
			// expiry; a lapsed one restarts from now.
			base := sub.ExpiresAt
			if base.Before(now) {
				base = now
				sub.StartedAt = now
			}
			sub.Tier = tier
			sub.Status = domain.StatusActive
			sub.ExpiresAt = base.AddDate(0, 1, 0)
			sub.UpdatedAt = now
			if err := tx.Save(&sub).Error; err != nil {
				return err
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tier", "updated_at"}),
		}).Create(&domain.MemberProfile{
			UserID:    userID,
			Tier:      tier,
			UpdatedAt: now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("membership activated",
		zap.String("user_id", userID),
		zap.String("tier", string(tier)),
		zap.Time("expires_at", sub.ExpiresAt),
	)
	return &sub, nil
}

func (s *Service) ActiveFor(ctx context.Context, userID string) (*domain.Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUser
	}

	var sub domain.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND expires_at > ?", userID, domain.StatusActive, s.clock.Now()).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
