package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unselab/saju/internal/authorization"
	"github.com/unselab/saju/internal/clock"
	"github.com/unselab/saju/internal/config"
	"github.com/unselab/saju/internal/entitlement/domain"
	ledgerdomain "github.com/unselab/saju/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errDuplicateCredit rolls a credit back when its ledger row turns out to
// be a replay. It never escapes CreditPoints.
var errDuplicateCredit = errors.New("duplicate credit source")

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	Ledger     ledgerdomain.Service
	Authorizer authorization.Authorizer
}

type Service struct {
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	ledger     ledgerdomain.Service
	authorizer authorization.Authorizer
}

func NewService(p Params) domain.Service {
	return &Service{
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("entitlement.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		ledger:     p.Ledger,
		authorizer: p.Authorizer,
	}
}

func (s *Service) CanUseFreeAnalysis(ctx context.Context, userID, email string) (domain.FreeAnalysisStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.FreeAnalysisStatus{}, domain.ErrInvalidUser
	}
	if s.authorizer.Privileged(email) {
		return domain.FreeAnalysisStatus{
			CanUse:    true,
			Remaining: domain.Unlimited,
			Limit:     domain.Unlimited,
		}, nil
	}

	limit := s.cfg.FreeAnalysisLimit
	used, err := s.repo.FreeUsageCount(ctx, s.db, userID, domain.PeriodKey(s.clock.Now()))
	if err != nil {
		return domain.FreeAnalysisStatus{}, err
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return domain.FreeAnalysisStatus{
		CanUse:    remaining > 0,
		Remaining: remaining,
		Limit:     limit,
	}, nil
}

func (s *Service) IncrementFreeAnalysis(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUser
	}
	now := s.clock.Now()
	return s.repo.IncrementFreeUsage(ctx, s.db, userID, domain.PeriodKey(now), now)
}

func (s *Service) PointBalance(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, domain.ErrInvalidUser
	}
	return s.repo.Balance(ctx, s.db, userID)
}

func (s *Service) DeductPoints(ctx context.Context, userID string, tier domain.ProductTier, sourceType, sourceID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUser
	}
	if !domain.ValidTier(tier) {
		return domain.ErrInvalidTier
	}
	cost := domain.TierCosts[tier]

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		ok, err := s.repo.TryDeduct(ctx, tx, userID, cost, now)
		if err != nil {
			return err
		}
		if !ok {
			balance, berr := s.repo.Balance(ctx, tx, userID)
			if berr != nil {
				return berr
			}
			return &domain.InsufficientPointsError{Balance: balance, Required: cost}
		}

		balance, err := s.repo.Balance(ctx, tx, userID)
		if err != nil {
			return err
		}

		inserted, err := s.ledger.Record(ctx, tx, &ledgerdomain.Transaction{
			UserID:       userID,
			Delta:        -cost,
			BalanceAfter: balance,
			SourceType:   ledgerdomain.SourceType(sourceType),
			SourceID:     sourceID,
			Memo:         fmt.Sprintf("%s %s", tier, sourceType),
		})
		if err != nil {
			return err
		}
		if !inserted {
			// Same source already charged. Roll the second deduction
			// back and report success to the retrying caller.
			return errDuplicateCredit
		}
		return nil
	})
	if errors.Is(err, errDuplicateCredit) {
		s.log.Debug("deduction replayed, skipping",
			zap.String("user_id", userID),
			zap.String("source_id", sourceID),
		)
		return nil
	}
	return err
}

func (s *Service) CreditPoints(ctx context.Context, userID string, amount int64, sourceType, sourceID, memo string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, domain.ErrInvalidUser
	}
	if amount <= 0 {
		return false, domain.ErrInvalidAmount
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.repo.Credit(ctx, tx, userID, amount, s.clock.Now())
		if err != nil {
			return err
		}
		inserted, err := s.ledger.Record(ctx, tx, &ledgerdomain.Transaction{
			UserID:       userID,
			Delta:        amount,
			BalanceAfter: balance,
			SourceType:   ledgerdomain.SourceType(sourceType),
			SourceID:     sourceID,
			Memo:         memo,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return errDuplicateCredit
		}
		return nil
	})
	if errors.Is(err, errDuplicateCredit) {
		s.log.Debug("credit replayed, skipping",
			zap.String("user_id", userID),
			zap.String("source_type", sourceType),
			zap.String("source_id", sourceID),
		)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Authorize(ctx context.Context, userID, email string, tier domain.ProductTier, requestID string) (domain.AccessDecision, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.AccessDecision{}, domain.ErrInvalidUser
	}
	if !domain.ValidTier(tier) {
		return domain.AccessDecision{}, domain.ErrInvalidTier
	}

	if s.authorizer.Privileged(email) {
		return domain.AccessDecision{Mode: domain.AccessPrivileged, Unblinded: true}, nil
	}

	// Basic tier consumes the daily free quota first; paid tiers always
	// go through points.
	if tier == domain.TierBasic {
		status, err := s.CanUseFreeAnalysis(ctx, userID, email)
		if err != nil {
			return domain.AccessDecision{}, err
		}
		if status.CanUse {
			if err := s.IncrementFreeAnalysis(ctx, userID); err != nil {
				return domain.AccessDecision{}, err
			}
			return domain.AccessDecision{Mode: domain.AccessFree, Unblinded: false}, nil
		}
	}

	if err := s.DeductPoints(ctx, userID, tier, string(ledgerdomain.SourceTypeAnalysis), requestID); err != nil {
		return domain.AccessDecision{}, err
	}
	return domain.AccessDecision{
		Mode:      domain.AccessPoints,
		Unblinded: true,
		Cost:      domain.TierCosts[tier],
	}, nil
}
