package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/unselab/saju/internal/clock"
	ledgerdomain "github.com/unselab/saju/internal/ledger/domain"
	obsmetrics "github.com/unselab/saju/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		clock:      p.Clock,
		genID:      p.GenID,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, txn *ledgerdomain.Transaction) (bool, error) {
	if txn == nil || strings.TrimSpace(txn.UserID) == "" {
		return false, ledgerdomain.ErrInvalidUser
	}
	if strings.TrimSpace(string(txn.SourceType)) == "" || strings.TrimSpace(txn.SourceID) == "" {
		return false, ledgerdomain.ErrInvalidSource
	}
	if txn.Delta == 0 {
		return false, ledgerdomain.ErrInvalidDelta
	}

	if tx == nil {
		tx = s.db
	}
	if txn.ID == 0 {
		txn.ID = s.genID.Generate()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = s.clock.Now()
	}

	res := tx.WithContext(ctx).Exec(
		`INSERT INTO point_transactions (
			id, user_id, delta, balance_after, source_type, source_id, memo, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_type, source_id) DO NOTHING`,
		txn.ID,
		txn.UserID,
		txn.Delta,
		txn.BalanceAfter,
		txn.SourceType,
		txn.SourceID,
		txn.Memo,
		txn.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		s.log.Debug("point transaction already recorded",
			zap.String("source_type", string(txn.SourceType)),
			zap.String("source_id", txn.SourceID),
		)
		return false, nil
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPointTransaction(ctx, string(txn.SourceType))
	}
	return true, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]ledgerdomain.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ledgerdomain.ErrInvalidUser
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var items []ledgerdomain.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
