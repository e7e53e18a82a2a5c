package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unselab/saju/internal/clock"
	"github.com/unselab/saju/internal/config"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	entitlementrepository "github.com/unselab/saju/internal/entitlement/repository"
	entitlementservice "github.com/unselab/saju/internal/entitlement/service"
	ledgerdomain "github.com/unselab/saju/internal/ledger/domain"
	ledgerservice "github.com/unselab/saju/internal/ledger/service"
	"github.com/unselab/saju/internal/referral/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type noAdmins struct{}

func (noAdmins) Privileged(string) bool { return false }

func newTestService(t *testing.T) (domain.Service, entitlementdomain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Referral{},
		&entitlementdomain.PointAccount{},
		&entitlementdomain.FreeUsage{},
		&ledgerdomain.Transaction{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	cfg := config.Config{
		FreeAnalysisLimit: 3,
		Referral:          config.ReferralConfig{CommissionRate: 0.20, FlatBonus: 500},
	}

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: logger, Clock: fake, GenID: node})
	entSvc := entitlementservice.NewService(entitlementservice.Params{
		Config:     cfg,
		DB:         db,
		Log:        logger,
		Clock:      fake,
		Repo:       entitlementrepository.Provide(),
		Ledger:     ledgerSvc,
		Authorizer: noAdmins{},
	})
	svc := NewService(Params{
		Config:      cfg,
		DB:          db,
		Log:         logger,
		Clock:       fake,
		GenID:       node,
		Entitlement: entSvc,
	})
	return svc, entSvc, db
}

func TestRegisterIsIdempotentPerReferee(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "referrer-1", "referee-1"))
	// A second registration, even from someone else, does not displace
	// the first.
	require.NoError(t, svc.Register(ctx, "referrer-2", "referee-1"))

	var referral domain.Referral
	require.NoError(t, db.First(&referral, "referee_id = ?", "referee-1").Error)
	assert.Equal(t, "referrer-1", referral.ReferrerID)
}

func TestRegisterRejectsSelfReferral(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Register(context.Background(), "user-1", "user-1")
	assert.ErrorIs(t, err, domain.ErrSelfReferral)
}

func TestProcessFirstPurchasePaysCommission(t *testing.T) {
	svc, ent, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "referrer-1", "referee-1"))

	payout, err := svc.ProcessFirstPurchase(ctx, "referee-1", "pay-1", 10000)
	require.NoError(t, err)
	require.NotNil(t, payout)
	// floor(10000 * 0.20) + 500 flat bonus
	assert.Equal(t, int64(2500), payout.Commission)
	assert.Equal(t, "referrer-1", payout.ReferrerID)

	balance, err := ent.PointBalance(ctx, "referrer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), balance)
}

func TestProcessFirstPurchasePaysAtMostOnce(t *testing.T) {
	svc, ent, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "referrer-1", "referee-1"))

	payout, err := svc.ProcessFirstPurchase(ctx, "referee-1", "pay-1", 10000)
	require.NoError(t, err)
	require.NotNil(t, payout)

	// A second completed purchase pays nothing.
	payout, err = svc.ProcessFirstPurchase(ctx, "referee-1", "pay-2", 50000)
	require.NoError(t, err)
	assert.Nil(t, payout)

	balance, err := ent.PointBalance(ctx, "referrer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), balance)
}

func TestProcessFirstPurchaseWithoutReferralIsNoOp(t *testing.T) {
	svc, _, _ := newTestService(t)

	payout, err := svc.ProcessFirstPurchase(context.Background(), "stranger", "pay-1", 10000)
	require.NoError(t, err)
	assert.Nil(t, payout)
}
