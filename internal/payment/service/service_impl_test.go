package service

import (
	"context"
	"fmt"
	"net/http"
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
	"github.com/unselab/saju/internal/payment/adapters"
	"github.com/unselab/saju/internal/payment/domain"
	paymentrepository "github.com/unselab/saju/internal/payment/repository"
	referraldomain "github.com/unselab/saju/internal/referral/domain"
	referralservice "github.com/unselab/saju/internal/referral/service"
	subscriptiondomain "github.com/unselab/saju/internal/subscription/domain"
	subscriptionservice "github.com/unselab/saju/internal/subscription/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type noAdmins struct{}

func (noAdmins) Privileged(string) bool { return false }

// fakeAdapter approves or rejects confirms without touching a network.
type fakeAdapter struct {
	confirmOK bool
	confirms  int
}

func (a *fakeAdapter) Provider() string { return "fakepay" }

func (a *fakeAdapter) Confirm(context.Context, string, string, int64) (domain.ConfirmResult, error) {
	a.confirms++
	if !a.confirmOK {
		return domain.ConfirmResult{OK: false, ErrorCode: "REJECTED"}, nil
	}
	return domain.ConfirmResult{OK: true, Method: "card"}, nil
}

func (a *fakeAdapter) Verify([]byte, http.Header) error    { return nil }
func (a *fakeAdapter) Parse([]byte) (*domain.Event, error) { return nil, domain.ErrInvalidPayload }

type fixture struct {
	svc     domain.Service
	ent     entitlementdomain.Service
	ref     referraldomain.Service
	sub     subscriptiondomain.Service
	adapter *fakeAdapter
	clock   *clock.FakeClock
	db      *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Payment{},
		&entitlementdomain.PointAccount{},
		&entitlementdomain.FreeUsage{},
		&ledgerdomain.Transaction{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.MemberProfile{},
		&referraldomain.Referral{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC))
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
	subSvc := subscriptionservice.NewService(subscriptionservice.Params{
		DB: db, Log: logger, Clock: fake, GenID: node,
	})
	refSvc := referralservice.NewService(referralservice.Params{
		Config: cfg, DB: db, Log: logger, Clock: fake, GenID: node, Entitlement: entSvc,
	})

	adapter := &fakeAdapter{confirmOK: true}
	registry := adapters.NewRegistry(adapters.Params{Adapters: []domain.Adapter{adapter}})
	repo := paymentrepository.NewRepository(paymentrepository.Params{DB: db, Clock: fake})

	svc := NewService(Params{
		Log:          logger,
		Clock:        fake,
		Repo:         repo,
		Registry:     registry,
		Entitlement:  entSvc,
		Subscription: subSvc,
		Referral:     refSvc,
	})

	return &fixture{svc: svc, ent: entSvc, ref: refSvc, sub: subSvc, adapter: adapter, clock: fake, db: db}
}

func (f *fixture) checkout(t *testing.T, userID string, paymentType domain.Type, referenceID string, amount int64) *domain.Payment {
	t.Helper()
	payment, err := f.svc.CreateCheckout(context.Background(), userID, paymentType, referenceID, amount, "KRW", "fakepay")
	require.NoError(t, err)
	return payment
}

func TestCreateCheckoutValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCheckout(ctx, "user-1", "gift", "x", 1000, "KRW", "fakepay")
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = f.svc.CreateCheckout(ctx, "user-1", domain.TypePoint, "point_basic", 0, "KRW", "fakepay")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.CreateCheckout(ctx, "user-1", domain.TypePoint, "point_basic", 1000, "KRW", "nopay")
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestReconcileCreditsPointPackage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payment := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 11000)

	outcome, err := f.svc.Reconcile(ctx, "user-1", "pk-1", payment.ID, 11000)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFulfilled, outcome)

	// point_basic is 1000 points + 100 bonus.
	balance, err := f.ent.PointBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), balance)

	var stored domain.Payment
	require.NoError(t, f.db.First(&stored, "id = ?", payment.ID).Error)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, "pk-1", stored.PaymentKey)

	var txn ledgerdomain.Transaction
	require.NoError(t, f.db.First(&txn, "source_id = ?", payment.ID).Error)
	assert.Equal(t, int64(1100), txn.Delta)
	assert.Equal(t, int64(1100), txn.BalanceAfter)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payment := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 11000)

	outcome, err := f.svc.Reconcile(ctx, "user-1", "pk-1", payment.ID, 11000)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFulfilled, outcome)

	// A refresh of the success page replays the call; points must not
	// double.
	outcome, err = f.svc.Reconcile(ctx, "user-1", "pk-1", payment.ID, 11000)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyProcessed, outcome)

	balance, err := f.ent.PointBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), balance)
	assert.Equal(t, 1, f.adapter.confirms)
}

func TestReconcileAmountMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payment := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 11000)

	_, err := f.svc.Reconcile(ctx, "user-1", "pk-1", payment.ID, 9999)
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)

	// Nothing moved.
	var stored domain.Payment
	require.NoError(t, f.db.First(&stored, "id = ?", payment.ID).Error)
	assert.Equal(t, domain.StatusPending, stored.Status)
	balance, err := f.ent.PointBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestReconcileRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reconcile(ctx, "user-1", "pk-1", "not-a-uuid", 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderID)

	payment := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 11000)
	_, err = f.svc.Reconcile(ctx, "user-1", "pk-1", payment.ID, -5)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestGetScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payment := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 11000)

	got, err := f.svc.Get(ctx, "user-1", payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, int64(11000), got.Amount)

	_, err = f.svc.Get(ctx, "user-2", payment.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	_, err = f.svc.Get(ctx, "user-1", "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidOrderID)

	_, err = f.svc.Get(ctx, "user-1", "31e8f1a4-9a2f-4c43-b6a1-3a4f7a0f9a11")
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestReconcileOwnershipFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payment := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 11000)

	// Another user replaying the same order id finds no pending row.
	outcome, err := f.svc.Reconcile(ctx, "user-2", "pk-1", payment.ID, 11000)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyProcessed, outcome)

	var stored domain.Payment
	require.NoError(t, f.db.First(&stored, "id = ?", payment.ID).Error)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestReconcileConfirmFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payment := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 11000)
	f.adapter.confirmOK = false

	_, err := f.svc.Reconcile(ctx, "user-1", "pk-1", payment.ID, 11000)
	assert.ErrorIs(t, err, domain.ErrConfirmationFailed)

	var stored domain.Payment
	require.NoError(t, f.db.First(&stored, "id = ?", payment.ID).Error)
	assert.Equal(t, domain.StatusFailed, stored.Status)

	balance, err := f.ent.PointBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, balance)

	// Failed is terminal; a later successful confirm cannot revive it.
	f.adapter.confirmOK = true
	outcome, err := f.svc.Reconcile(ctx, "user-1", "pk-1", payment.ID, 11000)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyProcessed, outcome)
}

func TestReconcileSubscriptionActivatesMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payment := f.checkout(t, "user-1", domain.TypeSubscription, "membership_premium", 19000)

	outcome, err := f.svc.Reconcile(ctx, "user-1", "pk-1", payment.ID, 19000)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFulfilled, outcome)

	sub, err := f.sub.ActiveFor(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, subscriptiondomain.TierPremium, sub.Tier)
	assert.WithinDuration(t, f.clock.Now().AddDate(0, 1, 0), sub.ExpiresAt, time.Second)
}

func TestReconcileAnalysisOnlyMarksCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payment := f.checkout(t, "user-1", domain.TypeAnalysis, "analysis-77", 5000)

	outcome, err := f.svc.Reconcile(ctx, "user-1", "pk-1", payment.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFulfilled, outcome)

	balance, err := f.ent.PointBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestReconcilePaysReferralCommissionOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ref.Register(ctx, "referrer-1", "user-1"))

	first := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 10000)
	_, err := f.svc.Reconcile(ctx, "user-1", "pk-1", first.ID, 10000)
	require.NoError(t, err)

	// floor(10000 * 0.20) + 500
	balance, err := f.ent.PointBalance(ctx, "referrer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), balance)

	// The referee's second purchase pays nothing more.
	second := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 10000)
	_, err = f.svc.Reconcile(ctx, "user-1", "pk-2", second.ID, 10000)
	require.NoError(t, err)

	balance, err = f.ent.PointBalance(ctx, "referrer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), balance)
}

func TestHandleEventCompletesWithoutSecondConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payment := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 11000)

	outcome, err := f.svc.HandleEvent(ctx, domain.Event{
		Provider:   "fakepay",
		OrderID:    payment.ID,
		PaymentKey: "pk-hook",
		Amount:     11000,
		Status:     domain.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFulfilled, outcome)
	assert.Zero(t, f.adapter.confirms)

	// The redirect arriving afterwards is a no-op.
	outcome, err = f.svc.Reconcile(ctx, "user-1", "pk-hook", payment.ID, 11000)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyProcessed, outcome)

	balance, err := f.ent.PointBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), balance)
}

func TestHandleEventKeepsGatewayTerminalState(t *testing.T) {
	f := newFixture(t)
	for _, status := range []domain.Status{domain.StatusFailed, domain.StatusCanceled, domain.StatusExpired} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()

			payment := f.checkout(t, "user-1", domain.TypePoint, "point_basic", 11000)

			_, err := f.svc.HandleEvent(ctx, domain.Event{
				Provider: "fakepay",
				OrderID:  payment.ID,
				Status:   status,
			})
			require.NoError(t, err)

			var stored domain.Payment
			require.NoError(t, f.db.First(&stored, "id = ?", payment.ID).Error)
			assert.Equal(t, status, stored.Status)

			// Terminal states never transition; a late success event
			// lands in the already-processed branch.
			outcome, err := f.svc.HandleEvent(ctx, domain.Event{
				Provider: "fakepay",
				OrderID:  payment.ID,
				Status:   domain.StatusCompleted,
			})
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeAlreadyProcessed, outcome)
		})
	}
}
