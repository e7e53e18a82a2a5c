package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/unselab/saju/internal/clock"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	ledgerdomain "github.com/unselab/saju/internal/ledger/domain"
	obsmetrics "github.com/unselab/saju/internal/observability/metrics"
	"github.com/unselab/saju/internal/payment/adapters"
	"github.com/unselab/saju/internal/payment/domain"
	referraldomain "github.com/unselab/saju/internal/referral/domain"
	subscriptiondomain "github.com/unselab/saju/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Repo         domain.Repository
	Registry     *adapters.Registry
	Entitlement  entitlementdomain.Service
	Subscription subscriptiondomain.Service
	Referral     referraldomain.Service
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	repo         domain.Repository
	registry     *adapters.Registry
	entitlement  entitlementdomain.Service
	subscription subscriptiondomain.Service
	referral     referraldomain.Service
	obsMetrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:          p.Log.Named("payment.service"),
		clock:        p.Clock,
		repo:         p.Repo,
		registry:     p.Registry,
		entitlement:  p.Entitlement,
		subscription: p.Subscription,
		referral:     p.Referral,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) CreateCheckout(ctx context.Context, userID string, paymentType domain.Type, referenceID string, amount int64, currency, provider string) (*domain.Payment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, entitlementdomain.ErrInvalidUser
	}
	if !domain.ValidType(paymentType) {
		return nil, domain.ErrInvalidType
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if _, err := s.registry.Adapter(provider); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = "KRW"
	}

	now := s.clock.Now()
	payment := &domain.Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        paymentType,
		ReferenceID: referenceID,
		Amount:      amount,
		Currency:    strings.ToUpper(currency),
		Status:      domain.StatusPending,
		Provider:    strings.ToLower(provider),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// Reconcile is the redirect-confirmation path. The pending-row filter and
// the conditional claim are the only concurrency control; a duplicate call
// at any point lands in the already-processed branch.
func (s *Service) Reconcile(ctx context.Context, userID, paymentKey, orderID string, amount int64) (domain.ReconcileOutcome, error) {
	if _, err := uuid.Parse(strings.TrimSpace(orderID)); err != nil {
		return "", domain.ErrInvalidOrderID
	}
	if amount <= 0 {
		return "", domain.ErrInvalidAmount
	}

	payment, err := s.repo.FindPending(ctx, orderID, userID)
	if err != nil {
		return "", err
	}
	if payment == nil {
		// Completed by a webhook or an earlier call. Refreshing the
		// success page must stay harmless.
		return domain.OutcomeAlreadyProcessed, nil
	}

	if payment.Amount != amount {
		s.log.Warn("payment amount mismatch",
			zap.String("payment_id", payment.ID),
			zap.Int64("expected", payment.Amount),
			zap.Int64("got", amount),
		)
		return "", domain.ErrAmountMismatch
	}

	adapter, err := s.registry.Adapter(payment.Provider)
	if err != nil {
		return "", err
	}
	confirm, err := adapter.Confirm(ctx, paymentKey, orderID, amount)
	if err != nil {
		return "", err
	}
	if !confirm.OK {
		if err := s.repo.MarkTerminal(ctx, payment.ID, domain.StatusFailed); err != nil {
			return "", err
		}
		s.log.Warn("gateway confirm rejected",
			zap.String("payment_id", payment.ID),
			zap.String("error_code", confirm.ErrorCode),
		)
		return "", fmt.Errorf("%w: %s", domain.ErrConfirmationFailed, confirm.ErrorCode)
	}

	return s.completeAndFulfill(ctx, payment, paymentKey)
}

func (s *Service) HandleEvent(ctx context.Context, event domain.Event) (domain.ReconcileOutcome, error) {
	if _, err := uuid.Parse(strings.TrimSpace(event.OrderID)); err != nil {
		return "", domain.ErrInvalidOrderID
	}

	payment, err := s.repo.FindPendingByID(ctx, event.OrderID)
	if err != nil {
		return "", err
	}
	if payment == nil {
		return domain.OutcomeAlreadyProcessed, nil
	}

	switch event.Status {
	case domain.StatusCompleted:
		if event.Amount != 0 && event.Amount != payment.Amount {
			return "", domain.ErrAmountMismatch
		}
		// The gateway already confirmed before sending the event.
		return s.completeAndFulfill(ctx, payment, event.PaymentKey)
	case domain.StatusFailed, domain.StatusCanceled, domain.StatusExpired:
		if err := s.repo.MarkTerminal(ctx, payment.ID, event.Status); err != nil {
			return "", err
		}
		return domain.OutcomeAlreadyProcessed, nil
	default:
		return "", domain.ErrEventIgnored
	}
}

func (s *Service) Get(ctx context.Context, userID, orderID string) (*domain.Payment, error) {
	if _, err := uuid.Parse(strings.TrimSpace(orderID)); err != nil {
		return nil, domain.ErrInvalidOrderID
	}

	payment, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Other users' payments read as not found rather than forbidden.
	if payment.UserID != userID {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) completeAndFulfill(ctx context.Context, payment *domain.Payment, paymentKey string) (domain.ReconcileOutcome, error) {
	won, err := s.repo.ClaimCompleted(ctx, payment.ID, paymentKey)
	if err != nil {
		return "", err
	}
	if !won {
		return domain.OutcomeAlreadyProcessed, nil
	}

	if err := s.fulfill(ctx, payment); err != nil {
		return "", err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPaymentCompleted(ctx, string(payment.Type))
	}
	s.log.Info("payment completed",
		zap.String("payment_id", payment.ID),
		zap.String("user_id", payment.UserID),
		zap.String("type", string(payment.Type)),
		zap.Int64("amount", payment.Amount),
	)

	if _, err := s.referral.ProcessFirstPurchase(ctx, payment.UserID, payment.ID, payment.Amount); err != nil {
		// Commission is downstream of the purchase itself; log and move on.
		s.log.Error("referral payout failed",
			zap.String("payment_id", payment.ID),
			zap.Error(err),
		)
	}
	return domain.OutcomeFulfilled, nil
}

func (s *Service) fulfill(ctx context.Context, payment *domain.Payment) error {
	switch payment.Type {
	case domain.TypePoint:
		points := payment.Amount
		var bonus int64
		if pkg, ok := domain.PointPackages[payment.ReferenceID]; ok {
			points = pkg.Points
			bonus = pkg.Bonus
		}
		_, err := s.entitlement.CreditPoints(ctx, payment.UserID, points+bonus,
			string(ledgerdomain.SourceTypePayment), payment.ID,
			fmt.Sprintf("point package %s", payment.ReferenceID))
		return err

	case domain.TypeSubscription, domain.TypeQR:
		tier := subscriptiondomain.TierMember
		if strings.Contains(strings.ToLower(payment.ReferenceID), "premium") {
			tier = subscriptiondomain.TierPremium
		}
		_, err := s.subscription.ActivateMonth(ctx, payment.UserID, tier)
		return err

	case domain.TypeAnalysis, domain.TypeAddon:
		// The deliverable was produced at purchase time; completion is
		// the whole fulfillment.
		return nil

	default:
		return domain.ErrInvalidType
	}
}
