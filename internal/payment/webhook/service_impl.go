package webhook

import (
	"context"
	"errors"
	"net/http"

	obsmetrics "github.com/unselab/saju/internal/observability/metrics"
	"github.com/unselab/saju/internal/payment/adapters"
	"github.com/unselab/saju/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Registry   *adapters.Registry
	Payments   domain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	registry   *adapters.Registry
	payments   domain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.WebhookService {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		registry:   p.Registry,
		payments:   p.Payments,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	adapter, err := s.registry.Adapter(provider)
	if err != nil {
		s.record(ctx, provider, "unknown_provider")
		return err
	}

	// Verification comes first; nothing below runs on an unsigned body.
	if err := adapter.Verify(payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		s.record(ctx, provider, "invalid_signature")
		return err
	}

	event, err := adapter.Parse(payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.record(ctx, provider, "ignored")
			return nil
		}
		s.record(ctx, provider, "invalid_payload")
		return err
	}

	outcome, err := s.payments.HandleEvent(ctx, *event)
	if err != nil {
		s.record(ctx, provider, "error")
		return err
	}
	s.record(ctx, provider, string(outcome))
	return nil
}

func (s *Service) record(ctx context.Context, provider, result string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, result)
	}
}
