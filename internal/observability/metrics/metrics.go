package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	analyses          metric.Int64Counter
	paymentsCompleted metric.Int64Counter
	pointTxns         metric.Int64Counter
	webhookEvents     metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "saju"
	}
	meter := provider.Meter(name)

	analyses, err := meter.Int64Counter("saju_analyses_total")
	if err != nil {
		return nil, err
	}
	paymentsCompleted, err := meter.Int64Counter("saju_payments_completed_total")
	if err != nil {
		return nil, err
	}
	pointTxns, err := meter.Int64Counter("saju_point_transactions_total")
	if err != nil {
		return nil, err
	}
	webhookEvents, err := meter.Int64Counter("saju_payment_webhook_events_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("saju_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		analyses:          analyses,
		paymentsCompleted: paymentsCompleted,
		pointTxns:         pointTxns,
		webhookEvents:     webhookEvents,
		rateLimitDenied:   rateLimitDenied,
	}, nil
}

// RecordAnalysis counts a computed analysis by product tier and access mode.
func (m *Metrics) RecordAnalysis(ctx context.Context, tier, access string) {
	if m == nil {
		return
	}
	m.analyses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", strings.TrimSpace(tier)),
		attribute.String("access", strings.TrimSpace(access)),
	))
}

// RecordPaymentCompleted counts a payment that reached the completed state.
func (m *Metrics) RecordPaymentCompleted(ctx context.Context, paymentType string) {
	if m == nil {
		return
	}
	m.paymentsCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_type", strings.TrimSpace(paymentType)),
	))
}

// RecordPointTransaction counts a point ledger posting by source type.
func (m *Metrics) RecordPointTransaction(ctx context.Context, sourceType string) {
	if m == nil {
		return
	}
	m.pointTxns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source_type", strings.TrimSpace(sourceType)),
	))
}

// RecordWebhookEvent counts an ingested webhook by provider and outcome.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	))
}

// RecordRateLimitDenied counts a denied analyze request.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
	))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
