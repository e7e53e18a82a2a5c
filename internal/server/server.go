package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unselab/saju/internal/analysis"
	analysisdomain "github.com/unselab/saju/internal/analysis/domain"
	"github.com/unselab/saju/internal/authorization"
	"github.com/unselab/saju/internal/config"
	"github.com/unselab/saju/internal/entitlement"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	"github.com/unselab/saju/internal/identity"
	"github.com/unselab/saju/internal/ledger"
	"github.com/unselab/saju/internal/observability"
	obslogger "github.com/unselab/saju/internal/observability/logger"
	obsmetrics "github.com/unselab/saju/internal/observability/metrics"
	obstracing "github.com/unselab/saju/internal/observability/tracing"
	"github.com/unselab/saju/internal/payment"
	paymentdomain "github.com/unselab/saju/internal/payment/domain"
	"github.com/unselab/saju/internal/ratelimit"
	"github.com/unselab/saju/internal/referral"
	referraldomain "github.com/unselab/saju/internal/referral/domain"
	"github.com/unselab/saju/internal/subscription"
	subscriptiondomain "github.com/unselab/saju/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	authorization.Module,
	ledger.Module,
	entitlement.Module,
	analysis.Module,
	subscription.Module,
	referral.Module,
	payment.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	analysisSvc     analysisdomain.Service
	entitlementSvc  entitlementdomain.Service
	paymentSvc      paymentdomain.Service
	webhookSvc      paymentdomain.WebhookService
	referralSvc     referraldomain.Service
	subscriptionSvc subscriptiondomain.Service
	limiter         *ratelimit.TokenBucket
	metrics         *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AnalysisSvc     analysisdomain.Service
	EntitlementSvc  entitlementdomain.Service
	PaymentSvc      paymentdomain.Service
	WebhookSvc      paymentdomain.WebhookService
	ReferralSvc     referraldomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Limiter         *ratelimit.TokenBucket `optional:"true"`
	Metrics         *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		analysisSvc:     p.AnalysisSvc,
		entitlementSvc:  p.EntitlementSvc,
		paymentSvc:      p.PaymentSvc,
		webhookSvc:      p.WebhookSvc,
		referralSvc:     p.ReferralSvc,
		subscriptionSvc: p.SubscriptionSvc,
		limiter:         p.Limiter,
		metrics:         p.Metrics,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(identity.Middleware())

	api.POST("/analyses", s.UserRequired(), s.analyzeRateLimit(), s.CreateAnalysis)
	api.GET("/analyses/:id", s.UserRequired(), s.GetAnalysis)
	api.POST("/analyses/:id/unblind", s.UserRequired(), s.UnblindAnalysis)

	api.POST("/compatibility/group", s.UserRequired(), s.analyzeRateLimit(), s.AnalyzeGroup)

	api.POST("/payments", s.UserRequired(), s.CreateCheckout)
	api.GET("/payments/:id", s.UserRequired(), s.GetPayment)
	api.POST("/payments/confirm", s.UserRequired(), s.ConfirmPayment)

	api.POST("/referrals", s.UserRequired(), s.RegisterReferral)

	api.GET("/me/membership", s.UserRequired(), s.GetMembership)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments/:provider", s.HandlePaymentWebhook)
}
