package payment

import (
	"github.com/unselab/saju/internal/payment/adapters"
	"github.com/unselab/saju/internal/payment/adapters/stripe"
	"github.com/unselab/saju/internal/payment/adapters/toss"
	"github.com/unselab/saju/internal/payment/domain"
	paymentrepository "github.com/unselab/saju/internal/payment/repository"
	paymentservice "github.com/unselab/saju/internal/payment/service"
	paymentwebhook "github.com/unselab/saju/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(
		fx.Annotate(toss.NewAdapter, fx.As(new(domain.Adapter)), fx.ResultTags(`group:"payment.adapters"`)),
		fx.Annotate(stripe.NewAdapter, fx.As(new(domain.Adapter)), fx.ResultTags(`group:"payment.adapters"`)),
		adapters.NewRegistry,
		paymentrepository.NewRepository,
		paymentservice.NewService,
		paymentwebhook.NewService,
	),
)
