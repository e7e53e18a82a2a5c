package subscription

import (
	subscriptionservice "github.com/unselab/saju/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(subscriptionservice.NewService),
)
