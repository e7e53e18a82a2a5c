package referral

import (
	referralservice "github.com/unselab/saju/internal/referral/service"
	"go.uber.org/fx"
)

var Module = fx.Module("referral.service",
	fx.Provide(referralservice.NewService),
)
