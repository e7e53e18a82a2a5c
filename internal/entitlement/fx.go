package entitlement

import (
	entitlementrepository "github.com/unselab/saju/internal/entitlement/repository"
	entitlementservice "github.com/unselab/saju/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(
		entitlementrepository.Provide,
		entitlementservice.NewService,
	),
)
