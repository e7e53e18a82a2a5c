package analysis

import (
	analysisrepository "github.com/unselab/saju/internal/analysis/repository"
	analysisservice "github.com/unselab/saju/internal/analysis/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analysis.service",
	fx.Provide(
		analysisrepository.NewRepository,
		analysisservice.NewService,
	),
)
