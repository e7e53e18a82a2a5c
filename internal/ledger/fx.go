package ledger

import (
	ledgerservice "github.com/unselab/saju/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(ledgerservice.NewService),
)
