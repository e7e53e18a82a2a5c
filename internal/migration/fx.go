package migration

import (
	analysisdomain "github.com/unselab/saju/internal/analysis/domain"
	"github.com/unselab/saju/internal/config"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	ledgerdomain "github.com/unselab/saju/internal/ledger/domain"
	paymentdomain "github.com/unselab/saju/internal/payment/domain"
	referraldomain "github.com/unselab/saju/internal/referral/domain"
	subscriptiondomain "github.com/unselab/saju/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&entitlementdomain.PointAccount{},
				&entitlementdomain.FreeUsage{},
				&ledgerdomain.Transaction{},
				&analysisdomain.Record{},
				&analysisdomain.Voucher{},
				&paymentdomain.Payment{},
				&referraldomain.Referral{},
				&subscriptiondomain.Subscription{},
				&subscriptiondomain.MemberProfile{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
