package migration

import (
	"strings"

	"github.com/machikado/market/internal/config"
	conversationdomain "github.com/machikado/market/internal/conversation/domain"
	formdomain "github.com/machikado/market/internal/form/domain"
	memodomain "github.com/machikado/market/internal/memo/domain"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	paymentdomain "github.com/machikado/market/internal/payment/domain"
	productdomain "github.com/machikado/market/internal/product/domain"
	referencedomain "github.com/machikado/market/internal/reference/domain"
	transferdomain "github.com/machikado/market/internal/transfer/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned migrations are postgres-only; other dialects (sqlite in dev
		// and tests) fall back to schema sync.
		if !strings.EqualFold(cfg.DBType, "postgres") {
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&referencedomain.Town{},
		&referencedomain.Business{},
		&productdomain.Product{},
		&paymentdomain.PendingPayment{},
		&ownershipdomain.OwnershipRecord{},
		&transferdomain.AssetTransferRecord{},
		&conversationdomain.Conversation{},
		&conversationdomain.Message{},
		&memodomain.SupportMemo{},
		&formdomain.FormAnswer{},
	)
}
