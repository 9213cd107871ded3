package seed

import (
	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module seeds demo data outside production.
var Module = fx.Module("seed",
	fx.Invoke(Run),
)

func Run(cfg config.Config, db *gorm.DB, node *snowflake.Node, clk clock.Clock) error {
	if cfg.IsProduction() {
		return nil
	}
	return EnsureFixtures(db, node, clk)
}
