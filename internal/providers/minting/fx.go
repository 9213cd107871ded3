package minting

import (
	"github.com/machikado/market/internal/config"
	paymentdomain "github.com/machikado/market/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Provide returns nil when no mint service is configured; the payment service
// treats a nil requester as "skip minting".
func Provide(cfg config.Config, log *zap.Logger) paymentdomain.MintRequester {
	client := NewClient(cfg, log)
	if client == nil {
		return nil
	}
	return client
}

var Module = fx.Module("providers.minting",
	fx.Provide(Provide),
)
