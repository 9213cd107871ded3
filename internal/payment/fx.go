package payment

import (
	"github.com/machikado/market/internal/payment/repository"
	"github.com/machikado/market/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
