package transfer

import (
	"github.com/machikado/market/internal/transfer/repository"
	"github.com/machikado/market/internal/transfer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transfer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
