package support

import (
	"github.com/machikado/market/internal/support/service"
	"go.uber.org/fx"
)

var Module = fx.Module("support.service",
	fx.Provide(service.New),
)
