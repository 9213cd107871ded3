package ownership

import (
	"github.com/machikado/market/internal/ownership/repository"
	"github.com/machikado/market/internal/ownership/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ownership.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
