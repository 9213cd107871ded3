package product

import (
	"github.com/machikado/market/internal/product/repository"
	"github.com/machikado/market/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
