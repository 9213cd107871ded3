package memo

import (
	"github.com/machikado/market/internal/memo/repository"
	"github.com/machikado/market/internal/memo/service"
	"go.uber.org/fx"
)

var Module = fx.Module("memo.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
