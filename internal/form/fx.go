package form

import (
	"github.com/machikado/market/internal/form/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("form",
	fx.Provide(repository.Provide),
)
