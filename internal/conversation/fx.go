package conversation

import (
	"github.com/machikado/market/internal/conversation/repository"
	"github.com/machikado/market/internal/conversation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("conversation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
