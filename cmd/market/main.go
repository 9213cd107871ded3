package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/config"
	"github.com/machikado/market/internal/logger"
	"github.com/machikado/market/internal/migration"
	"github.com/machikado/market/internal/scheduler"
	"github.com/machikado/market/internal/seed"
	"github.com/machikado/market/internal/server"
	"github.com/machikado/market/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(NewSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
		seed.Module,
	)
	app.Run()
}

func NewSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
