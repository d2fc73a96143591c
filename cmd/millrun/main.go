package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/internal/config"
	"github.com/smallbiznis/millrun/internal/migration"
	"github.com/smallbiznis/millrun/internal/observability"
	"github.com/smallbiznis/millrun/internal/server"
	"github.com/smallbiznis/millrun/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
