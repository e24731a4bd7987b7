package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/stagevote/internal/clock"
	"github.com/smallbiznis/stagevote/internal/config"
	"github.com/smallbiznis/stagevote/internal/migration"
	"github.com/smallbiznis/stagevote/internal/observability"
	"github.com/smallbiznis/stagevote/internal/server"
	"github.com/smallbiznis/stagevote/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
