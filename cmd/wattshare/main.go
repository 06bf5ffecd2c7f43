package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/wattshare/wattshare/internal/clock"
	"github.com/wattshare/wattshare/internal/config"
	"github.com/wattshare/wattshare/internal/migration"
	"github.com/wattshare/wattshare/internal/observability"
	"github.com/wattshare/wattshare/internal/server"
	"github.com/wattshare/wattshare/pkg/db"
	"go.uber.org/fx"
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
