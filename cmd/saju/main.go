package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/unselab/saju/internal/clock"
	"github.com/unselab/saju/internal/config"
	"github.com/unselab/saju/internal/expiry"
	"github.com/unselab/saju/internal/migration"
	"github.com/unselab/saju/internal/observability"
	"github.com/unselab/saju/internal/server"
	"github.com/unselab/saju/pkg/db"
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
		expiry.Module,
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
