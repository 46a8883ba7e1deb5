package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/retailpulse/internal/alert"
	"github.com/smallbiznis/retailpulse/internal/batch"
	"github.com/smallbiznis/retailpulse/internal/clock"
	"github.com/smallbiznis/retailpulse/internal/config"
	"github.com/smallbiznis/retailpulse/internal/customer"
	"github.com/smallbiznis/retailpulse/internal/dashboard"
	"github.com/smallbiznis/retailpulse/internal/gateway"
	"github.com/smallbiznis/retailpulse/internal/health"
	"github.com/smallbiznis/retailpulse/internal/insight"
	"github.com/smallbiznis/retailpulse/internal/logger"
	"github.com/smallbiznis/retailpulse/internal/migration"
	"github.com/smallbiznis/retailpulse/internal/order"
	"github.com/smallbiznis/retailpulse/internal/pipeline"
	"github.com/smallbiznis/retailpulse/internal/server"
	"github.com/smallbiznis/retailpulse/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		customer.Module,
		order.Module,
		insight.Module,
		health.Module,
		dashboard.Module,
		alert.Module,
		batch.Module,
		gateway.Module,
		pipeline.Module,

		// HTTP edge
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
