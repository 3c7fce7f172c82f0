package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	"github.com/smallbiznis/crm/internal/customer"
	"github.com/smallbiznis/crm/internal/heartbeat"
	"github.com/smallbiznis/crm/internal/jobrun"
	"github.com/smallbiznis/crm/internal/logsink"
	"github.com/smallbiznis/crm/internal/migration"
	"github.com/smallbiznis/crm/internal/observability"
	"github.com/smallbiznis/crm/internal/order"
	"github.com/smallbiznis/crm/internal/product"
	"github.com/smallbiznis/crm/internal/redisconn"
	"github.com/smallbiznis/crm/internal/reminder"
	"github.com/smallbiznis/crm/internal/replenishment"
	"github.com/smallbiznis/crm/internal/scheduler"
	"github.com/smallbiznis/crm/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		redisconn.Module,
		logsink.Module,

		// Domain services required by the jobs
		customer.Module,
		product.Module,
		order.Module,
		jobrun.Module,

		heartbeat.Module,
		replenishment.Module,
		reminder.Module,
		scheduler.Module,

		// No server module! Run several replicas with REDIS_ADDR set so the
		// exclusive jobs are locked.
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
