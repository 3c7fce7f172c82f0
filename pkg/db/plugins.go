package db

import (
	"strings"

	"github.com/smallbiznis/crm/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	gormprom "gorm.io/plugin/prometheus"
)

// dbStatsRefreshSeconds is how often pool gauges are sampled.
const dbStatsRefreshSeconds = 15

// usePlugins adds query spans and connection pool gauges to conn. Query
// variables stay out of spans since they carry customer emails and phones.
func usePlugins(conn *gorm.DB, cfg config.Config) error {
	name := strings.TrimSpace(cfg.DBName)
	if strings.EqualFold(strings.TrimSpace(cfg.DBType), "sqlite") {
		name = strings.TrimSpace(cfg.DBPath)
	}

	if err := conn.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(name),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	return conn.Use(gormprom.New(gormprom.Config{
		DBName:          name,
		RefreshInterval: dbStatsRefreshSeconds,
	}))
}
