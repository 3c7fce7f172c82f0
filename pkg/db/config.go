package db

import (
	"strings"
	"time"

	"github.com/smallbiznis/crm/internal/config"
)

// PoolConfig sizes the database/sql connection pool.
type PoolConfig struct {
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func PoolConfigFrom(cfg config.Config) PoolConfig {
	pool := PoolConfig{
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Second,
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY.
	if strings.EqualFold(strings.TrimSpace(cfg.DBType), "sqlite") {
		pool.MaxOpenConn = 1
		pool.MaxIdleConn = 1
	}
	return pool
}
