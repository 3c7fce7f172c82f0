package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL(`SELECT * FROM "products"`))
	assert.Equal(t, "UPDATE", operationFromSQL(`WITH low AS (SELECT 1) UPDATE products SET stock = stock + 10`))
	assert.Equal(t, "INSERT", operationFromSQL(`  (INSERT INTO orders`))
	assert.Equal(t, "DELETE", operationFromSQL(`with a as (select (1)), b as (select 2) delete from order_products`))
	assert.Equal(t, "SELECT", operationFromSQL(`WITH RECURSIVE r AS (INSERT INTO t VALUES (1) RETURNING id) SELECT id FROM r`))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestGormLoggerTraceLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        100 * time.Millisecond,
		IgnoreRecordNotFound: true,
	})
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	l.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	l.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	l.Trace(context.Background(), time.Now(), fc, nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "SELECT", entries[1].ContextMap()["operation"])
}

func TestGormLoggerParamsFilter(t *testing.T) {
	l := NewGormLogger(zap.NewNop(), DefaultGormLoggerConfig())
	_, params := l.ParamsFilter(context.Background(), "SELECT ?", "a@b.c")
	assert.Nil(t, params)

	l = NewGormLogger(zap.NewNop(), GormLoggerConfig{LogParams: true})
	_, params = l.ParamsFilter(context.Background(), "SELECT ?", "a@b.c")
	assert.Equal(t, []interface{}{"a@b.c"}, params)
}
