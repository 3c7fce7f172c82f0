package replenishment

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	"github.com/smallbiznis/crm/internal/logsink"
	"github.com/smallbiznis/crm/internal/observability/metrics"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	productrepo "github.com/smallbiznis/crm/internal/product/repository"
	"github.com/smallbiznis/crm/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	repo    productdomain.Repository
	logPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	cfg := config.DefaultJobsConfig()
	cfg.Replenishment.LogPath = filepath.Join(t.TempDir(), "low_stock.txt")

	sinks := logsink.NewRegistry()
	t.Cleanup(func() { _ = sinks.Close() })

	repo := productrepo.Provide()
	return &fixture{
		db:      conn,
		repo:    repo,
		logPath: cfg.Replenishment.LogPath,
		svc: New(Params{
			DB:      conn,
			Log:     zap.NewNop(),
			Clock:   clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
			Repo:    repo,
			Jobs:    config.NewStaticJobsConfigHolder(cfg),
			Sinks:   sinks,
			Metrics: metrics.NewForTest(),
		}),
	}
}

func (f *fixture) seed(t *testing.T, stocks ...int) []productdomain.Product {
	t.Helper()
	node := dbtest.Node(t)
	out := make([]productdomain.Product, 0, len(stocks))
	for i, stock := range stocks {
		p := productdomain.Product{
			ID:        node.Generate(),
			Name:      []string{"Pen", "Notebook", "Stapler", "Marker"}[i%4],
			Price:     decimal.NewFromInt(3),
			Stock:     stock,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, f.repo.Insert(context.Background(), f.db, &p))
		out = append(out, p)
	}
	return out
}

func (f *fixture) stock(t *testing.T, p productdomain.Product) int {
	t.Helper()
	got, err := f.repo.FindByID(context.Background(), f.db, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got.Stock
}

func TestUpdateLowStockProducts(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t, 3, 12, 9)

	result, err := f.svc.UpdateLowStockProducts(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Updated 2 low-stock products", result.Message)
	require.Len(t, result.Products, 2)
	assert.Equal(t, seeded[0].ID, result.Products[0].ID)
	assert.Equal(t, 13, result.Products[0].Stock)
	assert.Equal(t, seeded[2].ID, result.Products[1].ID)
	assert.Equal(t, 19, result.Products[1].Stock)

	assert.Equal(t, 13, f.stock(t, seeded[0]))
	assert.Equal(t, 12, f.stock(t, seeded[1]))
	assert.Equal(t, 19, f.stock(t, seeded[2]))
}

func TestUpdateLowStockProductsNothingToDo(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 3)

	_, err := f.svc.UpdateLowStockProducts(context.Background())
	require.NoError(t, err)

	result, err := f.svc.UpdateLowStockProducts(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Updated 0 low-stock products", result.Message)
	assert.NotNil(t, result.Products)
	assert.Empty(t, result.Products)
}

func TestUpdateLowStockSkipsRowsRestockedElsewhere(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t, 4, 5)

	// Another sweep got to the second product first.
	ok, err := f.repo.IncrementStockBelow(context.Background(), f.db, seeded[1].ID, 10, 10)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := f.svc.UpdateLowStockProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, seeded[0].ID, result.Products[0].ID)
	assert.Equal(t, 15, f.stock(t, seeded[1]))
}

func TestUpdateLowStockCanceled(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.UpdateLowStockProducts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunWritesLowStockLog(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 3, 12)

	n, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(f.logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Equal(t, []string{
		"[2025-06-01 12:00:00] Product: Pen, New stock: 13",
		"[2025-06-01 12:00:00] Updated 1 low-stock products",
	}, lines)
}
