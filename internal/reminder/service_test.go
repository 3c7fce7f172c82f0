package reminder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	"github.com/smallbiznis/crm/internal/logsink"
	orderdomain "github.com/smallbiznis/crm/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubOrders struct {
	orders []orderdomain.Order
	filter orderdomain.ListOrderFilter
}

func (s *stubOrders) Create(context.Context, orderdomain.CreateOrderRequest) (orderdomain.CreateOrderResponse, error) {
	return orderdomain.CreateOrderResponse{}, nil
}

func (s *stubOrders) List(_ context.Context, filter orderdomain.ListOrderFilter) ([]orderdomain.Order, error) {
	s.filter = filter
	return s.orders, nil
}

var now = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T, orders *stubOrders) (*Service, string) {
	t.Helper()
	cfg := config.DefaultJobsConfig()
	cfg.Reminders.LogPath = filepath.Join(t.TempDir(), "reminders.txt")

	sinks := logsink.NewRegistry()
	t.Cleanup(func() { _ = sinks.Close() })

	return New(Params{
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(now),
		Jobs:   config.NewStaticJobsConfigHolder(cfg),
		Sinks:  sinks,
		Orders: orders,
	}), cfg.Reminders.LogPath
}

func TestSendWritesOneLinePerOrder(t *testing.T) {
	orders := &stubOrders{orders: []orderdomain.Order{{
		ID:          snowflake.ID(42),
		TotalAmount: decimal.NewFromInt(25),
		CreatedAt:   time.Date(2025, 5, 18, 14, 30, 0, 0, time.UTC),
		Customer:    &customerdomain.Customer{Email: "alice@example.com"},
	}}}
	svc, path := newService(t, orders)

	n, err := svc.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NotNil(t, orders.filter.OrderDateGte)
	assert.Equal(t, now.AddDate(0, 0, -7), *orders.filter.OrderDateGte)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"[2025-05-20 08:00:00] Order reminders batch started",
		"[2025-05-20 08:00:00] Order ID: 42, Customer: alice@example.com, Date: 2025-05-18T14:30:00Z",
		"[2025-05-20 08:00:00] Order reminders batch completed",
		"",
		"",
	}, "\n"), string(data))
}

func TestSendWithoutOrders(t *testing.T) {
	svc, path := newService(t, &stubOrders{})

	n, err := svc.Send(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[2025-05-20 08:00:00] No orders found in the last 7 days\n")
}
