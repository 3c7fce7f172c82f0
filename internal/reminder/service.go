// Package reminder logs a reminder line for every recent order.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	"github.com/smallbiznis/crm/internal/logsink"
	obslogger "github.com/smallbiznis/crm/internal/observability/logger"
	orderdomain "github.com/smallbiznis/crm/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobName = "order_reminders"

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	Jobs   *config.JobsConfigHolder
	Sinks  *logsink.Registry
	Orders orderdomain.Service
}

type Service struct {
	log    *zap.Logger
	clock  clock.Clock
	jobs   *config.JobsConfigHolder
	sinks  *logsink.Registry
	orders orderdomain.Service
}

func New(p Params) *Service {
	return &Service{
		log:    p.Log.Named("reminder.service"),
		clock:  p.Clock,
		jobs:   p.Jobs,
		sinks:  p.Sinks,
		orders: p.Orders,
	}
}

// Send lists orders placed within the lookback window, counted in whole UTC
// days, and writes one line per order between batch started and batch
// completed markers. It returns the number of orders reminded.
func (s *Service) Send(ctx context.Context) (int, error) {
	cfg := s.jobs.Get().Reminders
	now := s.clock.Now().UTC()
	since := now.AddDate(0, 0, -cfg.LookbackDays)

	orders, err := s.orders.List(ctx, orderdomain.ListOrderFilter{OrderDateGte: &since})
	if err != nil {
		return 0, err
	}

	sink, err := s.sinks.Open(cfg.LogPath)
	if err != nil {
		return 0, err
	}

	stamp := "[" + now.Format(time.DateTime) + "] "
	lines := make([]string, 0, len(orders)+3)
	lines = append(lines, stamp+"Order reminders batch started")
	for _, order := range orders {
		email := ""
		if order.Customer != nil {
			email = order.Customer.Email
		}
		lines = append(lines, fmt.Sprintf("%sOrder ID: %s, Customer: %s, Date: %s",
			stamp, order.ID, email, order.CreatedAt.UTC().Format(time.RFC3339)))
	}
	if len(orders) == 0 {
		lines = append(lines, fmt.Sprintf("%sNo orders found in the last %d days", stamp, cfg.LookbackDays))
	}
	lines = append(lines, stamp+"Order reminders batch completed", "")

	for _, line := range lines {
		if err := sink.WriteLine(line); err != nil {
			return 0, fmt.Errorf("write reminder log: %w", err)
		}
	}

	obslogger.WithContext(ctx, s.log).Info("order reminders processed",
		zap.Int("orders", len(orders)),
		zap.Int("lookback_days", cfg.LookbackDays),
	)
	return len(orders), nil
}
