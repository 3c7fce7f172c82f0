// Package replenishment restocks products whose stock has fallen below the
// configured threshold.
package replenishment

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	"github.com/smallbiznis/crm/internal/logsink"
	obslogger "github.com/smallbiznis/crm/internal/observability/logger"
	"github.com/smallbiznis/crm/internal/observability/metrics"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const JobName = "replenishment"

// Result is the outcome of one sweep. Products holds the rows this sweep
// changed, with their stock after the increment.
type Result struct {
	Products []productdomain.Product `json:"products"`
	Success  bool                    `json:"success"`
	Message  string                  `json:"message"`
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    productdomain.Repository
	Jobs    *config.JobsConfigHolder
	Sinks   *logsink.Registry
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    productdomain.Repository
	jobs    *config.JobsConfigHolder
	sinks   *logsink.Registry
	metrics *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("replenishment.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		jobs:    p.Jobs,
		sinks:   p.Sinks,
		metrics: p.Metrics,
	}
}

// UpdateLowStockProducts adds the configured increment to every product
// below the threshold. Each row is guarded by its own conditional update,
// so a product already restocked by a concurrent sweep is left alone and
// not reported.
func (s *Service) UpdateLowStockProducts(ctx context.Context) (Result, error) {
	cfg := s.jobs.Get().Replenishment
	log := obslogger.WithContext(ctx, s.log)

	candidates, err := s.repo.ListBelowStock(ctx, s.db, cfg.Threshold)
	if err != nil {
		return Result{}, err
	}

	updated := make([]snowflake.ID, 0, len(candidates))
	for _, product := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		ok, err := s.repo.IncrementStockBelow(ctx, s.db, product.ID, cfg.Increment, cfg.Threshold)
		if err != nil {
			return Result{}, fmt.Errorf("restock product %s: %w", product.ID, err)
		}
		if ok {
			updated = append(updated, product.ID)
		}
	}

	products, err := s.reload(ctx, updated)
	if err != nil {
		return Result{}, err
	}

	s.metrics.AddProductsRestocked(len(products))
	log.Info("low stock products updated",
		zap.Int("candidates", len(candidates)),
		zap.Int("updated", len(products)),
		zap.Int("threshold", cfg.Threshold),
		zap.Int("increment", cfg.Increment),
	)

	return Result{
		Products: products,
		Success:  true,
		Message:  fmt.Sprintf("Updated %d low-stock products", len(products)),
	}, nil
}

// Run is the scheduled form of UpdateLowStockProducts. It appends one line
// per restocked product and a summary line to the low-stock log, and
// returns how many products were restocked.
func (s *Service) Run(ctx context.Context) (int, error) {
	result, err := s.UpdateLowStockProducts(ctx)
	if err != nil {
		return 0, err
	}

	sink, err := s.sinks.Open(s.jobs.Get().Replenishment.LogPath)
	if err != nil {
		s.log.Warn("low stock log unavailable", zap.Error(err))
		return len(result.Products), nil
	}

	stamp := s.clock.Now().Format(time.DateTime)
	lines := make([]string, 0, len(result.Products)+1)
	for _, p := range result.Products {
		lines = append(lines, fmt.Sprintf("[%s] Product: %s, New stock: %d", stamp, p.Name, p.Stock))
	}
	lines = append(lines, fmt.Sprintf("[%s] %s", stamp, result.Message))

	for _, line := range lines {
		if err := sink.WriteLine(line); err != nil {
			s.log.Warn("low stock log write failed", zap.Error(err))
			break
		}
	}
	return len(result.Products), nil
}

// reload reads the updated rows back so the reported stock is what the
// store holds, in id order.
func (s *Service) reload(ctx context.Context, ids []snowflake.ID) ([]productdomain.Product, error) {
	if len(ids) == 0 {
		return []productdomain.Product{}, nil
	}
	found, err := s.repo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]productdomain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	products := make([]productdomain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}
