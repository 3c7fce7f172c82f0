package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/observability/metrics"
	"github.com/smallbiznis/crm/internal/product/domain"
	"github.com/smallbiznis/crm/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("product.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, filter domain.ListProductFilter) ([]domain.Product, error) {
	filter.NameContains = strings.TrimSpace(filter.NameContains)
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.CreateProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if !validation.NameIsPresent(name) {
		return domain.CreateProductResponse{}, domain.ErrInvalidName
	}
	if !validation.PriceIsPositive(req.Price) || !validation.PriceHasCents(req.Price) {
		return domain.CreateProductResponse{}, domain.ErrInvalidPrice
	}

	stock := 0
	if req.Stock != nil {
		stock = *req.Stock
	}
	if !validation.StockIsNonNegative(stock) {
		return domain.CreateProductResponse{}, domain.ErrInvalidStock
	}

	product := domain.Product{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Stock:       stock,
		CreatedAt:   s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		return domain.CreateProductResponse{}, err
	}
	s.metrics.IncProductCreated()

	return domain.CreateProductResponse{Product: product}, nil
}
