package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperror"
	"github.com/smallbiznis/crm/internal/clock"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	"github.com/smallbiznis/crm/internal/observability/metrics"
	"github.com/smallbiznis/crm/internal/observability/tracing"
	"github.com/smallbiznis/crm/internal/order/domain"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("crm/order")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	ProductRepo  productdomain.Repository
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	productRepo  productdomain.Repository
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("order.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		productRepo:  p.ProductRepo,
		metrics:      p.Metrics,
	}
}

// Create resolves the customer and every product, then writes the order and
// its product rows in one transaction. Any unresolved reference rolls back
// the whole order.
func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (resp domain.CreateOrderResponse, err error) {
	ctx, span := tracer.Start(ctx, "order.create")
	span.SetAttributes(attribute.Int("order.product_ids", len(req.ProductIDs)))
	defer func() {
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, "order not created")
		} else {
			span.SetAttributes(attribute.String("order.id", resp.Order.ID.String()))
		}
		span.End()
	}()

	if req.CustomerID == 0 {
		return domain.CreateOrderResponse{}, domain.ErrInvalidCustomer
	}

	createdAt := s.clock.Now().UTC()
	if req.OrderDate != nil && !req.OrderDate.IsZero() {
		createdAt = req.OrderDate.UTC()
	}

	var order domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrInvalidCustomer
		}

		ids := uniqueIDs(req.ProductIDs)
		if len(ids) == 0 {
			return domain.ErrEmptyProductIDs
		}

		products, err := s.resolveProducts(ctx, tx, ids)
		if err != nil {
			return err
		}

		total := decimal.Zero
		items := make([]domain.OrderProduct, 0, len(products))
		order = domain.Order{
			ID:         s.genID.Generate(),
			CustomerID: customer.ID,
			CreatedAt:  createdAt,
			Customer:   customer,
			Products:   products,
		}
		for _, product := range products {
			total = total.Add(product.Price)
			items = append(items, domain.OrderProduct{
				OrderID:   order.ID,
				ProductID: product.ID,
				UnitPrice: product.Price,
			})
		}
		order.TotalAmount = total

		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		return s.repo.InsertProducts(ctx, tx, items)
	})
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return domain.CreateOrderResponse{}, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.CreateOrderResponse{}, err
		}
		s.log.Error("order transaction failed", zap.Error(err))
		return domain.CreateOrderResponse{}, fmt.Errorf("%w: %w", domain.ErrTransaction, err)
	}

	s.metrics.IncOrderCreated()
	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", order.CustomerID.String()),
		zap.Int("products", len(order.Products)),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
	)
	return domain.CreateOrderResponse{Order: order}, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListOrderFilter) ([]domain.Order, error) {
	orders, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}
	if err := s.hydrate(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// resolveProducts returns the products in request order, failing on the
// first id that does not exist.
func (s *Service) resolveProducts(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]productdomain.Product, error) {
	found, err := s.productRepo.FindByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]productdomain.Product, len(found))
	for _, product := range found {
		byID[product.ID] = product
	}

	products := make([]productdomain.Product, 0, len(ids))
	for _, id := range ids {
		product, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProductID, id)
		}
		products = append(products, product)
	}
	return products, nil
}

// hydrate attaches customers and products to listed orders with one query
// per relation.
func (s *Service) hydrate(ctx context.Context, orders []domain.Order) error {
	orderIDs := make([]snowflake.ID, 0, len(orders))
	customerIDs := make([]snowflake.ID, 0, len(orders))
	for _, order := range orders {
		orderIDs = append(orderIDs, order.ID)
		customerIDs = append(customerIDs, order.CustomerID)
	}

	customers, err := s.customerRepo.FindByIDs(ctx, s.db, uniqueIDs(customerIDs))
	if err != nil {
		return err
	}
	customerByID := make(map[snowflake.ID]*customerdomain.Customer, len(customers))
	for i := range customers {
		customerByID[customers[i].ID] = &customers[i]
	}

	items, err := s.repo.ListProducts(ctx, s.db, orderIDs)
	if err != nil {
		return err
	}
	productIDs := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, s.db, uniqueIDs(productIDs))
	if err != nil {
		return err
	}
	productByID := make(map[snowflake.ID]productdomain.Product, len(products))
	for _, product := range products {
		productByID[product.ID] = product
	}

	productsByOrder := make(map[snowflake.ID][]productdomain.Product, len(orders))
	for _, item := range items {
		if product, ok := productByID[item.ProductID]; ok {
			productsByOrder[item.OrderID] = append(productsByOrder[item.OrderID], product)
		}
	}

	for i := range orders {
		orders[i].Customer = customerByID[orders[i].CustomerID]
		orders[i].Products = productsByOrder[orders[i].ID]
		if orders[i].Products == nil {
			orders[i].Products = []productdomain.Product{}
		}
	}
	return nil
}

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
