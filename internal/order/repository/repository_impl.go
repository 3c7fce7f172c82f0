package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/order/domain"
	"github.com/smallbiznis/crm/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, customer_id, total_amount, created_at)
		 VALUES (?, ?, ?, ?)`,
		order.ID,
		order.CustomerID,
		order.TotalAmount,
		order.CreatedAt,
	).Error
}

func (r *repo) InsertProducts(ctx context.Context, db *gorm.DB, items []domain.OrderProduct) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(&items, 100).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListOrderFilter) ([]domain.Order, error) {
	var orders []domain.Order

	from, before := filter.DayBounds()
	stmt := option.Chain(
		db.WithContext(ctx).Model(&domain.Order{}).Select("orders.*"),
		option.Gte("orders.total_amount", filter.TotalAmountGte),
		option.Lte("orders.total_amount", filter.TotalAmountLte),
		option.Gte("orders.created_at", from),
		option.Lt("orders.created_at", before),
		withCustomerName(filter.CustomerName),
		withProduct(db.WithContext(ctx), filter.ProductName, filter.ProductID),
		option.WithSort("orders", filter.Sort),
	)
	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ListProducts(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]domain.OrderProduct, error) {
	var items []domain.OrderProduct
	if len(orderIDs) == 0 {
		return items, nil
	}
	err := db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("order_id ASC, product_id ASC").
		Find(&items).Error
	return items, err
}

// withCustomerName joins the owning customer; each order has exactly one,
// so the join never duplicates rows.
func withCustomerName(name string) option.QueryOption {
	return option.QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if name == "" {
			return db
		}
		db = db.Joins("JOIN customers ON customers.id = orders.customer_id")
		return option.ContainsFold("customers.name", name).Apply(db)
	})
}

// withProduct restricts to orders holding a matching product. It filters
// through a subquery so an order matching several products is returned once.
func withProduct(base *gorm.DB, name string, productID *snowflake.ID) option.QueryOption {
	return option.QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if name == "" && productID == nil {
			return db
		}
		sub := base.Session(&gorm.Session{NewDB: true}).
			Table("order_products").
			Select("order_products.order_id").
			Joins("JOIN products ON products.id = order_products.product_id")
		sub = option.Chain(sub,
			option.ContainsFold("products.name", name),
			eqProductID(productID),
		)
		return db.Where("orders.id IN (?)", sub)
	})
}

func eqProductID(id *snowflake.ID) option.QueryOption {
	return option.QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if id == nil {
			return db
		}
		return db.Where("order_products.product_id = ?", *id)
	})
}
