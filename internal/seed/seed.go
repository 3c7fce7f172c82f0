// Package seed inserts sample customers and products for local development.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(runSeed),
)

type sampleCustomer struct {
	name  string
	email string
	phone string
}

type sampleProduct struct {
	name  string
	price string
	stock int
}

var sampleCustomers = []sampleCustomer{
	{name: "Alice Johnson", email: "alice@example.com", phone: "+1234567890"},
	{name: "Bob Smith", email: "bob@example.com", phone: "123-456-7890"},
	{name: "Carol White", email: "carol@example.com"},
}

// Two of the products start below the restock threshold.
var sampleProducts = []sampleProduct{
	{name: "Laptop", price: "999.99", stock: 5},
	{name: "Phone", price: "499.50", stock: 25},
	{name: "Mouse", price: "19.99", stock: 3},
}

func runSeed(cfg config.Config, db *gorm.DB, node *snowflake.Node, clk clock.Clock, log *zap.Logger) error {
	if !cfg.SeedSampleData {
		return nil
	}
	customers, products, err := EnsureSampleData(context.Background(), db, node, clk.Now())
	if err != nil {
		return err
	}
	log.Info("sample data ensured", zap.Int("customers_created", customers), zap.Int("products_created", products))
	return nil
}

// EnsureSampleData creates the sample rows that do not exist yet, matching
// customers by email and products by name, and returns how many it created.
func EnsureSampleData(ctx context.Context, db *gorm.DB, node *snowflake.Node, now time.Time) (int, int, error) {
	if db == nil {
		return 0, 0, errors.New("seed database handle is required")
	}

	var createdCustomers, createdProducts int
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sample := range sampleCustomers {
			created, err := ensureCustomerTx(ctx, tx, node, sample, now)
			if err != nil {
				return err
			}
			if created {
				createdCustomers++
			}
		}
		for _, sample := range sampleProducts {
			created, err := ensureProductTx(ctx, tx, node, sample, now)
			if err != nil {
				return err
			}
			if created {
				createdProducts++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return createdCustomers, createdProducts, nil
}

func ensureCustomerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, sample sampleCustomer, now time.Time) (bool, error) {
	var existing customerdomain.Customer
	err := tx.WithContext(ctx).Where("email = ?", sample.email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	customer := customerdomain.Customer{
		ID:        node.Generate(),
		Name:      sample.name,
		Email:     sample.email,
		Phone:     sample.phone,
		CreatedAt: now.UTC(),
	}
	return true, tx.WithContext(ctx).Create(&customer).Error
}

func ensureProductTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, sample sampleProduct, now time.Time) (bool, error) {
	var existing productdomain.Product
	err := tx.WithContext(ctx).Where("name = ?", sample.name).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	product := productdomain.Product{
		ID:        node.Generate(),
		Name:      sample.name,
		Price:     decimal.RequireFromString(sample.price),
		Stock:     sample.stock,
		CreatedAt: now.UTC(),
	}
	return true, tx.WithContext(ctx).Create(&product).Error
}
