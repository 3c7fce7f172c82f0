package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListProductFilter) ([]Product, error)
	// ListBelowStock returns products with stock strictly below threshold, by id.
	ListBelowStock(ctx context.Context, db *gorm.DB, threshold int) ([]Product, error)
	// IncrementStockBelow adds increment to the product's stock only while it
	// is still below threshold, and reports whether the row changed.
	IncrementStockBelow(ctx context.Context, db *gorm.DB, id snowflake.ID, increment, threshold int) (bool, error)
}
