package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/product/domain"
	"github.com/smallbiznis/crm/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Where("id = ?", id).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Product, error) {
	var products []domain.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListProductFilter) ([]domain.Product, error) {
	var products []domain.Product
	stmt := option.Chain(
		db.WithContext(ctx).Model(&domain.Product{}),
		option.ContainsFold("products.name", filter.NameContains),
		option.Gte("products.price", filter.PriceGte),
		option.Lte("products.price", filter.PriceLte),
		option.Gte("products.stock", filter.StockGte),
		option.Lte("products.stock", filter.StockLte),
		option.WithSort("products", filter.Sort),
	)
	if err := stmt.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) ListBelowStock(ctx context.Context, db *gorm.DB, threshold int) ([]domain.Product, error) {
	var products []domain.Product
	err := db.WithContext(ctx).
		Where("stock < ?", threshold).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *repo) IncrementStockBelow(ctx context.Context, db *gorm.DB, id snowflake.ID, increment, threshold int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND stock < ?", id, threshold).
		UpdateColumn("stock", gorm.Expr("stock + ?", increment))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
