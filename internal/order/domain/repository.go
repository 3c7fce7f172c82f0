package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

//go:generate mockgen -source=repository.go -destination=mocks/repository.go -package=mocks

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertProducts(ctx context.Context, db *gorm.DB, items []OrderProduct) error
	List(ctx context.Context, db *gorm.DB, filter ListOrderFilter) ([]Order, error)
	ListProducts(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]OrderProduct, error)
}
