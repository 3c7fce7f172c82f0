package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperror"
	"github.com/smallbiznis/crm/pkg/db/option"
)

// SortField enumerates the sortable product columns.
type SortField string

const (
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByStock     SortField = "stock"
	SortByCreatedAt SortField = "created_at"
	SortByID        SortField = "id"
)

var SortFields = []SortField{SortByName, SortByPrice, SortByStock, SortByCreatedAt, SortByID}

// ListProductFilter holds the conjunctive product filters. Nil bounds are ignored.
type ListProductFilter struct {
	NameContains string
	PriceGte     *decimal.Decimal
	PriceLte     *decimal.Decimal
	StockGte     *int
	StockLte     *int
	Sort         *option.Sort[SortField]
}

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock,omitempty"`
}

type CreateProductResponse struct {
	Product Product `json:"product"`
}

type Service interface {
	Create(context.Context, CreateProductRequest) (CreateProductResponse, error)
	List(context.Context, ListProductFilter) ([]Product, error)
}

var (
	ErrInvalidName    = apperror.Validation("name", "invalid_name", "name is required")
	ErrInvalidPrice   = apperror.Validation("price", "invalid_price", "price must be positive with at most two decimal places")
	ErrInvalidStock   = apperror.Validation("stock", "invalid_stock", "stock cannot be negative")
	ErrInvalidOrderBy = apperror.Validation("order_by", "invalid_order_by", "unknown sort field")
)
