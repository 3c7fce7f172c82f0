package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperror"
	"github.com/smallbiznis/crm/pkg/db/option"
)

// SortField enumerates the sortable order columns.
type SortField string

const (
	SortByTotalAmount SortField = "total_amount"
	SortByCreatedAt   SortField = "created_at"
	SortByID          SortField = "id"
)

var SortFields = []SortField{SortByTotalAmount, SortByCreatedAt, SortByID}

// ListOrderFilter holds the conjunctive order filters. OrderDateGte and
// OrderDateLte are compared by UTC calendar day, both inclusive.
type ListOrderFilter struct {
	TotalAmountGte *decimal.Decimal
	TotalAmountLte *decimal.Decimal
	OrderDateGte   *time.Time
	OrderDateLte   *time.Time
	CustomerName   string
	ProductName    string
	ProductID      *snowflake.ID
	Sort           *option.Sort[SortField]
}

// DayBounds turns the inclusive date filters into a half-open
// [from, before) range over created_at: from is the start of the gte day and
// before is the start of the day after lte, both in UTC.
func (f ListOrderFilter) DayBounds() (from, before *time.Time) {
	if f.OrderDateGte != nil {
		start := startOfDay(*f.OrderDateGte)
		from = &start
	}
	if f.OrderDateLte != nil {
		next := startOfDay(*f.OrderDateLte).AddDate(0, 0, 1)
		before = &next
	}
	return from, before
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type CreateOrderRequest struct {
	CustomerID snowflake.ID   `json:"customer_id"`
	ProductIDs []snowflake.ID `json:"product_ids"`
	OrderDate  *time.Time     `json:"order_date,omitempty"`
}

type CreateOrderResponse struct {
	Order Order `json:"order"`
}

type Service interface {
	Create(context.Context, CreateOrderRequest) (CreateOrderResponse, error)
	List(context.Context, ListOrderFilter) ([]Order, error)
}

var (
	ErrInvalidCustomer  = apperror.NotFound("customer_id", "invalid_customer", "invalid customer")
	ErrEmptyProductIDs  = apperror.Validation("product_ids", "empty_product_ids", "at least one product is required")
	ErrInvalidProductID = apperror.NotFound("product_ids", "invalid_product_id", "invalid product id")
	ErrInvalidOrderBy   = apperror.Validation("order_by", "invalid_order_by", "unknown sort field")
	ErrTransaction      = apperror.Transaction("order_commit_failed", "order could not be committed", nil)
)
