package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
)

// Order is immutable once committed. TotalAmount is the sum of the product
// prices captured when the order was created.
type Order struct {
	ID          snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CustomerID  snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"order_date"`

	Customer *customerdomain.Customer `gorm:"-" json:"customer,omitempty"`
	Products []productdomain.Product  `gorm:"-" json:"products"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderProduct associates an order with one product and keeps the unit
// price used for the order total.
type OrderProduct struct {
	OrderID   snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"order_id"`
	ProductID snowflake.ID    `gorm:"primaryKey;autoIncrement:false;index" json:"product_id"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
}

func (OrderProduct) TableName() string {
	return "order_products"
}
