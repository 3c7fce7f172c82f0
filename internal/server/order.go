package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/crm/internal/order/domain"
	"github.com/smallbiznis/crm/pkg/db/option"
)

type createOrderRequest struct {
	CustomerID string   `json:"customer_id"`
	ProductIDs []string `json:"product_ids"`
	OrderDate  string   `json:"order_date"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	customerID, err := parseOptionalSnowflakeID(req.CustomerID)
	if err != nil || customerID == nil {
		AbortWithError(c, orderdomain.ErrInvalidCustomer)
		return
	}

	productIDs := make([]snowflake.ID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		id, err := parseOptionalSnowflakeID(raw)
		if err != nil || id == nil {
			AbortWithError(c, fmt.Errorf("%w: %s", orderdomain.ErrInvalidProductID, strings.TrimSpace(raw)))
			return
		}
		productIDs = append(productIDs, *id)
	}

	var orderDate *time.Time
	if strings.TrimSpace(req.OrderDate) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(req.OrderDate))
		if err != nil {
			AbortWithError(c, newValidationError("order_date", "invalid_order_date", "invalid order_date"))
			return
		}
		orderDate = &parsed
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateOrderRequest{
		CustomerID: *customerID,
		ProductIDs: productIDs,
		OrderDate:  orderDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		TotalAmountGte string `form:"total_amount_gte"`
		TotalAmountLte string `form:"total_amount_lte"`
		OrderDateGte   string `form:"order_date_gte"`
		OrderDateLte   string `form:"order_date_lte"`
		CustomerName   string `form:"customer_name"`
		ProductName    string `form:"product_name"`
		ProductID      string `form:"product_id"`
		OrderBy        string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	totalGte, err := parseOptionalDecimal(query.TotalAmountGte)
	if err != nil {
		AbortWithError(c, newValidationError("total_amount_gte", "invalid_total_amount_gte", "invalid total_amount_gte"))
		return
	}
	totalLte, err := parseOptionalDecimal(query.TotalAmountLte)
	if err != nil {
		AbortWithError(c, newValidationError("total_amount_lte", "invalid_total_amount_lte", "invalid total_amount_lte"))
		return
	}
	dateGte, err := parseOptionalTime(query.OrderDateGte, false)
	if err != nil {
		AbortWithError(c, newValidationError("order_date_gte", "invalid_order_date_gte", "invalid order_date_gte"))
		return
	}
	dateLte, err := parseOptionalTime(query.OrderDateLte, false)
	if err != nil {
		AbortWithError(c, newValidationError("order_date_lte", "invalid_order_date_lte", "invalid order_date_lte"))
		return
	}
	productID, err := parseOptionalSnowflakeID(query.ProductID)
	if err != nil {
		AbortWithError(c, newValidationError("product_id", "invalid_product_id_filter", "invalid product_id"))
		return
	}

	sort, err := option.ParseSort(query.OrderBy, orderdomain.SortFields...)
	if err != nil {
		AbortWithError(c, sortError(err, orderdomain.ErrInvalidOrderBy))
		return
	}

	orders, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListOrderFilter{
		TotalAmountGte: totalGte,
		TotalAmountLte: totalLte,
		OrderDateGte:   dateGte,
		OrderDateLte:   dateLte,
		CustomerName:   strings.TrimSpace(query.CustomerName),
		ProductName:    strings.TrimSpace(query.ProductName),
		ProductID:      productID,
		Sort:           sort,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}
