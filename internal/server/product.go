package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	"github.com/smallbiznis/crm/pkg/db/option"
)

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateProductRequest{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		NameContains string `form:"name_icontains"`
		PriceGte     string `form:"price_gte"`
		PriceLte     string `form:"price_lte"`
		StockGte     string `form:"stock_gte"`
		StockLte     string `form:"stock_lte"`
		OrderBy      string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	priceGte, err := parseOptionalDecimal(query.PriceGte)
	if err != nil {
		AbortWithError(c, newValidationError("price_gte", "invalid_price_gte", "invalid price_gte"))
		return
	}
	priceLte, err := parseOptionalDecimal(query.PriceLte)
	if err != nil {
		AbortWithError(c, newValidationError("price_lte", "invalid_price_lte", "invalid price_lte"))
		return
	}
	stockGte, err := parseOptionalInt(query.StockGte)
	if err != nil {
		AbortWithError(c, newValidationError("stock_gte", "invalid_stock_gte", "invalid stock_gte"))
		return
	}
	stockLte, err := parseOptionalInt(query.StockLte)
	if err != nil {
		AbortWithError(c, newValidationError("stock_lte", "invalid_stock_lte", "invalid stock_lte"))
		return
	}

	sort, err := option.ParseSort(query.OrderBy, productdomain.SortFields...)
	if err != nil {
		AbortWithError(c, sortError(err, productdomain.ErrInvalidOrderBy))
		return
	}

	products, err := s.productSvc.List(c.Request.Context(), productdomain.ListProductFilter{
		NameContains: query.NameContains,
		PriceGte:     priceGte,
		PriceLte:     priceLte,
		StockGte:     stockGte,
		StockLte:     stockLte,
		Sort:         sort,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

// UpdateLowStockProducts runs the restock sweep on demand. The result shape
// matches the scheduled run; only the log file is left to the scheduler.
func (s *Server) UpdateLowStockProducts(c *gin.Context) {
	result, err := s.replenishment.UpdateLowStockProducts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
