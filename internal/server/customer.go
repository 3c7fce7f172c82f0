package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	"github.com/smallbiznis/crm/pkg/db/option"
)

type createCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (r createCustomerRequest) toDomain() customerdomain.CreateCustomerRequest {
	return customerdomain.CreateCustomerRequest{
		Name:  r.Name,
		Email: r.Email,
		Phone: r.Phone,
	}
}

type bulkCreateCustomersRequest struct {
	Customers []createCustomerRequest `json:"customers"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// BulkCreateCustomers always answers 200 when the body parses; rejected rows
// are reported in data.errors next to the created customers.
func (s *Server) BulkCreateCustomers(c *gin.Context) {
	var req bulkCreateCustomersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rows := make([]customerdomain.CreateCustomerRequest, 0, len(req.Customers))
	for _, row := range req.Customers {
		rows = append(rows, row.toDomain())
	}

	resp, err := s.customerSvc.BulkCreate(c.Request.Context(), rows)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		NameContains  string `form:"name_icontains"`
		EmailContains string `form:"email_icontains"`
		CreatedFrom   string `form:"created_at_gte"`
		CreatedTo     string `form:"created_at_lte"`
		PhonePattern  string `form:"phone_pattern"`
		OrderBy       string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	createdFrom, err := parseOptionalTime(query.CreatedFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("created_at_gte", "invalid_created_at_gte", "invalid created_at_gte"))
		return
	}

	createdTo, err := parseOptionalTime(query.CreatedTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("created_at_lte", "invalid_created_at_lte", "invalid created_at_lte"))
		return
	}

	sort, err := option.ParseSort(query.OrderBy, customerdomain.SortFields...)
	if err != nil {
		AbortWithError(c, sortError(err, customerdomain.ErrInvalidOrderBy))
		return
	}

	customers, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerFilter{
		NameContains:  query.NameContains,
		EmailContains: query.EmailContains,
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
		PhonePrefix:   query.PhonePattern,
		Sort:          sort,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customers})
}

func sortError(err, invalid error) error {
	if errors.Is(err, option.ErrUnknownSortField) {
		return invalid
	}
	return err
}
