package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/crm/internal/apperror"
	"github.com/smallbiznis/crm/pkg/db/option"
)

// SortField enumerates the sortable customer columns.
type SortField string

const (
	SortByName      SortField = "name"
	SortByEmail     SortField = "email"
	SortByCreatedAt SortField = "created_at"
	SortByID        SortField = "id"
)

var SortFields = []SortField{SortByName, SortByEmail, SortByCreatedAt, SortByID}

// ListCustomerFilter holds the conjunctive customer filters. Zero values are ignored.
type ListCustomerFilter struct {
	NameContains  string
	EmailContains string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	PhonePrefix   string
	Sort          *option.Sort[SortField]
}

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type CreateCustomerResponse struct {
	Customer Customer `json:"customer"`
	Message  string   `json:"message"`
}

// BulkRowError reports why a single bulk input row was rejected.
type BulkRowError struct {
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type BulkCreateCustomersResponse struct {
	Customers []Customer     `json:"customers"`
	Errors    []BulkRowError `json:"errors"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (CreateCustomerResponse, error)
	BulkCreate(context.Context, []CreateCustomerRequest) (BulkCreateCustomersResponse, error)
	List(context.Context, ListCustomerFilter) ([]Customer, error)
}

const CreatedMessage = "Customer created successfully"

var (
	ErrInvalidName    = apperror.Validation("name", "invalid_name", "name is required")
	ErrInvalidEmail   = apperror.Validation("email", "invalid_email", "invalid email")
	ErrDuplicateEmail = apperror.Validation("email", "duplicate_email", "email already exists")
	ErrInvalidPhone   = apperror.Validation("phone", "invalid_phone", "invalid phone format")
	ErrInvalidOrderBy = apperror.Validation("order_by", "invalid_order_by", "unknown sort field")
)
