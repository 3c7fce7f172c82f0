package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/apperror"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/customer/domain"
	"github.com/smallbiznis/crm/internal/observability/metrics"
	"github.com/smallbiznis/crm/internal/validation"
	"github.com/smallbiznis/crm/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("customer.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.CreateCustomerResponse, error) {
	customer, err := s.create(ctx, req)
	if err != nil {
		return domain.CreateCustomerResponse{}, err
	}
	s.metrics.AddCustomersCreated("single", 1)

	return domain.CreateCustomerResponse{
		Customer: customer,
		Message:  domain.CreatedMessage,
	}, nil
}

// BulkCreate inserts rows one by one in input order. Each row sees the rows
// committed before it, so a duplicate inside the batch is rejected like any
// other duplicate. Row failures are collected and never abort the batch.
func (s *Service) BulkCreate(ctx context.Context, reqs []domain.CreateCustomerRequest) (domain.BulkCreateCustomersResponse, error) {
	resp := domain.BulkCreateCustomersResponse{
		Customers: make([]domain.Customer, 0, len(reqs)),
		Errors:    []domain.BulkRowError{},
	}

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return domain.BulkCreateCustomersResponse{}, err
		}

		row := i + 1
		customer, err := s.create(ctx, req)
		if err != nil {
			rowErr := toRowError(row, err)
			if rowErr.Code == "store_error" {
				s.log.Warn("bulk customer row failed", zap.Int("row", row), zap.Error(err))
			}
			s.metrics.IncBulkRowError(rowErr.Code)
			resp.Errors = append(resp.Errors, rowErr)
			continue
		}
		resp.Customers = append(resp.Customers, customer)
	}

	s.metrics.AddCustomersCreated("bulk", len(resp.Customers))
	s.log.Info("bulk customer create finished",
		zap.Int("rows", len(reqs)),
		zap.Int("created", len(resp.Customers)),
		zap.Int("rejected", len(resp.Errors)),
	)
	return resp, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListCustomerFilter) ([]domain.Customer, error) {
	filter.NameContains = strings.TrimSpace(filter.NameContains)
	filter.EmailContains = strings.TrimSpace(filter.EmailContains)
	filter.PhonePrefix = strings.TrimSpace(filter.PhonePrefix)

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}
	return customers, nil
}

func (s *Service) create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if !validation.NameIsPresent(name) {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validation.EmailFormatValid(email) {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	phone := strings.TrimSpace(req.Phone)
	if phone != "" && !validation.PhoneFormatValid(phone) {
		return domain.Customer{}, domain.ErrInvalidPhone
	}

	unique, err := validation.EmailIsUnique(ctx, s.countByEmail, email)
	if err != nil {
		return domain.Customer{}, err
	}
	if !unique {
		return domain.Customer{}, domain.ErrDuplicateEmail
	}

	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		// Lost the race against a concurrent writer; the unique index decides.
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrDuplicateEmail
		}
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) countByEmail(ctx context.Context, email string) (int64, error) {
	return s.repo.CountByEmail(ctx, s.db, email)
}

func toRowError(row int, err error) domain.BulkRowError {
	code := "store_error"
	if appErr, ok := apperror.As(err); ok {
		code = appErr.Code
	}
	return domain.BulkRowError{
		Row:     row,
		Code:    code,
		Message: fmt.Sprintf("Row %d: %s", row, err.Error()),
	}
}
