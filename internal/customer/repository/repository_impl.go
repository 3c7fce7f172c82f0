package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/customer/domain"
	"github.com/smallbiznis/crm/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, name, email, phone, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Customer, error) {
	var customers []domain.Customer
	if len(ids) == 0 {
		return customers, nil
	}
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&customers).Error
	return customers, err
}

// CountByEmail expects email already normalised to lower case.
func (r *repo) CountByEmail(ctx context.Context, db *gorm.DB, email string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("email = ?", email).
		Count(&count).Error
	return count, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := option.Chain(
		db.WithContext(ctx).Model(&domain.Customer{}),
		option.ContainsFold("customers.name", filter.NameContains),
		option.ContainsFold("customers.email", filter.EmailContains),
		option.Gte("customers.created_at", filter.CreatedFrom),
		option.Lte("customers.created_at", filter.CreatedTo),
		option.HasPrefix("customers.phone", filter.PhonePrefix),
		option.WithSort("customers", filter.Sort),
	)
	if err := stmt.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
