package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperror"
	"github.com/smallbiznis/crm/internal/clock"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	customerrepo "github.com/smallbiznis/crm/internal/customer/repository"
	"github.com/smallbiznis/crm/internal/order/domain"
	"github.com/smallbiznis/crm/internal/order/domain/mocks"
	"github.com/smallbiznis/crm/internal/order/repository"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	productrepo "github.com/smallbiznis/crm/internal/product/repository"
	"github.com/smallbiznis/crm/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	svc       domain.Service
	customers customerdomain.Repository
	products  productdomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	node := dbtest.Node(t)
	f := &fixture{
		db:        conn,
		node:      node,
		customers: customerrepo.Provide(),
		products:  productrepo.Provide(),
	}
	f.svc = f.service(repository.Provide())
	return f
}

func (f *fixture) service(repo domain.Repository) domain.Service {
	return New(Params{
		DB:           f.db,
		Log:          zap.NewNop(),
		GenID:        f.node,
		Clock:        clock.NewFakeClock(baseTime),
		Repo:         repo,
		CustomerRepo: f.customers,
		ProductRepo:  f.products,
	})
}

func (f *fixture) customer(t *testing.T, name, email string) customerdomain.Customer {
	t.Helper()
	c := customerdomain.Customer{ID: f.node.Generate(), Name: name, Email: email, CreatedAt: baseTime}
	require.NoError(t, f.customers.Insert(context.Background(), f.db, &c))
	return c
}

func (f *fixture) product(t *testing.T, name, price string) productdomain.Product {
	t.Helper()
	p := productdomain.Product{
		ID:        f.node.Generate(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     5,
		CreatedAt: baseTime,
	}
	require.NoError(t, f.products.Insert(context.Background(), f.db, &p))
	return p
}

func (f *fixture) counts(t *testing.T) (orders, items int64) {
	t.Helper()
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&orders).Error)
	require.NoError(t, f.db.Model(&domain.OrderProduct{}).Count(&items).Error)
	return orders, items
}

func orderIDs(orders []domain.Order) []snowflake.ID {
	out := make([]snowflake.ID, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestCreateOrderSumsProductPrices(t *testing.T) {
	f := newFixture(t)
	alice := f.customer(t, "Alice Smith", "alice@example.com")
	p1 := f.product(t, "Laptop", "10.00")
	p2 := f.product(t, "Mouse", "15.00")

	resp, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: alice.ID,
		ProductIDs: []snowflake.ID{p1.ID, p2.ID},
	})
	require.NoError(t, err)

	order := resp.Order
	assert.Equal(t, "25.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, alice.ID, order.CustomerID)
	assert.Equal(t, baseTime, order.CreatedAt)
	require.NotNil(t, order.Customer)
	assert.Equal(t, "alice@example.com", order.Customer.Email)
	require.Len(t, order.Products, 2)
	assert.Equal(t, p1.ID, order.Products[0].ID)
	assert.Equal(t, p2.ID, order.Products[1].ID)

	orders, items := f.counts(t)
	assert.Equal(t, int64(1), orders)
	assert.Equal(t, int64(2), items)
}

func TestCreateOrderCollapsesDuplicateProducts(t *testing.T) {
	f := newFixture(t)
	alice := f.customer(t, "Alice Smith", "alice@example.com")
	p1 := f.product(t, "Laptop", "10.00")

	resp, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: alice.ID,
		ProductIDs: []snowflake.ID{p1.ID, p1.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "10.00", resp.Order.TotalAmount.StringFixed(2))
	assert.Len(t, resp.Order.Products, 1)
}

func TestCreateOrderUsesGivenOrderDate(t *testing.T) {
	f := newFixture(t)
	alice := f.customer(t, "Alice Smith", "alice@example.com")
	p1 := f.product(t, "Laptop", "10.00")
	when := time.Date(2024, 12, 24, 18, 30, 0, 0, time.FixedZone("WIB", 7*3600))

	resp, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: alice.ID,
		ProductIDs: []snowflake.ID{p1.ID},
		OrderDate:  &when,
	})
	require.NoError(t, err)
	assert.Equal(t, when.UTC(), resp.Order.CreatedAt)
}

func TestCreateOrderMissingProductRollsBack(t *testing.T) {
	f := newFixture(t)
	alice := f.customer(t, "Alice Smith", "alice@example.com")
	p1 := f.product(t, "Laptop", "10.00")
	missing := f.node.Generate()

	_, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: alice.ID,
		ProductIDs: []snowflake.ID{p1.ID, missing},
	})
	require.ErrorIs(t, err, domain.ErrInvalidProductID)
	assert.Contains(t, err.Error(), "invalid product id: "+missing.String())
	assert.True(t, apperror.IsNotFound(err))

	orders, items := f.counts(t)
	assert.Zero(t, orders)
	assert.Zero(t, items)
}

func TestCreateOrderCommitFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	alice := f.customer(t, "Alice Smith", "alice@example.com")
	p1 := f.product(t, "Laptop", "10.00")

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	store := repository.Provide()
	repo.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(store.Insert)
	repo.EXPECT().InsertProducts(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk I/O error"))

	_, err := f.service(repo).Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: alice.ID,
		ProductIDs: []snowflake.ID{p1.ID},
	})
	require.ErrorIs(t, err, domain.ErrTransaction)
	assert.Equal(t, apperror.KindTransaction, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "disk I/O error")

	orders, items := f.counts(t)
	assert.Zero(t, orders)
	assert.Zero(t, items)
}

func TestCreateOrderMissingItemTableRollsBack(t *testing.T) {
	f := newFixture(t)
	alice := f.customer(t, "Alice Smith", "alice@example.com")
	p1 := f.product(t, "Laptop", "10.00")
	require.NoError(t, f.db.Migrator().DropTable(&domain.OrderProduct{}))

	_, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: alice.ID,
		ProductIDs: []snowflake.ID{p1.ID},
	})
	require.ErrorIs(t, err, domain.ErrTransaction)
	assert.Equal(t, apperror.KindTransaction, apperror.KindOf(err))

	var orders int64
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestListOrdersMatchesNonASCIINames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	elodie := f.customer(t, "ÉLODIE Durand", "elodie@example.com")
	bob := f.customer(t, "Bob Stone", "bob@example.com")
	cafe := f.product(t, "Café Crème", "4.50")
	tea := f.product(t, "Tea", "3.00")

	first, err := f.svc.Create(ctx, domain.CreateOrderRequest{CustomerID: elodie.ID, ProductIDs: []snowflake.ID{cafe.ID}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, domain.CreateOrderRequest{CustomerID: bob.ID, ProductIDs: []snowflake.ID{tea.ID}})
	require.NoError(t, err)

	got, err := f.svc.List(ctx, domain.ListOrderFilter{CustomerName: "élodie"})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{first.Order.ID}, orderIDs(got))

	got, err = f.svc.List(ctx, domain.ListOrderFilter{ProductName: "CAFÉ CRÈME"})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{first.Order.ID}, orderIDs(got))
}

func TestCreateOrderRejectsBadReferences(t *testing.T) {
	f := newFixture(t)
	alice := f.customer(t, "Alice Smith", "alice@example.com")
	p1 := f.product(t, "Laptop", "10.00")

	_, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.node.Generate(),
		ProductIDs: []snowflake.ID{p1.ID},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = f.svc.Create(context.Background(), domain.CreateOrderRequest{CustomerID: alice.ID})
	assert.ErrorIs(t, err, domain.ErrEmptyProductIDs)
	assert.True(t, apperror.IsValidation(err))

	orders, _ := f.counts(t)
	assert.Zero(t, orders)
}

func TestListOrdersFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.customer(t, "Alice Smith", "alice@example.com")
	bob := f.customer(t, "Bob Stone", "bob@example.com")
	laptop := f.product(t, "Gaming Laptop", "900.00")
	mouse := f.product(t, "Mouse", "20.00")
	cable := f.product(t, "Cable", "5.00")

	day := func(d int, h int) *time.Time {
		v := time.Date(2025, 3, d, h, 0, 0, 0, time.UTC)
		return &v
	}
	create := func(customer snowflake.ID, when *time.Time, products ...snowflake.ID) domain.Order {
		resp, err := f.svc.Create(ctx, domain.CreateOrderRequest{CustomerID: customer, ProductIDs: products, OrderDate: when})
		require.NoError(t, err)
		return resp.Order
	}

	o1 := create(alice.ID, day(1, 23), laptop.ID, mouse.ID)
	o2 := create(bob.ID, day(2, 0), mouse.ID)
	o3 := create(alice.ID, day(5, 12), cable.ID)

	t.Run("customer name is case insensitive", func(t *testing.T) {
		got, err := f.svc.List(ctx, domain.ListOrderFilter{CustomerName: "alice"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []snowflake.ID{o1.ID, o3.ID}, orderIDs(got))
		for _, o := range got {
			require.NotNil(t, o.Customer)
			assert.Equal(t, "Alice Smith", o.Customer.Name)
		}
	})

	t.Run("product name returns each order once", func(t *testing.T) {
		got, err := f.svc.List(ctx, domain.ListOrderFilter{ProductName: "o"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []snowflake.ID{o1.ID, o2.ID}, orderIDs(got))
	})

	t.Run("product id", func(t *testing.T) {
		got, err := f.svc.List(ctx, domain.ListOrderFilter{ProductID: &mouse.ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []snowflake.ID{o1.ID, o2.ID}, orderIDs(got))
	})

	t.Run("total amount range", func(t *testing.T) {
		gte := decimal.NewFromInt(20)
		lte := decimal.NewFromInt(100)
		got, err := f.svc.List(ctx, domain.ListOrderFilter{TotalAmountGte: &gte, TotalAmountLte: &lte})
		require.NoError(t, err)
		assert.Equal(t, []snowflake.ID{o2.ID}, orderIDs(got))
	})

	t.Run("order date bounds are whole days", func(t *testing.T) {
		got, err := f.svc.List(ctx, domain.ListOrderFilter{OrderDateGte: day(1, 0), OrderDateLte: day(1, 0)})
		require.NoError(t, err)
		assert.Equal(t, []snowflake.ID{o1.ID}, orderIDs(got))

		got, err = f.svc.List(ctx, domain.ListOrderFilter{OrderDateGte: day(2, 15)})
		require.NoError(t, err)
		assert.ElementsMatch(t, []snowflake.ID{o2.ID, o3.ID}, orderIDs(got))
	})

	t.Run("inverted range is empty", func(t *testing.T) {
		got, err := f.svc.List(ctx, domain.ListOrderFilter{OrderDateGte: day(5, 0), OrderDateLte: day(1, 0)})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("hydrates products", func(t *testing.T) {
		got, err := f.svc.List(ctx, domain.ListOrderFilter{CustomerName: "bob"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Len(t, got[0].Products, 1)
		assert.Equal(t, "Mouse", got[0].Products[0].Name)
	})
}
