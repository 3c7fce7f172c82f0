package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperror"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/product/domain"
	"github.com/smallbiznis/crm/internal/product/repository"
	"github.com/smallbiznis/crm/internal/testutil/dbtest"
	"github.com/smallbiznis/crm/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	return New(Params{
		DB:    dbtest.Open(t),
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clock.NewFakeClock(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func intPtr(v int) *int { return &v }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func seed(t *testing.T, svc domain.Service, items ...domain.CreateProductRequest) []domain.Product {
	t.Helper()
	out := make([]domain.Product, 0, len(items))
	for _, item := range items {
		resp, err := svc.Create(context.Background(), item)
		require.NoError(t, err)
		out = append(out, resp.Product)
	}
	return out
}

func prices(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Price.StringFixed(2))
	}
	return out
}

func TestCreateProductDefaultsStock(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Create(context.Background(), domain.CreateProductRequest{
		Name:  "Laptop",
		Price: decimal.RequireFromString("999.99"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Product.Stock)
	assert.Equal(t, "999.99", resp.Product.Price.StringFixed(2))

	listed, err := svc.List(context.Background(), domain.ListProductFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 0, listed[0].Stock)
	assert.True(t, listed[0].Price.Equal(decimal.RequireFromString("999.99")))
}

func TestCreateProductValidation(t *testing.T) {
	cases := []struct {
		name string
		req  domain.CreateProductRequest
		want error
	}{
		{"zero price", domain.CreateProductRequest{Name: "Pen", Price: decimal.Zero}, domain.ErrInvalidPrice},
		{"negative price", domain.CreateProductRequest{Name: "Pen", Price: decimal.RequireFromString("-1")}, domain.ErrInvalidPrice},
		{"sub-cent price", domain.CreateProductRequest{Name: "Pen", Price: decimal.RequireFromString("0.001")}, domain.ErrInvalidPrice},
		{"three decimal places", domain.CreateProductRequest{Name: "Pen", Price: decimal.RequireFromString("10.005")}, domain.ErrInvalidPrice},
		{"negative stock", domain.CreateProductRequest{Name: "Pen", Price: decimal.NewFromInt(1), Stock: intPtr(-1)}, domain.ErrInvalidStock},
		{"missing name", domain.CreateProductRequest{Price: decimal.NewFromInt(1)}, domain.ErrInvalidName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t)

			_, err := svc.Create(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.want)
			assert.True(t, apperror.IsValidation(err))

			listed, err := svc.List(context.Background(), domain.ListProductFilter{})
			require.NoError(t, err)
			assert.Empty(t, listed)
		})
	}
}

func TestListProductsPriceRange(t *testing.T) {
	svc := newTestService(t)
	for _, price := range []int64{5, 10, 15, 20, 25} {
		seed(t, svc, domain.CreateProductRequest{Name: "Item", Price: decimal.NewFromInt(price), Stock: intPtr(1)})
	}
	ctx := context.Background()

	got, err := svc.List(ctx, domain.ListProductFilter{PriceGte: decPtr("10"), PriceLte: decPtr("20")})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.00", "15.00", "20.00"}, prices(got))

	again, err := svc.List(ctx, domain.ListProductFilter{PriceGte: decPtr("10"), PriceLte: decPtr("20")})
	require.NoError(t, err)
	assert.Equal(t, got, again)

	got, err = svc.List(ctx, domain.ListProductFilter{PriceGte: decPtr("1000")})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListProductsStockAndNameFilters(t *testing.T) {
	svc := newTestService(t)
	seed(t, svc,
		domain.CreateProductRequest{Name: "Blue Pen", Price: decimal.NewFromInt(2), Stock: intPtr(3)},
		domain.CreateProductRequest{Name: "Red pen", Price: decimal.NewFromInt(3), Stock: intPtr(12)},
		domain.CreateProductRequest{Name: "Notebook", Price: decimal.NewFromInt(4), Stock: intPtr(9)},
	)
	ctx := context.Background()

	got, err := svc.List(ctx, domain.ListProductFilter{NameContains: "PEN", StockLte: intPtr(10)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Blue Pen", got[0].Name)

	got, err = svc.List(ctx, domain.ListProductFilter{StockGte: intPtr(9)})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListProductsSort(t *testing.T) {
	svc := newTestService(t)
	seed(t, svc,
		domain.CreateProductRequest{Name: "A", Price: decimal.NewFromInt(7), Stock: intPtr(3)},
		domain.CreateProductRequest{Name: "B", Price: decimal.NewFromInt(7), Stock: intPtr(12)},
		domain.CreateProductRequest{Name: "C", Price: decimal.NewFromInt(1), Stock: intPtr(9)},
	)
	ctx := context.Background()

	sort, err := option.ParseSort("-stock", domain.SortFields...)
	require.NoError(t, err)
	got, err := svc.List(ctx, domain.ListProductFilter{Sort: sort})
	require.NoError(t, err)
	assert.Equal(t, []int{12, 9, 3}, []int{got[0].Stock, got[1].Stock, got[2].Stock})

	// Equal prices fall back to id order, which follows insertion.
	sort, err = option.ParseSort("price", domain.SortFields...)
	require.NoError(t, err)
	got, err = svc.List(ctx, domain.ListProductFilter{Sort: sort})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, []string{got[0].Name, got[1].Name, got[2].Name})

	_, err = option.ParseSort("-cost", domain.SortFields...)
	assert.ErrorIs(t, err, option.ErrUnknownSortField)
}
