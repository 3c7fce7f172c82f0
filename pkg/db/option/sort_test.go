package option

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type field string

const (
	fieldPrice field = "price"
	fieldStock field = "stock"
)

func TestParseSort(t *testing.T) {
	sort, err := ParseSort("-stock", fieldPrice, fieldStock)
	require.NoError(t, err)
	require.NotNil(t, sort)
	assert.Equal(t, fieldStock, sort.Field)
	assert.True(t, sort.Desc)
	assert.Equal(t, "-stock", sort.String())

	sort, err = ParseSort(" price ", fieldPrice, fieldStock)
	require.NoError(t, err)
	assert.Equal(t, fieldPrice, sort.Field)
	assert.False(t, sort.Desc)

	sort, err = ParseSort("", fieldPrice)
	require.NoError(t, err)
	assert.Nil(t, sort)

	_, err = ParseSort("-password", fieldPrice, fieldStock)
	assert.ErrorIs(t, err, ErrUnknownSortField)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "50!%!_off!!", escapeLike("50%_off!"))
	assert.Equal(t, "plain", escapeLike("plain"))
}
