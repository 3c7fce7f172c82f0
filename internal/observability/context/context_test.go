package context

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRunIDMintsULID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())

	_, err := ulid.ParseStrict(id)
	require.NoError(t, err)
	assert.Equal(t, id, RunIDFromContext(ctx))
}

func TestEnsureRunIDKeepsExisting(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")

	_, id := EnsureRunID(ctx)

	assert.Equal(t, "run-1", id)
}

func TestBlankValuesAreIgnored(t *testing.T) {
	ctx := WithJob(WithRequestID(context.Background(), "  "), "")

	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, JobFromContext(ctx))
}
