package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorageGetMissing(t *testing.T) {
	s := NewMemoryStorage()

	v, found, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)
}

func TestMemoryStorageSetOverwrites(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "first"))
	require.NoError(t, s.Set(ctx, "k", "second"))

	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", v)
}

func TestMemoryStorageEmptyValueIsFound(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", ""))

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
}
