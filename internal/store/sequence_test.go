package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceBackend_Reserve(t *testing.T) {
	s := createTestStore(t)
	seq := s.Sequences()
	ctx := context.Background()

	first, err := seq.Reserve(ctx, "Order", 1, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first)

	first, err = seq.Reserve(ctx, "Order", 5, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), first)

	first, err = seq.Reserve(ctx, "Order", 1, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1006), first)

	first, err = seq.Reserve(ctx, "Customer", 1, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first, "sequences are isolated per name")
}

func TestSequenceBackend_ResetAndClear(t *testing.T) {
	s := createTestStore(t)
	seq := s.Sequences()
	ctx := context.Background()

	_, err := seq.Reserve(ctx, "Order", 3, 1000, 10)
	require.NoError(t, err)

	require.NoError(t, seq.Reset(ctx, "Order", 2000))
	first, err := seq.Reserve(ctx, "Order", 1, 1000, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), first)

	require.NoError(t, seq.Clear(ctx))
	first, err = seq.Reserve(ctx, "Order", 1, 1000, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first)
}

func TestSequenceBackend_SurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/seq.db"
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.Sequences().Reserve(ctx, "Order", 2, 1000, 1)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s2.Close() })
	first, err := s2.Sequences().Reserve(ctx, "Order", 1, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1002), first)
}
