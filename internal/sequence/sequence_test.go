package sequence

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, g *Generator, name string) int64 {
	t.Helper()
	id, err := g.Next(context.Background(), name)
	require.NoError(t, err)
	return id
}

func TestGenerator_StartsAtDefault(t *testing.T) {
	g := New(nil)

	assert.Equal(t, int64(1000), next(t, g, "Order"))
	assert.Equal(t, int64(1001), next(t, g, "Order"))
	assert.Equal(t, int64(1002), next(t, g, "Order"))
}

func TestGenerator_Options(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want []int64
	}{
		{"custom start", []Option{WithStart(5000)}, []int64{5000, 5001}},
		{"custom increment", []Option{WithIncrement(10)}, []int64{1000, 1010, 1020}},
		{"non-positive increment ignored", []Option{WithIncrement(0)}, []int64{1000, 1001}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := New(NewMemory(), tc.opts...)
			for _, want := range tc.want {
				assert.Equal(t, want, next(t, g, "Order"))
			}
		})
	}
}

func TestGenerator_IsolatedPerName(t *testing.T) {
	g := New(nil)

	assert.Equal(t, int64(1000), next(t, g, "Order"))
	assert.Equal(t, int64(1000), next(t, g, "Customer"))
	assert.Equal(t, int64(1001), next(t, g, "Order"))
	assert.Equal(t, int64(1001), next(t, g, "Customer"))
}

func TestGenerator_NextN(t *testing.T) {
	ctx := context.Background()

	g := New(nil)
	ids, err := g.NextN(ctx, "Order", 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 1001, 1002, 1003, 1004}, ids)
	assert.Equal(t, int64(1005), next(t, g, "Order"))

	stepped := New(nil, WithIncrement(5))
	ids, err = stepped.NextN(ctx, "Order", 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 1005, 1010}, ids)
	assert.Equal(t, int64(1015), next(t, stepped, "Order"))
}

func TestGenerator_NextN_InvalidCount(t *testing.T) {
	g := New(nil)
	for _, count := range []int{0, -1} {
		_, err := g.NextN(context.Background(), "Order", count)
		assert.True(t, errors.Is(err, ErrInvalidCount), "count %d", count)
	}
}

func TestGenerator_ResetAndClear(t *testing.T) {
	ctx := context.Background()
	g := New(nil)
	next(t, g, "Order")
	next(t, g, "Customer")

	require.NoError(t, g.Reset(ctx, "Order", 2000))
	assert.Equal(t, int64(2000), next(t, g, "Order"))

	require.NoError(t, g.Clear(ctx))
	assert.Equal(t, int64(1000), next(t, g, "Order"))
	assert.Equal(t, int64(1000), next(t, g, "Customer"))
}

func TestGenerator_ConcurrentAllocationIsGapFree(t *testing.T) {
	g := New(nil)
	const workers = 10
	const perWorker = 100

	var mu sync.Mutex
	var all []int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id, err := g.Next(context.Background(), "Order")
				assert.NoError(t, err)
				mu.Lock()
				all = append(all, id)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	slices.Sort(all)
	require.Len(t, all, workers*perWorker)
	for i, id := range all {
		assert.Equal(t, DefaultStart+int64(i), id)
	}
}

func TestGenerator_ConcurrentBatchesDoNotOverlap(t *testing.T) {
	g := New(nil)

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := g.NextN(context.Background(), "Order", 10)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				assert.False(t, seen[id], "duplicate id %d", id)
				seen[id] = true
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 100)
}

type failingBackend struct{ Memory }

func (*failingBackend) Reserve(context.Context, string, int64, int64, int64) (int64, error) {
	return 0, errors.New("backend down")
}

func TestGenerator_WrapsBackendErrors(t *testing.T) {
	g := New(&failingBackend{})
	_, err := g.Next(context.Background(), "Order")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next Order")
	assert.Contains(t, err.Error(), "backend down")
}
