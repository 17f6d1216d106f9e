package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/storage"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_AppendAndRows(t *testing.T) {
	store := New()
	defer store.Close()
	ctx := context.Background()

	info, err := store.Append(ctx, "cpu", []cluster.Row{
		{"timestamp": 0, "A": 1, "B": 10},
		{"timestamp": 1, "A": 2, "B": 20},
	})
	require.NoError(t, err)
	require.Equal(t, 2, info.Rows)
	require.Equal(t, 1, info.Batches)
	require.Equal(t, []string{"A", "B"}, info.Fields)

	info, err = store.Append(ctx, "cpu", []cluster.Row{{"timestamp": 2, "A": 3, "C": 5}})
	require.NoError(t, err)
	require.Equal(t, 3, info.Rows)
	require.Equal(t, []string{"A", "B", "C"}, info.Fields)

	rows, err := store.Rows(ctx, "cpu", storage.RowsRequest{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, 3.0, rows[2]["A"])

	rows, err = store.Rows(ctx, "cpu", storage.RowsRequest{Last: 2})
	require.NoError(t, err)
	require.Equal(t, []cluster.Row{
		{"timestamp": 1, "A": 2, "B": 20},
		{"timestamp": 2, "A": 3, "C": 5},
	}, rows)
}

func TestMemoryStorage_Isolation(t *testing.T) {
	store := New()
	ctx := context.Background()

	input := []cluster.Row{{"A": 1}}
	_, err := store.Append(ctx, "d", input)
	require.NoError(t, err)
	input[0]["A"] = 99

	rows, err := store.Rows(ctx, "d", storage.RowsRequest{})
	require.NoError(t, err)
	require.Equal(t, 1.0, rows[0]["A"])

	rows[0]["A"] = 42
	again, err := store.Rows(ctx, "d", storage.RowsRequest{})
	require.NoError(t, err)
	require.Equal(t, 1.0, again[0]["A"])
}

func TestMemoryStorage_NotFound(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.Rows(ctx, "missing", storage.RowsRequest{})
	require.ErrorIs(t, err, storage.ErrDatasetNotFound)
	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrDatasetNotFound)
	require.ErrorIs(t, store.Delete(ctx, "missing"), storage.ErrDatasetNotFound)
}

func TestMemoryStorage_ListDeleteStats(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := store.Append(ctx, name, []cluster.Row{{"x": 1}, {"x": 2}})
		require.NoError(t, err)
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "alpha", list[0].Name)
	require.Equal(t, "zeta", list[2].Name)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), stats.TotalDatasets)
	require.Equal(t, uint64(6), stats.TotalRows)
	require.NotZero(t, stats.SizeBytes)

	require.NoError(t, store.Delete(ctx, "mid"))
	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestMemoryStorage_CancelledContext(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Append(ctx, "d", []cluster.Row{{"a": 1}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStorage_ConcurrentAppend(t *testing.T) {
	store := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := store.Append(ctx, "d", []cluster.Row{{"a": float64(j)}})
				require.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	info, err := store.Get(ctx, "d")
	require.NoError(t, err)
	require.Equal(t, 100, info.Rows)
	require.Equal(t, 100, info.Batches)
}
