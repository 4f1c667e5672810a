package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-labs/recallmem-go/pkg/retention"
	"github.com/recall-labs/recallmem-go/pkg/storage/sqlite"
)

func newTestAsyncClient(t *testing.T) *AsyncClient {
	t.Helper()

	store, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "async.db"),
	})
	require.NoError(t, err)

	client, err := NewAsyncClientWithStore(store, nil, &Config{
		Retention: RetentionConfig{MaxMemories: 100},
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestOptimizeAsync(t *testing.T) {
	client := newTestAsyncClient(t)
	ctx := context.Background()

	_, err := client.AddMemory(ctx, "s1", "some memory")
	require.NoError(t, err)

	result := <-client.OptimizeAsync(ctx, "s1")

	require.NoError(t, result.Error)
	require.NotNil(t, result.Report)
	assert.Equal(t, 1, result.Report.Metrics.Active)
}

func TestPruneAsync(t *testing.T) {
	client := newTestAsyncClient(t)
	ctx := context.Background()

	_, err := client.AddMemory(ctx, "s1", "low value", WithImportance(0.1))
	require.NoError(t, err)

	result := <-client.PruneAsync(ctx, retention.StrategyImportance, "s1")

	require.NoError(t, result.Error)
	assert.Equal(t, 1, result.Removed)
}

func TestPruneAsyncInvalidStrategy(t *testing.T) {
	client := newTestAsyncClient(t)

	result := <-client.PruneAsync(context.Background(), "bogus", "s1")

	assert.ErrorIs(t, result.Error, retention.ErrInvalidStrategy)
}

func TestAsyncWait(t *testing.T) {
	client := newTestAsyncClient(t)
	ctx := context.Background()

	ch1 := client.OptimizeAsync(ctx, "s1")
	ch2 := client.OptimizeAsync(ctx, "s2")
	client.Wait()

	assert.NotNil(t, (<-ch1).Report)
	assert.NotNil(t, (<-ch2).Report)
}
