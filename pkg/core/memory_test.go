package core

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-labs/recallmem-go/pkg/retention"
	"github.com/recall-labs/recallmem-go/pkg/storage/sqlite"
)

func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()

	store, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	client, err := NewClientWithStore(store, nil, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAddMemoryDefaults(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	item, err := client.AddMemory(ctx, "session_001", "User prefers Go")
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "session_001", item.SessionID)
	assert.Equal(t, TypeConversation, item.MemoryType)
	assert.Equal(t, 0.5, item.ImportanceScore)
	assert.False(t, item.CreatedAt.IsZero())
	assert.True(t, item.LastAccessed.Equal(item.CreatedAt))
}

func TestAddMemoryWithOptions(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	item, err := client.AddMemory(ctx, "session_001", "Capital of France is Paris",
		WithMemoryType(TypeKnowledge),
		WithImportance(0.9),
		WithTags("geography", "fact"),
		WithMetadata(map[string]interface{}{"source": "wiki"}),
		WithEmbedding([]float64{0.1, 0.2}))
	require.NoError(t, err)

	assert.Equal(t, TypeKnowledge, item.MemoryType)
	assert.Equal(t, 0.9, item.ImportanceScore)
	assert.Equal(t, []string{"geography", "fact"}, item.Tags)

	got, err := client.GetMemory(ctx, item.ID, "session_001")
	require.NoError(t, err)
	assert.Equal(t, item.Content, got.Content)
	assert.Equal(t, []float64{0.1, 0.2}, got.Embedding)
}

func TestAddMemoryValidation(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	_, err := client.AddMemory(ctx, "", "content")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = client.AddMemory(ctx, "session_001", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = client.AddMemory(ctx, "session_001", "content", WithMemoryType("daydream"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddMemoryClampsImportance(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	high, err := client.AddMemory(ctx, "s1", "very important", WithImportance(1.7))
	require.NoError(t, err)
	assert.Equal(t, 1.0, high.ImportanceScore)

	low, err := client.AddMemory(ctx, "s1", "not important", WithImportance(-0.3))
	require.NoError(t, err)
	assert.Equal(t, 0.0, low.ImportanceScore)
}

func TestGetMemoryRecordsAccess(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	item, err := client.AddMemory(ctx, "s1", "remember this")
	require.NoError(t, err)
	assert.Equal(t, 0, item.AccessCount)

	first, err := client.GetMemory(ctx, item.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.AccessCount)

	second, err := client.GetMemory(ctx, item.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.AccessCount)
	assert.False(t, second.LastAccessed.Before(first.LastAccessed))
}

func TestGetMemoryNotFound(t *testing.T) {
	client := newTestClient(t, nil)

	_, err := client.GetMemory(context.Background(), "missing", "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateImportanceClamps(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	item, err := client.AddMemory(ctx, "s1", "content")
	require.NoError(t, err)

	updated, err := client.UpdateImportance(ctx, item.ID, "s1", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, updated.ImportanceScore)

	updated, err = client.UpdateImportance(ctx, item.ID, "s1", -2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, updated.ImportanceScore)

	_, err = client.UpdateImportance(ctx, "missing", "s1", 0.5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMemory(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	item, err := client.AddMemory(ctx, "s1", "forget me")
	require.NoError(t, err)

	require.NoError(t, client.DeleteMemory(ctx, item.ID, "s1"))

	_, err = client.GetMemory(ctx, item.ID, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, client.DeleteMemory(ctx, item.ID, "s1"), ErrNotFound)
}

func TestSearchMemories(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	_, err := client.AddMemory(ctx, "s1", "User likes Go generics",
		WithMemoryType(TypeKnowledge), WithImportance(0.9))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, "s1", "Discussed Go error handling",
		WithImportance(0.4))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, "s1", "Weather was nice", WithImportance(0.2))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, "s2", "Go memory in another session")
	require.NoError(t, err)

	// Case-insensitive substring, session-scoped, importance-ordered.
	results, err := client.SearchMemories(ctx, "s1", "go")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "User likes Go generics", results[0].Content)
	assert.Equal(t, "Discussed Go error handling", results[1].Content)

	results, err = client.SearchMemories(ctx, "s1", "go", WithTypeFilter(TypeKnowledge))
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = client.SearchMemories(ctx, "s1", "go", WithMinImportance(0.8))
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = client.SearchMemories(ctx, "s1", "", WithLimit(2))
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestStatistics(t *testing.T) {
	client := newTestClient(t, nil)
	ctx := context.Background()

	_, err := client.AddMemory(ctx, "s1", "fact one", WithMemoryType(TypeKnowledge), WithImportance(0.8))
	require.NoError(t, err)
	_, err = client.AddMemory(ctx, "s1", "turn one", WithImportance(0.4))
	require.NoError(t, err)

	stats, err := client.Statistics(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 0, stats.Archived)
	assert.Equal(t, 1, stats.ByType["knowledge"])
	assert.Equal(t, 1, stats.ByType["conversation"])
	assert.InDelta(t, 0.6, stats.AverageImportance, 0.001)
	require.NotNil(t, stats.OldestCreatedAt)
	require.NotNil(t, stats.NewestCreatedAt)
}

func TestAutoPruneBoundsActiveCount(t *testing.T) {
	client := newTestClient(t, &Config{
		Retention: RetentionConfig{MaxMemories: 15},
	})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := client.AddMemory(ctx, "s1", fmt.Sprintf("memory %d", i),
			WithImportance(float64(i)/20.0))
		require.NoError(t, err)
	}

	stats, err := client.Statistics(ctx, "s1")
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.Active, 15)
}

func TestPruneMemoriesInvalidStrategy(t *testing.T) {
	client := newTestClient(t, nil)

	_, err := client.PruneMemories(context.Background(), "bogus", "s1")
	assert.ErrorIs(t, err, retention.ErrInvalidStrategy)
}

func TestReorderMemoriesInvalidStrategy(t *testing.T) {
	client := newTestClient(t, nil)

	_, err := client.ReorderMemories(context.Background(), "bogus", "s1")
	assert.ErrorIs(t, err, retention.ErrInvalidStrategy)
}

func TestOptimizeReportsTelemetry(t *testing.T) {
	client := newTestClient(t, &Config{
		Retention: RetentionConfig{MaxMemories: 100},
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := client.AddMemory(ctx, "s1", fmt.Sprintf("memory %d", i), WithImportance(0.8))
		require.NoError(t, err)
	}

	report, err := client.Optimize(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, report.StepErrors)

	assert.Equal(t, 0, report.Archived)
	assert.Equal(t, 10, report.Reordered)
	assert.Equal(t, 10, report.Metrics.Active)
	assert.InDelta(t, 1.0, report.Metrics.Efficiency, 0.001)
	assert.InDelta(t, 0.1, report.Metrics.Utilization, 0.001)
}

func TestNewClientRejectsNilConfig(t *testing.T) {
	_, err := NewClient(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(&Config{Storage: StorageConfig{Provider: "cassandra"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewClientWithStoreRequiresStore(t *testing.T) {
	_, err := NewClientWithStore(nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
