package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

func seedMemory(t *testing.T, store *memStore, id string, importance float64, ageDays, accessCount int) {
	t.Helper()
	now := time.Now()
	err := store.Insert(context.Background(), &storage.Memory{
		ID:              id,
		SessionID:       "s1",
		Content:         "content " + id,
		MemoryType:      "conversation",
		ImportanceScore: importance,
		AccessCount:     accessCount,
		LastAccessed:    now,
		CreatedAt:       now.AddDate(0, 0, -ageDays),
	})
	require.NoError(t, err)
}

func TestPruneUnknownStrategy(t *testing.T) {
	pruner := NewPruner(newMemStore(), nil, nil)

	_, err := pruner.Prune(context.Background(), "bogus", "")

	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestPruneByImportance(t *testing.T) {
	store := newMemStore()
	seedMemory(t, store, "keep-high", 0.9, 1, 0)
	seedMemory(t, store, "keep-at-threshold", 0.3, 1, 0)
	seedMemory(t, store, "drop-low", 0.1, 1, 0)
	seedMemory(t, store, "drop-lower", 0.05, 1, 0)

	pruner := NewPruner(store, nil, nil)
	removed, err := pruner.Prune(context.Background(), StrategyImportance, "")

	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Contains(t, store.memories, "keep-high")
	assert.Contains(t, store.memories, "keep-at-threshold")
	assert.NotContains(t, store.memories, "drop-low")
	assert.NotContains(t, store.memories, "drop-lower")
}

func TestPruneByAge(t *testing.T) {
	store := newMemStore()
	seedMemory(t, store, "fresh", 0.1, 5, 0)
	seedMemory(t, store, "stale", 0.9, 45, 0) // importance is ignored
	seedMemory(t, store, "ancient", 0.5, 400, 0)

	pruner := NewPruner(store, nil, nil)
	removed, err := pruner.Prune(context.Background(), StrategyAge, "")

	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Contains(t, store.memories, "fresh")
}

func TestPruneByAccessFrequency(t *testing.T) {
	store := newMemStore()
	seedMemory(t, store, "read-often", 0.5, 1, 5)
	seedMemory(t, store, "read-twice", 0.5, 1, 2)
	seedMemory(t, store, "write-once", 0.5, 1, 0)

	pruner := NewPruner(store, nil, nil)
	removed, err := pruner.Prune(context.Background(), StrategyAccessFrequency, "")

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NotContains(t, store.memories, "write-once")
}

func TestPruneHybridRemovesLowestScored(t *testing.T) {
	store := newMemStore()
	// 20 memories with strictly increasing hybrid score: ids m00..m19.
	for i := 0; i < 20; i++ {
		seedMemory(t, store, fmt.Sprintf("m%02d", i), float64(i)/20.0, 1, 0)
	}

	pruner := NewPruner(store, nil, &Config{MaxMemories: 15})
	removed, err := pruner.Prune(context.Background(), StrategyHybrid, "")

	require.NoError(t, err)
	assert.Equal(t, 5, removed)
	assert.Len(t, store.memories, 15)
	for i := 0; i < 5; i++ {
		assert.NotContains(t, store.memories, fmt.Sprintf("m%02d", i))
	}
	for i := 5; i < 20; i++ {
		assert.Contains(t, store.memories, fmt.Sprintf("m%02d", i))
	}
}

func TestPruneHybridNoOpAtCapacity(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 10; i++ {
		seedMemory(t, store, fmt.Sprintf("m%02d", i), 0.5, 1, 0)
	}

	pruner := NewPruner(store, nil, &Config{MaxMemories: 10})
	removed, err := pruner.Prune(context.Background(), StrategyHybrid, "")

	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Len(t, store.memories, 10)
}

func TestPruneHybridSkipsFailedDeletions(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 12; i++ {
		seedMemory(t, store, fmt.Sprintf("m%02d", i), float64(i)/12.0, 1, 0)
	}
	store.failDelete["m01"] = true

	pruner := NewPruner(store, nil, &Config{MaxMemories: 10})
	removed, err := pruner.Prune(context.Background(), StrategyHybrid, "")

	// The batch continues past the failure; the count reflects only
	// successful deletions.
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Contains(t, store.memories, "m01")
	assert.NotContains(t, store.memories, "m00")
}

func TestPruneAIOptimizedArchivesInsteadOfDeleting(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 20; i++ {
		seedMemory(t, store, fmt.Sprintf("m%02d", i), float64(i)/20.0, 1, 0)
	}

	pruner := NewPruner(store, NewHeuristicScorer(), &Config{MaxMemories: 15})
	archived, err := pruner.Prune(context.Background(), StrategyAIOptimized, "")

	require.NoError(t, err)
	assert.Equal(t, 5, archived)

	// Nothing is deleted: the total record count is unchanged, only
	// is_archived flips.
	assert.Len(t, store.memories, 20)

	archivedCount := 0
	for _, m := range store.memories {
		if !m.IsArchived {
			continue
		}
		archivedCount++
		assert.Equal(t, ArchiveReasonAIOptimized, m.ArchiveReason)
		assert.NotNil(t, m.ArchivedAt)
		assert.Greater(t, m.RetentionScore, 0.0)
	}
	assert.Equal(t, 5, archivedCount)

	active, err := store.Count(context.Background(), &storage.CountOptions{CrossPartition: true})
	require.NoError(t, err)
	assert.Equal(t, 15, active)
}

func TestPruneAIOptimizedNoOpUnderCapacity(t *testing.T) {
	store := newMemStore()
	seedMemory(t, store, "m1", 0.5, 1, 0)

	pruner := NewPruner(store, nil, &Config{MaxMemories: 10})
	archived, err := pruner.Prune(context.Background(), StrategyAIOptimized, "")

	require.NoError(t, err)
	assert.Equal(t, 0, archived)
	assert.False(t, store.memories["m1"].IsArchived)
}

func TestPruneSessionScope(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	for _, session := range []string{"s1", "s2"} {
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Insert(context.Background(), &storage.Memory{
				ID:              fmt.Sprintf("%s-m%d", session, i),
				SessionID:       session,
				Content:         "content",
				MemoryType:      "conversation",
				ImportanceScore: 0.1,
				CreatedAt:       now,
			}))
		}
	}

	pruner := NewPruner(store, nil, &Config{Scope: ScopeSession})
	removed, err := pruner.Prune(context.Background(), StrategyImportance, "s1")

	// Only the s1 partition is touched.
	require.NoError(t, err)
	assert.Equal(t, 5, removed)
	assert.Len(t, store.memories, 5)
	for id := range store.memories {
		assert.Contains(t, id, "s2-")
	}
}
