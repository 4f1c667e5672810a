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

func TestOptimizeTelemetry(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	for i := 0; i < 100; i++ {
		m := &storage.Memory{
			ID:              fmt.Sprintf("m%03d", i),
			SessionID:       "s1",
			Content:         "content",
			MemoryType:      "conversation",
			ImportanceScore: 0.8, // above the sweep ceiling
			LastAccessed:    now,
			CreatedAt:       now,
		}
		if i >= 80 {
			m.IsArchived = true
		}
		require.NoError(t, store.Insert(context.Background(), m))
	}

	optimizer := NewOptimizer(store, nil, &Config{MaxMemories: 100})
	report, err := optimizer.Optimize(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, report.StepErrors)

	// active=80, archived=20: efficiency=0.8, utilization=0.8,
	// optimization score = min(1, 0.8*0.2) = 0.16.
	assert.Equal(t, 80, report.Metrics.Active)
	assert.Equal(t, 20, report.Metrics.Archived)
	assert.Equal(t, 100, report.Metrics.Total)
	assert.InDelta(t, 0.8, report.Metrics.Efficiency, 0.001)
	assert.InDelta(t, 0.8, report.Metrics.Utilization, 0.001)
	assert.InDelta(t, 0.16, report.Metrics.OptimizationScore, 0.001)
}

func TestOptimizeArchivesOverflow(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 20; i++ {
		seedMemory(t, store, fmt.Sprintf("m%02d", i), float64(i)/20.0, 1, 0)
	}

	optimizer := NewOptimizer(store, nil, &Config{MaxMemories: 15})
	report, err := optimizer.Optimize(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, 5, report.Archived)
	assert.Equal(t, 15, report.Reordered)
	assert.Equal(t, 15, report.Metrics.Active)
	assert.Equal(t, 5, report.Metrics.Archived)

	// The intelligent reorder step scored every surviving memory.
	for _, m := range store.memories {
		if !m.IsArchived {
			assert.NotNil(t, m.LastReordered)
		}
	}
}

func TestOptimizeArchivalSweep(t *testing.T) {
	store := newMemStore()
	seedMemory(t, store, "old-unimportant", 0.1, 120, 0)
	seedMemory(t, store, "old-important", 0.9, 120, 0)
	seedMemory(t, store, "fresh-unimportant", 0.1, 5, 0)

	optimizer := NewOptimizer(store, nil, &Config{MaxMemories: 100})
	report, err := optimizer.Optimize(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, 1, report.Swept)

	swept := store.memories["old-unimportant"]
	assert.True(t, swept.IsArchived)
	assert.Equal(t, ArchiveReasonAgeAndLowImportance, swept.ArchiveReason)
	require.NotNil(t, swept.ArchivedAt)

	assert.False(t, store.memories["old-important"].IsArchived)
	assert.False(t, store.memories["fresh-unimportant"].IsArchived)
}

func TestOptimizeEmptyStore(t *testing.T) {
	optimizer := NewOptimizer(newMemStore(), nil, nil)

	report, err := optimizer.Optimize(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, 0, report.Archived)
	assert.Equal(t, 0, report.Reordered)
	assert.Equal(t, 0, report.Swept)
	assert.Equal(t, 0, report.Metrics.Total)
	assert.Empty(t, report.StepErrors)
}
