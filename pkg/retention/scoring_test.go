package retention

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

func TestRetentionScoreFreshImportantKnowledge(t *testing.T) {
	now := time.Now()
	m := &storage.Memory{
		Content:         "Go interfaces are satisfied implicitly",
		MemoryType:      "knowledge",
		ImportanceScore: 1.0,
		AccessCount:     10,
		CreatedAt:       now,
	}

	// 1.0*0.4 + min(10*0.1, 0.3) + 1.0*0.2 + 0.1 = 1.0
	assert.InDelta(t, 1.0, RetentionScore(m, now), 0.001)
}

func TestRetentionScoreSizePenalty(t *testing.T) {
	now := time.Now()
	small := &storage.Memory{
		Content:         "short",
		MemoryType:      "conversation",
		ImportanceScore: 0.5,
		CreatedAt:       now,
	}
	large := &storage.Memory{
		Content:         strings.Repeat("x", 1001),
		MemoryType:      "conversation",
		ImportanceScore: 0.5,
		CreatedAt:       now,
	}

	assert.InDelta(t, RetentionScore(small, now)-0.1, RetentionScore(large, now), 0.001)
}

func TestRetentionScoreDecaysOverHorizon(t *testing.T) {
	now := time.Now()
	fresh := &storage.Memory{MemoryType: "conversation", ImportanceScore: 0.5, CreatedAt: now}
	old := &storage.Memory{MemoryType: "conversation", ImportanceScore: 0.5, CreatedAt: now.AddDate(0, 0, -60)}

	// Past the 30-day horizon the recency term contributes nothing.
	assert.InDelta(t, RetentionScore(fresh, now)-0.2, RetentionScore(old, now), 0.001)
}

func TestRetentionScoreClamped(t *testing.T) {
	now := time.Now()
	m := &storage.Memory{
		Content:         strings.Repeat("x", 2000),
		ImportanceScore: 0,
		CreatedAt:       now.AddDate(-1, 0, 0),
	}

	score := RetentionScore(m, now)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestPriorityScoreWeights(t *testing.T) {
	now := time.Now()
	m := &storage.Memory{
		MemoryType:      "system_event",
		ImportanceScore: 1.0,
		AccessCount:     1,
		CreatedAt:       now,
	}

	// 1.0*0.3 + 1*0.2 + 1.0*0.2 + 0.1 = 0.8
	assert.InDelta(t, 0.8, PriorityScore(m, now), 0.001)
}

func TestPriorityScoreAccessSaturates(t *testing.T) {
	now := time.Now()
	two := &storage.Memory{MemoryType: "conversation", CreatedAt: now, AccessCount: 2}
	twenty := &storage.Memory{MemoryType: "conversation", CreatedAt: now, AccessCount: 20}

	// The access term caps at 0.4, reached at 2 reads.
	assert.InDelta(t, PriorityScore(two, now), PriorityScore(twenty, now), 0.001)
}

func TestPriorityScoreLongerHorizon(t *testing.T) {
	now := time.Now()
	m := &storage.Memory{MemoryType: "conversation", ImportanceScore: 0.5, CreatedAt: now.AddDate(0, 0, -45)}

	// 45 days is past the retention horizon but only halfway through the
	// priority horizon.
	retention := RetentionScore(m, now)
	priority := PriorityScore(m, now)
	assert.InDelta(t, 0.5*0.4+0+0.05, retention, 0.001)
	assert.InDelta(t, 0.5*0.3+0.5*0.2+0.05, priority, 0.001)
}

func TestTypeBonus(t *testing.T) {
	tests := []struct {
		memoryType string
		want       float64
	}{
		{"knowledge", 0.10},
		{"system_event", 0.10},
		{"conversation", 0.05},
		{"tool_call", 0.0},
		{"unknown", 0.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, typeBonus(tt.memoryType), 0.001, "type %s", tt.memoryType)
	}
}

func TestHybridScore(t *testing.T) {
	now := time.Now()

	best := &storage.Memory{ImportanceScore: 1.0, AccessCount: 10, CreatedAt: now}
	assert.InDelta(t, 1.0, HybridScore(best, now), 0.001)

	worst := &storage.Memory{ImportanceScore: 0, AccessCount: 0, CreatedAt: now.AddDate(-2, 0, 0)}
	assert.InDelta(t, 0.0, HybridScore(worst, now), 0.001)

	mid := &storage.Memory{ImportanceScore: 0.5, AccessCount: 5, CreatedAt: now}
	assert.InDelta(t, 0.5*0.5+0.3+0.5*0.2, HybridScore(mid, now), 0.001)
}

func TestHeuristicScorerBatches(t *testing.T) {
	scorer := NewHeuristicScorer()
	now := time.Now()

	memories := []*storage.Memory{
		{MemoryType: "knowledge", ImportanceScore: 0.9, CreatedAt: now},
		{MemoryType: "conversation", ImportanceScore: 0.2, CreatedAt: now.AddDate(0, 0, -10)},
		{MemoryType: "tool_call", ImportanceScore: 0.5, CreatedAt: now.AddDate(0, 0, -100)},
	}

	retention := scorer.RetentionScores(context.Background(), memories)
	priority := scorer.PriorityScores(context.Background(), memories)

	assert.Len(t, retention, 3)
	assert.Len(t, priority, 3)
	for i := range memories {
		assert.GreaterOrEqual(t, retention[i], 0.0)
		assert.LessOrEqual(t, retention[i], 1.0)
		assert.GreaterOrEqual(t, priority[i], 0.0)
		assert.LessOrEqual(t, priority[i], 1.0)
	}
}
