package retention

import (
	"context"
	"time"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// Scoring constants. The retention and priority formulas deliberately use
// different weights and decay horizons: retention asks "should this survive
// pruning" over a short horizon, priority asks "how should survivors be
// ordered" over a longer one.
const (
	// retentionHorizonDays is the linear decay horizon for retention scores.
	retentionHorizonDays = 30.0

	// priorityHorizonDays is the linear decay horizon for priority scores.
	priorityHorizonDays = 90.0

	// largeContentChars is the content length above which the retention
	// formula applies a size penalty.
	largeContentChars = 1000
)

// HeuristicScorer scores memories with deterministic weighted formulas.
//
// It is both a standalone Scorer and the mandatory fallback behind AIScorer.
//
//	retention = importance*0.4 + min(access*0.1, 0.3) + recency30*0.2 + type bonus - size penalty
//	priority  = importance*0.3 + min(access*0.2, 0.4) + recency90*0.2 + type bonus
//
// Recency decays linearly: max(0, 1 - age_days/horizon). Both results are
// clamped to [0, 1].
type HeuristicScorer struct{}

// NewHeuristicScorer creates a heuristic scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// RetentionScores scores memories on survival value over a 30-day horizon.
func (s *HeuristicScorer) RetentionScores(_ context.Context, memories []*storage.Memory) []float64 {
	now := time.Now()
	scores := make([]float64, len(memories))
	for i, m := range memories {
		scores[i] = RetentionScore(m, now)
	}
	return scores
}

// PriorityScores scores memories on retrieval priority over a 90-day horizon.
func (s *HeuristicScorer) PriorityScores(_ context.Context, memories []*storage.Memory) []float64 {
	now := time.Now()
	scores := make([]float64, len(memories))
	for i, m := range memories {
		scores[i] = PriorityScore(m, now)
	}
	return scores
}

// RetentionScore computes the heuristic retention score of a single memory
// at the given reference time.
func RetentionScore(m *storage.Memory, now time.Time) float64 {
	score := m.ImportanceScore * 0.4

	access := float64(m.AccessCount) * 0.1
	if access > 0.3 {
		access = 0.3
	}
	score += access

	score += recencyFactor(m.CreatedAt, now, retentionHorizonDays) * 0.2
	score += typeBonus(m.MemoryType)

	if len(m.Content) > largeContentChars {
		score -= 0.1
	}

	return clamp01(score)
}

// PriorityScore computes the heuristic priority score of a single memory at
// the given reference time.
func PriorityScore(m *storage.Memory, now time.Time) float64 {
	score := m.ImportanceScore * 0.3

	access := float64(m.AccessCount) * 0.2
	if access > 0.4 {
		access = 0.4
	}
	score += access

	score += recencyFactor(m.CreatedAt, now, priorityHorizonDays) * 0.2
	score += typeBonus(m.MemoryType)

	return clamp01(score)
}

// typeBonus rewards memory types that tend to stay relevant: durable
// knowledge and system events over raw conversation turns.
func typeBonus(memoryType string) float64 {
	switch memoryType {
	case "knowledge", "system_event":
		return 0.10
	case "conversation":
		return 0.05
	default:
		return 0
	}
}

// recencyFactor decays linearly from 1 at age zero to 0 at horizonDays.
func recencyFactor(createdAt, now time.Time, horizonDays float64) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24.0
	factor := 1.0 - ageDays/horizonDays
	if factor < 0 {
		return 0
	}
	return factor
}

// clamp01 clamps v to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
