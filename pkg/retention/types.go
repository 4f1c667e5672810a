// Package retention implements the long-term memory retention engine:
// dual scoring (retention vs priority), five interchangeable pruning
// strategies, rank/priority reordering, and the optimization pipeline that
// composes them.
//
// The engine is best-effort maintenance infrastructure, not a system of
// record: scoring falls back silently when the reasoning service misbehaves,
// per-item failures inside a prune batch are logged and skipped, and the
// orchestrator records step failures without letting them destabilize the
// caller.
package retention

import (
	"context"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// CapacityScope selects whether capacity limits and maintenance operations
// apply across all sessions or to a single session partition.
type CapacityScope string

// Capacity scopes.
const (
	// ScopeGlobal applies capacity and maintenance across all sessions.
	ScopeGlobal CapacityScope = "global"

	// ScopeSession applies capacity and maintenance per session partition.
	ScopeSession CapacityScope = "session"
)

// Scorer produces scores for batches of memories.
//
// Implementations never return an error: scoring is a mandatory-fallback
// operation, and a scorer that cannot do better must degrade to the
// heuristic formulas. The returned slice always has the same length and
// order as the input.
type Scorer interface {
	// RetentionScores scores memories on whether they should survive
	// pruning. Range [0, 1], higher = keep.
	RetentionScores(ctx context.Context, memories []*storage.Memory) []float64

	// PriorityScores scores memories on how they should be ordered for
	// retrieval and attention. Range [0, 1], higher = earlier.
	PriorityScores(ctx context.Context, memories []*storage.Memory) []float64
}

// Config holds the tunable parameters of the retention engine.
//
// The defaults reproduce the constants the engine was tuned with; they are
// tunable defaults, not load-bearing contracts.
type Config struct {
	// MaxMemories is the active-memory capacity. Hybrid and AI-optimized
	// pruning reduce the active set to this size.
	MaxMemories int

	// Scope selects global or per-session capacity accounting.
	Scope CapacityScope

	// ImportanceThreshold is the cutoff for importance pruning.
	ImportanceThreshold float64

	// MaxAgeDays is the cutoff in days for age pruning.
	MaxAgeDays int

	// MinAccessCount is the cutoff for access-frequency pruning.
	MinAccessCount int

	// ArchiveAfterDays is the age in days after which the archival sweep
	// considers an active memory for archiving.
	ArchiveAfterDays int

	// ArchiveImportanceBelow is the importance ceiling for the archival
	// sweep: only memories below it are swept.
	ArchiveImportanceBelow float64
}

// DefaultConfig returns the default retention configuration:
// 1000 max memories, global scope, importance threshold 0.3, 30-day age
// cutoff, minimum access count 2, 90-day / 0.3-importance archival sweep.
func DefaultConfig() *Config {
	return &Config{
		MaxMemories:            1000,
		Scope:                  ScopeGlobal,
		ImportanceThreshold:    0.3,
		MaxAgeDays:             30,
		MinAccessCount:         2,
		ArchiveAfterDays:       90,
		ArchiveImportanceBelow: 0.3,
	}
}

// normalize fills in zero-valued fields with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.MaxMemories <= 0 {
		c.MaxMemories = def.MaxMemories
	}
	if c.Scope == "" {
		c.Scope = def.Scope
	}
	if c.ImportanceThreshold <= 0 {
		c.ImportanceThreshold = def.ImportanceThreshold
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = def.MaxAgeDays
	}
	if c.MinAccessCount <= 0 {
		c.MinAccessCount = def.MinAccessCount
	}
	if c.ArchiveAfterDays <= 0 {
		c.ArchiveAfterDays = def.ArchiveAfterDays
	}
	if c.ArchiveImportanceBelow <= 0 {
		c.ArchiveImportanceBelow = def.ArchiveImportanceBelow
	}
}

// scopeQuery returns query options covering the active memories in scope.
//
// Global scope requires an explicit cross-partition scan; session scope is
// restricted to one partition.
func scopeQuery(scope CapacityScope, sessionID string) *storage.QueryOptions {
	if scope == ScopeSession {
		return &storage.QueryOptions{SessionID: sessionID}
	}
	return &storage.QueryOptions{CrossPartition: true}
}

// scopeCount returns count options covering the active memories in scope.
func scopeCount(scope CapacityScope, sessionID string) *storage.CountOptions {
	if scope == ScopeSession {
		return &storage.CountOptions{SessionID: sessionID}
	}
	return &storage.CountOptions{CrossPartition: true}
}
