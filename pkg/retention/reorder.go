package retention

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// Reordering strategy names. The importance, recency and access_frequency
// strategies are deterministic rank assignments; intelligent delegates to
// the configured scorer.
const (
	// ReorderImportance ranks by importance_score descending.
	ReorderImportance = "importance"

	// ReorderRecency ranks by last_accessed descending.
	ReorderRecency = "recency"

	// ReorderAccessFrequency ranks by access_count descending.
	ReorderAccessFrequency = "access_frequency"

	// ReorderIntelligent writes scorer priority scores instead of ranks.
	ReorderIntelligent = "intelligent"
)

// Reorderer assigns explicit priorities so downstream consumers sort
// cheaply instead of recomputing.
//
// Basic strategies write a rank index (0 = highest) into
// retention_priority; they are deterministic and idempotent absent
// intervening writes. The intelligent strategy writes the numeric priority
// score plus a reorder timestamp, and is only as deterministic as its
// scorer.
type Reorderer struct {
	store  storage.MemoryStore
	scorer Scorer
	cfg    *Config
}

// NewReorderer creates a reorderer over the given store.
//
// scorer backs the intelligent strategy; pass nil to use the heuristic
// scorer. Pass nil cfg for defaults.
func NewReorderer(store storage.MemoryStore, scorer Scorer, cfg *Config) *Reorderer {
	if scorer == nil {
		scorer = NewHeuristicScorer()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.normalize()
	return &Reorderer{store: store, scorer: scorer, cfg: cfg}
}

// Reorder runs the named strategy over the active memories in scope and
// returns the number of memories updated.
//
// Unknown strategy names fail with ErrInvalidStrategy. Per-item write
// failures are logged and skipped.
func (r *Reorderer) Reorder(ctx context.Context, strategy, sessionID string) (int, error) {
	memories, err := r.store.Query(ctx, scopeQuery(r.cfg.Scope, sessionID))
	if err != nil {
		return 0, fmt.Errorf("reorder %s: %w", strategy, err)
	}
	if len(memories) == 0 {
		return 0, nil
	}

	switch strategy {
	case ReorderImportance:
		sort.SliceStable(memories, func(i, j int) bool {
			return memories[i].ImportanceScore > memories[j].ImportanceScore
		})
	case ReorderRecency:
		sort.SliceStable(memories, func(i, j int) bool {
			return memories[i].LastAccessed.After(memories[j].LastAccessed)
		})
	case ReorderAccessFrequency:
		sort.SliceStable(memories, func(i, j int) bool {
			return memories[i].AccessCount > memories[j].AccessCount
		})
	case ReorderIntelligent:
		return r.reorderIntelligent(ctx, memories), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}

	updated := 0
	for rank, m := range memories {
		m.RetentionPriority = rank
		if err := r.store.Upsert(ctx, m); err != nil {
			log.Printf("retention: failed to write rank for memory %s: %v", m.ID, err)
			continue
		}
		updated++
	}
	return updated, nil
}

// reorderIntelligent writes the scorer's priority score and a reorder
// timestamp to every memory.
func (r *Reorderer) reorderIntelligent(ctx context.Context, memories []*storage.Memory) int {
	scores := r.scorer.PriorityScores(ctx, memories)
	now := time.Now()

	updated := 0
	for i, m := range memories {
		m.PriorityScore = scores[i]
		m.LastReordered = &now
		if err := r.store.Upsert(ctx, m); err != nil {
			log.Printf("retention: failed to write priority for memory %s: %v", m.ID, err)
			continue
		}
		updated++
	}
	return updated
}
