package retention

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// ErrInvalidStrategy indicates an unknown pruning or reordering strategy
// name. It fails the call, not the process.
var ErrInvalidStrategy = errors.New("invalid strategy")

// Pruning strategy names.
const (
	// StrategyImportance hard-deletes memories below the importance
	// threshold.
	StrategyImportance = "importance"

	// StrategyAge hard-deletes memories older than the age cutoff.
	StrategyAge = "age"

	// StrategyAccessFrequency hard-deletes memories accessed fewer times
	// than the minimum.
	StrategyAccessFrequency = "access_frequency"

	// StrategyHybrid hard-deletes the lowest hybrid-scored memories down
	// to capacity.
	StrategyHybrid = "hybrid"

	// StrategyAIOptimized archives (soft-deletes) the lowest
	// retention-scored memories down to capacity.
	StrategyAIOptimized = "ai_optimized"
)

// Archive reasons recorded on soft-deleted memories.
const (
	// ArchiveReasonAIOptimized marks memories archived by capacity-driven
	// AI-optimized pruning.
	ArchiveReasonAIOptimized = "ai_optimized"

	// ArchiveReasonAgeAndLowImportance marks memories archived by the
	// proactive archival sweep.
	ArchiveReasonAgeAndLowImportance = "age_and_low_importance"
)

// Pruner applies pruning strategies over the store.
//
// All strategies share the contract "run to completion, return the number of
// memories removed (or archived)". Per-item failures inside a batch are
// logged and skipped; the returned count reflects only successes.
type Pruner struct {
	store  storage.MemoryStore
	scorer Scorer
	cfg    *Config
}

// NewPruner creates a pruner over the given store.
//
// scorer backs the ai_optimized strategy; pass nil to use the heuristic
// scorer. Pass nil cfg for defaults.
func NewPruner(store storage.MemoryStore, scorer Scorer, cfg *Config) *Pruner {
	if scorer == nil {
		scorer = NewHeuristicScorer()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.normalize()
	return &Pruner{store: store, scorer: scorer, cfg: cfg}
}

// Prune runs the named strategy and returns the number of memories removed
// (hard-deleted, or archived for ai_optimized).
//
// sessionID scopes the run when the pruner is configured with per-session
// capacity; it is ignored under global scope. Unknown strategy names fail
// with ErrInvalidStrategy.
func (p *Pruner) Prune(ctx context.Context, strategy, sessionID string) (int, error) {
	strategies := map[string]func(context.Context, string) (int, error){
		StrategyImportance:      p.pruneByImportance,
		StrategyAge:             p.pruneByAge,
		StrategyAccessFrequency: p.pruneByAccessFrequency,
		StrategyHybrid:          p.pruneHybrid,
		StrategyAIOptimized:     p.pruneAIOptimized,
	}

	fn, ok := strategies[strategy]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}
	return fn(ctx, sessionID)
}

// pruneByImportance hard-deletes active memories below the importance
// threshold. Pure threshold, no ranking.
func (p *Pruner) pruneByImportance(ctx context.Context, sessionID string) (int, error) {
	opts := scopeQuery(p.cfg.Scope, sessionID)
	opts.MaxImportance = &p.cfg.ImportanceThreshold

	memories, err := p.store.Query(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("prune importance: %w", err)
	}
	return p.deleteBatch(ctx, memories), nil
}

// pruneByAge hard-deletes active memories older than the age cutoff,
// regardless of importance.
func (p *Pruner) pruneByAge(ctx context.Context, sessionID string) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -p.cfg.MaxAgeDays)
	opts := scopeQuery(p.cfg.Scope, sessionID)
	opts.CreatedBefore = &cutoff

	memories, err := p.store.Query(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("prune age: %w", err)
	}
	return p.deleteBatch(ctx, memories), nil
}

// pruneByAccessFrequency hard-deletes active memories read fewer times than
// the minimum, clearing write-once noise.
func (p *Pruner) pruneByAccessFrequency(ctx context.Context, sessionID string) (int, error) {
	opts := scopeQuery(p.cfg.Scope, sessionID)
	opts.MaxAccessCount = &p.cfg.MinAccessCount

	memories, err := p.store.Query(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("prune access_frequency: %w", err)
	}
	return p.deleteBatch(ctx, memories), nil
}

// pruneHybrid hard-deletes the lowest hybrid-scored memories until the
// active set is back at capacity. No-op at or under capacity; never removes
// more than needed.
func (p *Pruner) pruneHybrid(ctx context.Context, sessionID string) (int, error) {
	memories, err := p.store.Query(ctx, scopeQuery(p.cfg.Scope, sessionID))
	if err != nil {
		return 0, fmt.Errorf("prune hybrid: %w", err)
	}

	overflow := len(memories) - p.cfg.MaxMemories
	if overflow <= 0 {
		return 0, nil
	}

	now := time.Now()
	sort.SliceStable(memories, func(i, j int) bool {
		return HybridScore(memories[i], now) < HybridScore(memories[j], now)
	})

	return p.deleteBatch(ctx, memories[:overflow]), nil
}

// pruneAIOptimized archives the lowest retention-scored memories until the
// active set is back at capacity. Non-destructive: content is preserved for
// audit, only is_archived flips.
func (p *Pruner) pruneAIOptimized(ctx context.Context, sessionID string) (int, error) {
	memories, err := p.store.Query(ctx, scopeQuery(p.cfg.Scope, sessionID))
	if err != nil {
		return 0, fmt.Errorf("prune ai_optimized: %w", err)
	}

	overflow := len(memories) - p.cfg.MaxMemories
	if overflow <= 0 {
		return 0, nil
	}

	scores := p.scorer.RetentionScores(ctx, memories)

	type scored struct {
		memory *storage.Memory
		score  float64
	}
	ranked := make([]scored, len(memories))
	for i, m := range memories {
		ranked[i] = scored{memory: m, score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	now := time.Now()
	archived := 0
	for _, r := range ranked[:overflow] {
		m := r.memory
		m.IsArchived = true
		m.RetentionScore = r.score
		m.ArchivedAt = &now
		m.ArchiveReason = ArchiveReasonAIOptimized
		if err := p.store.Upsert(ctx, m); err != nil {
			log.Printf("retention: failed to archive memory %s: %v", m.ID, err)
			continue
		}
		archived++
	}
	return archived, nil
}

// deleteBatch hard-deletes the given memories, logging and skipping per-item
// failures. Returns the number of successful deletions.
func (p *Pruner) deleteBatch(ctx context.Context, memories []*storage.Memory) int {
	deleted := 0
	for _, m := range memories {
		if err := p.store.Delete(ctx, m.ID, m.SessionID); err != nil {
			log.Printf("retention: failed to delete memory %s: %v", m.ID, err)
			continue
		}
		deleted++
	}
	return deleted
}

// HybridScore computes the capacity-pruning score of a memory at the given
// reference time:
//
//	importance*0.5 + age_factor*0.3 + access_factor*0.2
//
// age_factor decays linearly over one year; access_factor saturates at 10
// reads. Higher = keep.
func HybridScore(m *storage.Memory, now time.Time) float64 {
	ageFactor := 1.0 - now.Sub(m.CreatedAt).Hours()/24.0/365.0
	if ageFactor < 0 {
		ageFactor = 0
	}

	accessFactor := float64(m.AccessCount) / 10.0
	if accessFactor > 1 {
		accessFactor = 1
	}

	return m.ImportanceScore*0.5 + ageFactor*0.3 + accessFactor*0.2
}
