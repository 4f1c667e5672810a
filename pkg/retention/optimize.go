package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// Optimization step names, as recorded in Report.StepErrors.
const (
	StepPrune     = "prune"
	StepReorder   = "reorder"
	StepArchive   = "archive_sweep"
	StepTelemetry = "telemetry"
)

// Metrics describes the state of the memory store after optimization.
type Metrics struct {
	// Active is the number of non-archived memories in scope.
	Active int `json:"active"`

	// Archived is the number of archived memories in scope.
	Archived int `json:"archived"`

	// Total is Active + Archived.
	Total int `json:"total"`

	// Efficiency is Active/Total: the share of stored memories still in
	// active use.
	Efficiency float64 `json:"efficiency"`

	// Utilization is Active/MaxMemories: how full the active capacity is.
	Utilization float64 `json:"utilization"`

	// OptimizationScore is min(1, Efficiency * (1 - Utilization)). It
	// rewards a small, well-utilized active set and penalizes both bloat
	// and overflow.
	OptimizationScore float64 `json:"optimization_score"`
}

// Report summarizes one optimization run.
type Report struct {
	// Archived is the number of memories archived by AI-optimized pruning.
	Archived int `json:"archived"`

	// Reordered is the number of memories rescored by intelligent
	// reordering.
	Reordered int `json:"reordered"`

	// Swept is the number of memories archived by the secondary sweep.
	Swept int `json:"swept"`

	// Metrics is the post-run store telemetry.
	Metrics Metrics `json:"metrics"`

	// StepErrors records failures per step name. A present entry means
	// the step was skipped or partial; the remaining steps still ran.
	StepErrors map[string]string `json:"step_errors,omitempty"`

	// StartedAt and Duration time the run.
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Optimizer composes pruning, reordering, the archival sweep and telemetry
// into one maintenance pipeline.
//
// Steps run strictly in order, never concurrently: archival changes the
// active-set size that every later step depends on. Each step is fault
// isolated: a failing step is recorded in the report and the rest of the
// pipeline continues, so maintenance never destabilizes the hosting agent.
type Optimizer struct {
	store     storage.MemoryStore
	pruner    *Pruner
	reorderer *Reorderer
	cfg       *Config
}

// NewOptimizer creates an optimizer over the given store.
//
// scorer backs AI-optimized pruning and intelligent reordering; pass nil to
// use the heuristic scorer. Pass nil cfg for defaults.
func NewOptimizer(store storage.MemoryStore, scorer Scorer, cfg *Config) *Optimizer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.normalize()
	return &Optimizer{
		store:     store,
		pruner:    NewPruner(store, scorer, cfg),
		reorderer: NewReorderer(store, scorer, cfg),
		cfg:       cfg,
	}
}

// Optimize runs the full pipeline over the scope and returns its report.
//
// The returned error is always nil today; the signature leaves room for a
// future fatal class of failure. Step failures land in Report.StepErrors.
func (o *Optimizer) Optimize(ctx context.Context, sessionID string) (*Report, error) {
	report := &Report{
		StartedAt:  time.Now(),
		StepErrors: map[string]string{},
	}

	// Step 1: capacity-driven archival.
	archived, err := o.pruner.Prune(ctx, StrategyAIOptimized, sessionID)
	if err != nil {
		o.recordStepError(report, StepPrune, err)
	}
	report.Archived = archived

	// Step 2: intelligent reordering over the surviving active set.
	reordered, err := o.reorderer.Reorder(ctx, ReorderIntelligent, sessionID)
	if err != nil {
		o.recordStepError(report, StepReorder, err)
	}
	report.Reordered = reordered

	// Step 3: proactive hygiene, independent of capacity pressure.
	swept, err := o.archivalSweep(ctx, sessionID)
	if err != nil {
		o.recordStepError(report, StepArchive, err)
	}
	report.Swept = swept

	// Step 4: telemetry over the final state.
	metrics, err := o.collectMetrics(ctx, sessionID)
	if err != nil {
		o.recordStepError(report, StepTelemetry, err)
	} else {
		report.Metrics = metrics
	}

	if len(report.StepErrors) == 0 {
		report.StepErrors = nil
	}
	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

// archivalSweep archives active memories that are both older than the sweep
// age and below the sweep importance ceiling.
func (o *Optimizer) archivalSweep(ctx context.Context, sessionID string) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -o.cfg.ArchiveAfterDays)
	opts := scopeQuery(o.cfg.Scope, sessionID)
	opts.CreatedBefore = &cutoff
	opts.MaxImportance = &o.cfg.ArchiveImportanceBelow

	memories, err := o.store.Query(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("archival sweep: %w", err)
	}

	now := time.Now()
	swept := 0
	for _, m := range memories {
		m.IsArchived = true
		m.ArchivedAt = &now
		m.ArchiveReason = ArchiveReasonAgeAndLowImportance
		if err := o.store.Upsert(ctx, m); err != nil {
			log.Printf("retention: failed to sweep memory %s: %v", m.ID, err)
			continue
		}
		swept++
	}
	return swept, nil
}

// collectMetrics counts the active and archived sets and derives the
// efficiency, utilization and optimization scores.
func (o *Optimizer) collectMetrics(ctx context.Context, sessionID string) (Metrics, error) {
	active, err := o.store.Count(ctx, scopeCount(o.cfg.Scope, sessionID))
	if err != nil {
		return Metrics{}, fmt.Errorf("count active: %w", err)
	}

	archivedOpts := scopeCount(o.cfg.Scope, sessionID)
	archivedOpts.Archived = storage.Bool(true)
	archived, err := o.store.Count(ctx, archivedOpts)
	if err != nil {
		return Metrics{}, fmt.Errorf("count archived: %w", err)
	}

	m := Metrics{
		Active:   active,
		Archived: archived,
		Total:    active + archived,
	}
	if m.Total > 0 {
		m.Efficiency = float64(active) / float64(m.Total)
	}
	if o.cfg.MaxMemories > 0 {
		m.Utilization = float64(active) / float64(o.cfg.MaxMemories)
	}
	m.OptimizationScore = m.Efficiency * (1 - m.Utilization)
	if m.OptimizationScore > 1 {
		m.OptimizationScore = 1
	}
	return m, nil
}

func (o *Optimizer) recordStepError(report *Report, step string, err error) {
	log.Printf("retention: optimization step %s failed: %v", step, err)
	report.StepErrors[step] = err.Error()
}
