package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/recall-labs/recallmem-go/pkg/llm"
	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// summaryContentChars is the content truncation length for item summaries
// sent to the reasoning service. Enough signal to score on, small enough to
// keep batch prompts bounded.
const summaryContentChars = 200

const retentionRubric = `You evaluate which agent memories are worth keeping long-term.
Score each memory from 0.0 (safe to discard) to 1.0 (must keep), weighing
importance, how often it has been accessed, how recent it is, and whether it
captures durable knowledge rather than passing conversation.`

const priorityRubric = `You rank agent memories for retrieval priority.
Score each memory from 0.0 (lowest priority) to 1.0 (highest priority),
weighing importance, access frequency, recency, and whether it is likely to
be needed in upcoming conversation turns.`

// AIScorerConfig holds the configuration for the AI-assisted scorer.
type AIScorerConfig struct {
	// MaxBatch is the maximum number of memories per reasoning-service
	// call. Default: 50.
	MaxBatch int

	// RequestsPerSecond limits the reasoning-service call rate.
	// Default: 2.
	RequestsPerSecond float64

	// Burst is the rate limiter burst size. Default: 1.
	Burst int

	// Breaker configures the circuit breaker around service calls.
	Breaker BreakerConfig
}

// AIScorer scores memories through an external reasoning service, falling
// back to the heuristic formulas whenever the service is unreachable,
// rate-limited, or returns a malformed response.
//
// The fallback is mandatory and silent: AIScorer satisfies the Scorer
// contract of never failing, so an unreliable external dependency can slow
// maintenance down but never stall it. Calls are wrapped in a circuit
// breaker and a rate limiter.
type AIScorer struct {
	provider llm.Provider
	fallback *HeuristicScorer
	maxBatch int
	breaker  *scoringBreaker
	limiter  *rate.Limiter
}

// NewAIScorer creates an AI-assisted scorer on top of the given provider.
// Pass nil cfg for defaults.
func NewAIScorer(provider llm.Provider, cfg *AIScorerConfig) *AIScorer {
	if cfg == nil {
		cfg = &AIScorerConfig{}
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 50
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &AIScorer{
		provider: provider,
		fallback: NewHeuristicScorer(),
		maxBatch: cfg.MaxBatch,
		breaker:  newScoringBreaker(cfg.Breaker),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// RetentionScores scores memories on survival value, AI-assisted.
func (s *AIScorer) RetentionScores(ctx context.Context, memories []*storage.Memory) []float64 {
	return s.scoreAll(ctx, memories, retentionRubric, s.fallback.RetentionScores)
}

// PriorityScores scores memories on retrieval priority, AI-assisted.
func (s *AIScorer) PriorityScores(ctx context.Context, memories []*storage.Memory) []float64 {
	return s.scoreAll(ctx, memories, priorityRubric, s.fallback.PriorityScores)
}

// scoreAll scores memories batch by batch, degrading each failed batch to
// the heuristic fallback independently.
func (s *AIScorer) scoreAll(
	ctx context.Context,
	memories []*storage.Memory,
	rubric string,
	fallback func(context.Context, []*storage.Memory) []float64,
) []float64 {
	scores := make([]float64, 0, len(memories))
	for start := 0; start < len(memories); start += s.maxBatch {
		end := start + s.maxBatch
		if end > len(memories) {
			end = len(memories)
		}
		batch := memories[start:end]

		batchScores, err := s.scoreBatch(ctx, batch, rubric)
		if err != nil {
			log.Printf("retention: ai scoring unavailable (%v), using heuristic scores for %d memories", err, len(batch))
			batchScores = fallback(ctx, batch)
		}
		scores = append(scores, batchScores...)
	}
	return scores
}

// scoreBatch sends one batch to the reasoning service and parses the result.
func (s *AIScorer) scoreBatch(ctx context.Context, batch []*storage.Memory, rubric string) ([]float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	prompt := buildScoringPrompt(batch)
	response, err := s.breaker.execute(ctx, func() (string, error) {
		return s.provider.GenerateWithMessages(ctx, []llm.Message{
			{Role: "system", Content: rubric},
			{Role: "user", Content: prompt},
		}, llm.WithTemperature(0.1))
	})
	if err != nil {
		return nil, err
	}

	return parseScores(response, len(batch))
}

// buildScoringPrompt renders a batch of item summaries and the expected
// response shape.
func buildScoringPrompt(batch []*storage.Memory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score the following %d memories.\n\n", len(batch))
	for i, m := range batch {
		content := m.Content
		if len(content) > summaryContentChars {
			content = content[:summaryContentChars]
		}
		fmt.Fprintf(&b, "%d. id=%s type=%s importance=%.2f access_count=%d created_at=%s tags=%s\n   %s\n",
			i+1, m.ID, m.MemoryType, m.ImportanceScore, m.AccessCount,
			m.CreatedAt.Format(time.RFC3339), strings.Join(m.Tags, ","), content)
	}
	fmt.Fprintf(&b, "\nRespond with ONLY a JSON array of %d numbers between 0.0 and 1.0, one per memory, in the same order. No other text.", len(batch))
	return b.String()
}

// parseScores extracts a JSON float array from a model response and
// validates its length and range. Partial results are never trusted: a
// wrong-length array is a failure.
func parseScores(response string, want int) ([]float64, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var scores []float64
	if err := json.Unmarshal([]byte(response[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("malformed score array: %w", err)
	}
	if len(scores) != want {
		return nil, fmt.Errorf("score count mismatch: got %d, want %d", len(scores), want)
	}
	for i, v := range scores {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("score %d out of range: %v", i, v)
		}
	}
	return scores, nil
}
