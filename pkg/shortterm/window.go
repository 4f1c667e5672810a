// Package shortterm provides a per-session sliding window over recent
// conversation turns.
//
// The window is bounded by two independent caps, an item count and an
// estimated token total, and evicts oldest-first when either is exceeded.
// It is in-process only and entirely independent of the long-term store.
//
// A Window is exclusively owned by one session or agent instance: it holds
// no internal locking and must not be shared across concurrently running
// agents without caller-supplied synchronization.
package shortterm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidConfig indicates non-positive window limits.
var ErrInvalidConfig = errors.New("window limits must be positive")

// Entry is one turn held in the window. Entries exist only for the lifetime
// of their session object and are never persisted.
type Entry struct {
	// Role is the speaker: "user", "assistant", or "system".
	Role string `json:"role"`

	// Content is the turn text.
	Content string `json:"content"`

	// Tokens is the estimated token count of Content.
	Tokens int `json:"tokens"`

	// Metadata carries additional data such as tool call details.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Timestamp is when the entry was added.
	Timestamp time.Time `json:"timestamp"`
}

// Summary describes the current state of a window.
type Summary struct {
	SessionID   string     `json:"session_id"`
	CreatedAt   time.Time  `json:"created_at"`
	TotalItems  int        `json:"total_items"`
	TotalTokens int        `json:"total_tokens"`
	MaxItems    int        `json:"max_items"`
	MaxTokens   int        `json:"max_tokens"`
	ItemUsage   float64    `json:"item_usage_percent"`
	TokenUsage  float64    `json:"token_usage_percent"`
	OldestEntry *time.Time `json:"oldest_entry,omitempty"`
	NewestEntry *time.Time `json:"newest_entry,omitempty"`
}

// Window is a bounded sliding window of recent turns.
type Window struct {
	sessionID   string
	createdAt   time.Time
	maxItems    int
	maxTokens   int
	entries     []Entry
	totalTokens int
}

// New creates a window with the given caps.
//
// Returns ErrInvalidConfig when either cap is non-positive.
func New(maxItems, maxTokens int) (*Window, error) {
	if maxItems <= 0 || maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max_items=%d max_tokens=%d", ErrInvalidConfig, maxItems, maxTokens)
	}
	return &Window{
		sessionID: "session_" + uuid.NewString()[:8],
		createdAt: time.Now(),
		maxItems:  maxItems,
		maxTokens: maxTokens,
	}, nil
}

// SessionID returns the window's generated session identifier.
func (w *Window) SessionID() string {
	return w.sessionID
}

// Add appends a turn and evicts oldest-first until both caps hold.
//
// The token count is a coarse deterministic proxy (content length / 4), not
// a real tokenizer. The count cap is enforced before the token cap, so a
// tight token budget still dominates.
func (w *Window) Add(role, content string, metadata map[string]interface{}) {
	w.entries = append(w.entries, Entry{
		Role:      role,
		Content:   content,
		Tokens:    estimateTokens(content),
		Metadata:  metadata,
		Timestamp: time.Now(),
	})
	w.totalTokens += estimateTokens(content)

	w.evict()
}

// AddToolCall records a tool invocation as an assistant turn with tool
// metadata, so later searches can find it by tool name.
func (w *Window) AddToolCall(toolName string, input, output map[string]interface{}, success bool) {
	w.Add("assistant", "Tool call: "+toolName, map[string]interface{}{
		"type":      "tool_call",
		"tool_name": toolName,
		"input":     input,
		"output":    output,
		"success":   success,
	})
}

// AddSystemEvent records a system event as a system turn.
func (w *Window) AddSystemEvent(event string, data map[string]interface{}) {
	w.Add("system", event, map[string]interface{}{
		"type":  "system_event",
		"event": event,
		"data":  data,
	})
}

// evict drops oldest entries while either cap is exceeded.
func (w *Window) evict() {
	for len(w.entries) > w.maxItems {
		w.dropOldest()
	}
	for w.totalTokens > w.maxTokens && len(w.entries) > 0 {
		w.dropOldest()
	}
}

func (w *Window) dropOldest() {
	w.totalTokens -= w.entries[0].Tokens
	w.entries = w.entries[1:]
}

// ContextWindow returns the newest entries whose token estimates fit within
// tokenBudget, in chronological order.
//
// It is a pure read: no eviction side effect, fully restartable. It walks
// newest to oldest and stops before the entry that would exceed the budget.
func (w *Window) ContextWindow(tokenBudget int) []Entry {
	used := 0
	start := len(w.entries)
	for i := len(w.entries) - 1; i >= 0; i-- {
		if used+w.entries[i].Tokens > tokenBudget {
			break
		}
		used += w.entries[i].Tokens
		start = i
	}

	result := make([]Entry, len(w.entries)-start)
	copy(result, w.entries[start:])
	return result
}

// Search returns entries whose content or tool-name metadata contains the
// query, case-insensitive, in original order. An empty roleFilter matches
// all roles.
func (w *Window) Search(query, roleFilter string) []Entry {
	queryLower := strings.ToLower(query)

	var results []Entry
	for _, e := range w.entries {
		if roleFilter != "" && e.Role != roleFilter {
			continue
		}
		if strings.Contains(strings.ToLower(e.Content), queryLower) {
			results = append(results, e)
			continue
		}
		if toolName, ok := e.Metadata["tool_name"].(string); ok {
			if strings.Contains(strings.ToLower(toolName), queryLower) {
				results = append(results, e)
			}
		}
	}
	return results
}

// History returns a copy of all retained entries in chronological order.
func (w *Window) History() []Entry {
	history := make([]Entry, len(w.entries))
	copy(history, w.entries)
	return history
}

// Recent returns the last n entries in chronological order.
func (w *Window) Recent(n int) []Entry {
	if n <= 0 {
		return nil
	}
	if n > len(w.entries) {
		n = len(w.entries)
	}
	recent := make([]Entry, n)
	copy(recent, w.entries[len(w.entries)-n:])
	return recent
}

// Len returns the number of retained entries.
func (w *Window) Len() int {
	return len(w.entries)
}

// TotalTokens returns the running token estimate over retained entries.
func (w *Window) TotalTokens() int {
	return w.totalTokens
}

// Summary returns the current window statistics.
func (w *Window) Summary() Summary {
	s := Summary{
		SessionID:   w.sessionID,
		CreatedAt:   w.createdAt,
		TotalItems:  len(w.entries),
		TotalTokens: w.totalTokens,
		MaxItems:    w.maxItems,
		MaxTokens:   w.maxTokens,
		ItemUsage:   float64(len(w.entries)) / float64(w.maxItems) * 100,
		TokenUsage:  float64(w.totalTokens) / float64(w.maxTokens) * 100,
	}
	if len(w.entries) > 0 {
		oldest := w.entries[0].Timestamp
		newest := w.entries[len(w.entries)-1].Timestamp
		s.OldestEntry = &oldest
		s.NewestEntry = &newest
	}
	return s
}

// Clear removes all entries.
func (w *Window) Clear() {
	w.entries = nil
	w.totalTokens = 0
}

// windowState is the JSON export shape of a window.
type windowState struct {
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	Entries     []Entry   `json:"entries"`
	TotalTokens int       `json:"total_tokens"`
}

// Export serializes the window contents to JSON.
func (w *Window) Export() ([]byte, error) {
	return json.MarshalIndent(windowState{
		SessionID:   w.sessionID,
		CreatedAt:   w.createdAt,
		Entries:     w.entries,
		TotalTokens: w.totalTokens,
	}, "", "  ")
}

// Import replaces the window contents from an Export payload, then applies
// the window's own caps to the imported entries.
func (w *Window) Import(data []byte) error {
	var state windowState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("import window: %w", err)
	}

	if state.SessionID != "" {
		w.sessionID = state.SessionID
	}
	if !state.CreatedAt.IsZero() {
		w.createdAt = state.CreatedAt
	}
	w.entries = state.Entries
	w.totalTokens = 0
	for _, e := range w.entries {
		w.totalTokens += e.Tokens
	}
	w.evict()
	return nil
}

// estimateTokens estimates the token count of text at roughly four
// characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}
