// Package core provides the main RecallMem client and the memory data model.
package core

import "time"

// MemoryType is the closed categorical tag of a memory.
type MemoryType string

// Memory types.
const (
	// TypeConversation is a regular conversation turn.
	TypeConversation MemoryType = "conversation"

	// TypeToolCall records a tool invocation and its result.
	TypeToolCall MemoryType = "tool_call"

	// TypeSystemEvent records a system-level event.
	TypeSystemEvent MemoryType = "system_event"

	// TypeKnowledge is a durable extracted fact.
	TypeKnowledge MemoryType = "knowledge"
)

// Valid reports whether t is one of the defined memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case TypeConversation, TypeToolCall, TypeSystemEvent, TypeKnowledge:
		return true
	}
	return false
}

// MemoryItem represents a durable fact in long-term memory.
//
// Callers hold items by value copy: mutating a returned item does not change
// persisted state until it is written back through the client.
type MemoryItem struct {
	// ID is the unique identifier.
	ID string `json:"id"`

	// SessionID is the partition key grouping memories per conversation.
	SessionID string `json:"session_id"`

	// Content is the memory text.
	Content string `json:"content"`

	// MemoryType is the categorical tag.
	MemoryType MemoryType `json:"memory_type"`

	// ImportanceScore is the caller-assigned importance, always in [0, 1].
	ImportanceScore float64 `json:"importance_score"`

	// AccessCount is the number of reads, monotonically non-decreasing.
	AccessCount int `json:"access_count"`

	// LastAccessed is when the memory was last read. Never earlier than
	// CreatedAt.
	LastAccessed time.Time `json:"last_accessed"`

	// CreatedAt is when the memory was created.
	CreatedAt time.Time `json:"created_at"`

	// Tags is the set of labels attached to the memory.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional structured information.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Embedding is an optional vector owned by the retrieval layer.
	// Opaque to this engine; persisted as-is.
	Embedding []float64 `json:"embedding,omitempty"`

	// PriorityScore is written by intelligent reordering.
	PriorityScore float64 `json:"priority_score"`

	// RetentionScore is recorded when the memory is archived by
	// AI-optimized pruning.
	RetentionScore float64 `json:"retention_score"`

	// RetentionPriority is the rank (0 = highest) written by basic
	// reordering.
	RetentionPriority int `json:"retention_priority"`

	// IsArchived marks a soft-deleted memory, excluded from active
	// capacity but never physically removed.
	IsArchived bool `json:"is_archived"`

	// LastReordered is when intelligent reordering last scored this
	// memory.
	LastReordered *time.Time `json:"last_reordered,omitempty"`

	// ArchivedAt is when the memory was archived.
	ArchivedAt *time.Time `json:"archived_at,omitempty"`

	// ArchiveReason records why the memory was archived.
	ArchiveReason string `json:"archive_reason,omitempty"`
}

// MemoryStats summarizes the memories in a scope.
type MemoryStats struct {
	// Total is the number of memories, archived included.
	Total int `json:"total"`

	// Active is the number of non-archived memories.
	Active int `json:"active"`

	// Archived is the number of archived memories.
	Archived int `json:"archived"`

	// ByType counts active memories per memory type.
	ByType map[string]int `json:"by_type"`

	// AverageImportance is the mean importance of active memories.
	AverageImportance float64 `json:"average_importance"`

	// TotalAccesses sums access counts over active memories.
	TotalAccesses int `json:"total_accesses"`

	// OldestCreatedAt and NewestCreatedAt bound active memory creation
	// times (nil when there are no active memories).
	OldestCreatedAt *time.Time `json:"oldest_created_at,omitempty"`
	NewestCreatedAt *time.Time `json:"newest_created_at,omitempty"`
}
