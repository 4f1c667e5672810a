// Package storage provides interfaces and types for memory persistence backends.
//
// It defines the MemoryStore interface that all storage implementations must
// satisfy, along with the persisted memory shape and query/count options.
// Records are partitioned by session: every point operation is keyed by
// (id, session_id), and queries default to a single partition unless the
// caller explicitly opts into a cross-partition scan.
package storage

import (
	"context"
	"errors"
	"time"
)

// Predefined errors for storage backends.
var (
	// ErrNotFound indicates that a point read matched no record.
	ErrNotFound = errors.New("memory not found")

	// ErrUnavailable indicates that the persistence backend could not be
	// reached or failed mid-operation. Callers should treat this as
	// non-fatal and skip or retry the maintenance cycle.
	ErrUnavailable = errors.New("store unavailable")

	// ErrCrossPartition indicates a query or count spanning all sessions
	// without the explicit CrossPartition flag.
	ErrCrossPartition = errors.New("cross-partition scan requires CrossPartition flag")
)

// Memory represents a memory record as persisted by a backend.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. It mirrors the core.MemoryItem structure.
type Memory struct {
	// ID is the unique identifier of the memory.
	ID string

	// SessionID is the partition key grouping memories per conversation.
	SessionID string

	// Content is the text content of the memory.
	Content string

	// MemoryType is the categorical tag (conversation, tool_call,
	// system_event, knowledge).
	MemoryType string

	// ImportanceScore is the caller-assigned importance in [0, 1].
	ImportanceScore float64

	// AccessCount is the number of reads, monotonically non-decreasing.
	AccessCount int

	// LastAccessed is when the memory was last read.
	LastAccessed time.Time

	// CreatedAt is when the memory was created.
	CreatedAt time.Time

	// Tags is the set of labels attached to the memory.
	Tags []string

	// Metadata contains additional structured information.
	Metadata map[string]interface{}

	// Embedding is an optional vector owned by the retrieval layer.
	// Opaque to this engine; persisted as-is.
	Embedding []float64

	// PriorityScore is written by the intelligent reordering engine.
	PriorityScore float64

	// RetentionScore is the retention score recorded when a memory is
	// archived by AI-optimized pruning.
	RetentionScore float64

	// RetentionPriority is the rank index (0 = highest) written by the
	// basic reordering strategies.
	RetentionPriority int

	// IsArchived marks a soft-deleted memory. Archived memories are
	// excluded from active-capacity accounting but never physically
	// deleted.
	IsArchived bool

	// LastReordered is when the intelligent reorderer last scored this
	// memory (nil if never).
	LastReordered *time.Time

	// ArchivedAt is when the memory was archived (nil if active).
	ArchivedAt *time.Time

	// ArchiveReason records why the memory was archived.
	ArchiveReason string
}

// MemoryStore defines the interface for persistence backends.
//
// All storage implementations (SQLite, PostgreSQL, MySQL) must implement
// this interface. The store is the sole arbiter of per-key consistency:
// Upsert is last-write-wins, and no optimistic concurrency control is
// provided.
type MemoryStore interface {
	// Insert inserts a new memory record.
	Insert(ctx context.Context, memory *Memory) error

	// Get retrieves a memory by (id, sessionID).
	//
	// Returns ErrNotFound if no record matches.
	Get(ctx context.Context, id, sessionID string) (*Memory, error)

	// Upsert creates or replaces a memory record, idempotent on id.
	Upsert(ctx context.Context, memory *Memory) error

	// Delete removes a memory by (id, sessionID).
	//
	// Returns ErrNotFound if no record matches.
	Delete(ctx context.Context, id, sessionID string) error

	// Query returns memories matching the given filters.
	//
	// The scope defaults to a single partition (opts.SessionID); scanning
	// across partitions requires opts.CrossPartition to be set explicitly.
	Query(ctx context.Context, opts *QueryOptions) ([]*Memory, error)

	// Count returns the number of memories matching the given filters.
	Count(ctx context.Context, opts *CountOptions) (int, error)

	// Close closes the store and releases resources.
	Close() error
}

// QueryOptions contains filters for Query operations.
//
// The engine filters on importance_score, created_at, access_count,
// is_archived and session_id; the remaining fields back the search surface.
type QueryOptions struct {
	// SessionID restricts the query to one partition.
	SessionID string

	// CrossPartition must be set to scan across all sessions. Queries
	// with an empty SessionID and CrossPartition unset fail with
	// ErrCrossPartition, making the cost tradeoff visible at the call site.
	CrossPartition bool

	// MemoryType filters by the categorical tag (empty = all types).
	MemoryType string

	// MinImportance filters to importance_score >= MinImportance.
	MinImportance float64

	// MaxImportance, when non-nil, filters to importance_score < *MaxImportance.
	MaxImportance *float64

	// CreatedBefore, when non-nil, filters to created_at < *CreatedBefore.
	CreatedBefore *time.Time

	// MaxAccessCount, when non-nil, filters to access_count < *MaxAccessCount.
	MaxAccessCount *int

	// Archived filters on the archive flag. When nil and IncludeArchived
	// is unset, only active memories are returned: that is the default
	// visibility for every consumer of the store.
	Archived *bool

	// IncludeArchived disables the default active-only filter entirely.
	IncludeArchived bool

	// Tags filters to memories carrying every listed tag.
	Tags []string

	// ContentContains filters by case-insensitive substring match on content.
	ContentContains string

	// Limit caps the number of returned records (0 = no limit).
	Limit int
}

// CountOptions contains filters for Count operations.
type CountOptions struct {
	// SessionID restricts the count to one partition.
	SessionID string

	// CrossPartition must be set to count across all sessions.
	CrossPartition bool

	// Archived filters on the archive flag. Nil counts active memories
	// only unless IncludeArchived is set.
	Archived *bool

	// IncludeArchived counts active and archived memories alike.
	IncludeArchived bool
}

// Bool returns a pointer to b, for use with the Archived filters.
func Bool(b bool) *bool { return &b }
