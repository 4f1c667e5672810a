package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the current serialized record schema version.
//
// The version is embedded in every record so schema drift is caught at this
// one boundary instead of scattered across call sites.
const SchemaVersion = 1

// MemoryRecord is the flat serialized form of a MemoryItem.
//
// Timestamps are RFC 3339 strings, tags a string array, metadata a nested
// object, and the embedding a float array or absent. The record is the only
// serialization boundary of the model: external systems exchange records,
// never raw items.
type MemoryRecord struct {
	SchemaVersion     int                    `json:"schema_version"`
	ID                string                 `json:"id"`
	SessionID         string                 `json:"session_id"`
	Content           string                 `json:"content"`
	MemoryType        string                 `json:"memory_type"`
	ImportanceScore   float64                `json:"importance_score"`
	AccessCount       int                    `json:"access_count"`
	LastAccessed      string                 `json:"last_accessed"`
	CreatedAt         string                 `json:"created_at"`
	Tags              []string               `json:"tags,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Embedding         []float64              `json:"embedding,omitempty"`
	PriorityScore     float64                `json:"priority_score"`
	RetentionScore    float64                `json:"retention_score"`
	RetentionPriority int                    `json:"retention_priority"`
	IsArchived        bool                   `json:"is_archived"`
	LastReordered     string                 `json:"last_reordered,omitempty"`
	ArchivedAt        string                 `json:"archived_at,omitempty"`
	ArchiveReason     string                 `json:"archive_reason,omitempty"`
}

// ToRecord converts the item to its serialized record form.
func (m *MemoryItem) ToRecord() *MemoryRecord {
	r := &MemoryRecord{
		SchemaVersion:     SchemaVersion,
		ID:                m.ID,
		SessionID:         m.SessionID,
		Content:           m.Content,
		MemoryType:        string(m.MemoryType),
		ImportanceScore:   m.ImportanceScore,
		AccessCount:       m.AccessCount,
		LastAccessed:      m.LastAccessed.Format(time.RFC3339Nano),
		CreatedAt:         m.CreatedAt.Format(time.RFC3339Nano),
		Tags:              m.Tags,
		Metadata:          m.Metadata,
		Embedding:         m.Embedding,
		PriorityScore:     m.PriorityScore,
		RetentionScore:    m.RetentionScore,
		RetentionPriority: m.RetentionPriority,
		IsArchived:        m.IsArchived,
		ArchiveReason:     m.ArchiveReason,
	}
	if m.LastReordered != nil {
		r.LastReordered = m.LastReordered.Format(time.RFC3339Nano)
	}
	if m.ArchivedAt != nil {
		r.ArchivedAt = m.ArchivedAt.Format(time.RFC3339Nano)
	}
	return r
}

// ToItem converts the record back to a MemoryItem.
//
// Unknown schema versions and unparseable timestamps are rejected so drift
// surfaces here rather than as corrupt items downstream.
func (r *MemoryRecord) ToItem() (*MemoryItem, error) {
	if r.SchemaVersion != SchemaVersion {
		return nil, NewMemoryError("ToItem",
			fmt.Errorf("%w: unsupported schema version %d", ErrInvalidInput, r.SchemaVersion))
	}

	lastAccessed, err := time.Parse(time.RFC3339Nano, r.LastAccessed)
	if err != nil {
		return nil, NewMemoryError("ToItem", fmt.Errorf("%w: last_accessed: %v", ErrInvalidInput, err))
	}
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return nil, NewMemoryError("ToItem", fmt.Errorf("%w: created_at: %v", ErrInvalidInput, err))
	}

	item := &MemoryItem{
		ID:                r.ID,
		SessionID:         r.SessionID,
		Content:           r.Content,
		MemoryType:        MemoryType(r.MemoryType),
		ImportanceScore:   r.ImportanceScore,
		AccessCount:       r.AccessCount,
		LastAccessed:      lastAccessed,
		CreatedAt:         createdAt,
		Tags:              r.Tags,
		Metadata:          r.Metadata,
		Embedding:         r.Embedding,
		PriorityScore:     r.PriorityScore,
		RetentionScore:    r.RetentionScore,
		RetentionPriority: r.RetentionPriority,
		IsArchived:        r.IsArchived,
		ArchiveReason:     r.ArchiveReason,
	}

	if r.LastReordered != "" {
		t, err := time.Parse(time.RFC3339Nano, r.LastReordered)
		if err != nil {
			return nil, NewMemoryError("ToItem", fmt.Errorf("%w: last_reordered: %v", ErrInvalidInput, err))
		}
		item.LastReordered = &t
	}
	if r.ArchivedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, r.ArchivedAt)
		if err != nil {
			return nil, NewMemoryError("ToItem", fmt.Errorf("%w: archived_at: %v", ErrInvalidInput, err))
		}
		item.ArchivedAt = &t
	}

	return item, nil
}

// MarshalRecord serializes an item to its JSON record form.
func MarshalRecord(m *MemoryItem) ([]byte, error) {
	data, err := json.Marshal(m.ToRecord())
	if err != nil {
		return nil, NewMemoryError("MarshalRecord", err)
	}
	return data, nil
}

// UnmarshalRecord deserializes a JSON record into an item.
func UnmarshalRecord(data []byte) (*MemoryItem, error) {
	var r MemoryRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, NewMemoryError("UnmarshalRecord", err)
	}
	return r.ToItem()
}
