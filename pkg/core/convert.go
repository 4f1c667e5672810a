package core

import "github.com/recall-labs/recallmem-go/pkg/storage"

// toStorageMemory converts a core MemoryItem to the storage mirror type.
//
// The storage package defines its own Memory struct to avoid a circular
// dependency with core; these two functions are the only place the shapes
// meet.
func toStorageMemory(m *MemoryItem) *storage.Memory {
	return &storage.Memory{
		ID:                m.ID,
		SessionID:         m.SessionID,
		Content:           m.Content,
		MemoryType:        string(m.MemoryType),
		ImportanceScore:   m.ImportanceScore,
		AccessCount:       m.AccessCount,
		LastAccessed:      m.LastAccessed,
		CreatedAt:         m.CreatedAt,
		Tags:              m.Tags,
		Metadata:          m.Metadata,
		Embedding:         m.Embedding,
		PriorityScore:     m.PriorityScore,
		RetentionScore:    m.RetentionScore,
		RetentionPriority: m.RetentionPriority,
		IsArchived:        m.IsArchived,
		LastReordered:     m.LastReordered,
		ArchivedAt:        m.ArchivedAt,
		ArchiveReason:     m.ArchiveReason,
	}
}

// fromStorageMemory converts a storage Memory back to the core model.
func fromStorageMemory(m *storage.Memory) *MemoryItem {
	return &MemoryItem{
		ID:                m.ID,
		SessionID:         m.SessionID,
		Content:           m.Content,
		MemoryType:        MemoryType(m.MemoryType),
		ImportanceScore:   m.ImportanceScore,
		AccessCount:       m.AccessCount,
		LastAccessed:      m.LastAccessed,
		CreatedAt:         m.CreatedAt,
		Tags:              m.Tags,
		Metadata:          m.Metadata,
		Embedding:         m.Embedding,
		PriorityScore:     m.PriorityScore,
		RetentionScore:    m.RetentionScore,
		RetentionPriority: m.RetentionPriority,
		IsArchived:        m.IsArchived,
		LastReordered:     m.LastReordered,
		ArchivedAt:        m.ArchivedAt,
		ArchiveReason:     m.ArchiveReason,
	}
}
