package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem() *MemoryItem {
	created := time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)
	accessed := created.Add(2 * time.Hour)
	return &MemoryItem{
		ID:              "1234567890",
		SessionID:       "session_001",
		Content:         "User prefers concise answers",
		MemoryType:      TypeKnowledge,
		ImportanceScore: 0.85,
		AccessCount:     3,
		LastAccessed:    accessed,
		CreatedAt:       created,
		Tags:            []string{"preference", "style"},
		Metadata:        map[string]interface{}{"source": "conversation"},
		Embedding:       []float64{0.1, 0.2, 0.3},
	}
}

func TestRecordRoundTrip(t *testing.T) {
	item := testItem()

	data, err := MarshalRecord(item)
	require.NoError(t, err)

	restored, err := UnmarshalRecord(data)
	require.NoError(t, err)

	assert.Equal(t, item.ID, restored.ID)
	assert.Equal(t, item.SessionID, restored.SessionID)
	assert.Equal(t, item.Content, restored.Content)
	assert.Equal(t, item.MemoryType, restored.MemoryType)
	assert.Equal(t, item.ImportanceScore, restored.ImportanceScore)
	assert.Equal(t, item.AccessCount, restored.AccessCount)
	assert.Equal(t, item.Tags, restored.Tags)
	assert.Equal(t, item.Metadata, restored.Metadata)
	assert.Equal(t, item.Embedding, restored.Embedding)
	assert.True(t, item.CreatedAt.Equal(restored.CreatedAt))
	assert.True(t, item.LastAccessed.Equal(restored.LastAccessed))
}

func TestRecordRoundTripArchivedFields(t *testing.T) {
	item := testItem()
	archivedAt := item.CreatedAt.Add(48 * time.Hour)
	reordered := item.CreatedAt.Add(24 * time.Hour)
	item.IsArchived = true
	item.ArchivedAt = &archivedAt
	item.ArchiveReason = "ai_optimized"
	item.RetentionScore = 0.12
	item.PriorityScore = 0.4
	item.RetentionPriority = 7
	item.LastReordered = &reordered

	data, err := MarshalRecord(item)
	require.NoError(t, err)
	restored, err := UnmarshalRecord(data)
	require.NoError(t, err)

	assert.True(t, restored.IsArchived)
	assert.Equal(t, "ai_optimized", restored.ArchiveReason)
	assert.Equal(t, 0.12, restored.RetentionScore)
	assert.Equal(t, 0.4, restored.PriorityScore)
	assert.Equal(t, 7, restored.RetentionPriority)
	require.NotNil(t, restored.ArchivedAt)
	assert.True(t, archivedAt.Equal(*restored.ArchivedAt))
	require.NotNil(t, restored.LastReordered)
	assert.True(t, reordered.Equal(*restored.LastReordered))
}

func TestRecordTimestampsAreRFC3339(t *testing.T) {
	r := testItem().ToRecord()

	_, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	assert.NoError(t, err)
	_, err = time.Parse(time.RFC3339Nano, r.LastAccessed)
	assert.NoError(t, err)
	assert.Equal(t, SchemaVersion, r.SchemaVersion)
}

func TestToItemRejectsUnknownSchemaVersion(t *testing.T) {
	r := testItem().ToRecord()
	r.SchemaVersion = 99

	_, err := r.ToItem()
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestToItemRejectsBadTimestamps(t *testing.T) {
	r := testItem().ToRecord()
	r.CreatedAt = "not-a-timestamp"

	_, err := r.ToItem()
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUnmarshalRecordRejectsInvalidJSON(t *testing.T) {
	_, err := UnmarshalRecord([]byte("{"))
	assert.Error(t, err)
}
