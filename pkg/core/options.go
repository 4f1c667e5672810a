package core

// addOptions holds the resolved options for AddMemory.
type addOptions struct {
	memoryType MemoryType
	importance float64
	tags       []string
	metadata   map[string]interface{}
	embedding  []float64
}

// AddOption configures AddMemory.
type AddOption func(*addOptions)

// WithMemoryType sets the memory type. Default: conversation.
func WithMemoryType(t MemoryType) AddOption {
	return func(o *addOptions) {
		o.memoryType = t
	}
}

// WithImportance sets the importance score. Out-of-range values are clamped
// to [0, 1]. Default: 0.5.
func WithImportance(importance float64) AddOption {
	return func(o *addOptions) {
		o.importance = importance
	}
}

// WithTags attaches tags to the memory.
func WithTags(tags ...string) AddOption {
	return func(o *addOptions) {
		o.tags = tags
	}
}

// WithMetadata attaches structured metadata to the memory.
func WithMetadata(metadata map[string]interface{}) AddOption {
	return func(o *addOptions) {
		o.metadata = metadata
	}
}

// WithEmbedding attaches a retrieval-layer vector to the memory. The vector
// is persisted as-is and never interpreted by this engine.
func WithEmbedding(embedding []float64) AddOption {
	return func(o *addOptions) {
		o.embedding = embedding
	}
}

// searchOptions holds the resolved options for SearchMemories.
type searchOptions struct {
	memoryType    MemoryType
	tags          []string
	minImportance float64
	limit         int
}

// SearchOption configures SearchMemories.
type SearchOption func(*searchOptions)

// WithTypeFilter restricts results to one memory type.
func WithTypeFilter(t MemoryType) SearchOption {
	return func(o *searchOptions) {
		o.memoryType = t
	}
}

// WithTagFilter restricts results to memories carrying every listed tag.
func WithTagFilter(tags ...string) SearchOption {
	return func(o *searchOptions) {
		o.tags = tags
	}
}

// WithMinImportance restricts results to memories at or above the given
// importance.
func WithMinImportance(min float64) SearchOption {
	return func(o *searchOptions) {
		o.minImportance = min
	}
}

// WithLimit caps the number of results. Default: 10.
func WithLimit(limit int) SearchOption {
	return func(o *searchOptions) {
		o.limit = limit
	}
}
