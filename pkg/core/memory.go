package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/recall-labs/recallmem-go/pkg/llm"
	"github.com/recall-labs/recallmem-go/pkg/llm/openai"
	"github.com/recall-labs/recallmem-go/pkg/retention"
	"github.com/recall-labs/recallmem-go/pkg/storage"
	"github.com/recall-labs/recallmem-go/pkg/storage/mysql"
	"github.com/recall-labs/recallmem-go/pkg/storage/postgres"
	"github.com/recall-labs/recallmem-go/pkg/storage/sqlite"
)

// defaultSearchLimit caps SearchMemories results when no limit is given.
const defaultSearchLimit = 10

// Client is the main RecallMem client for long-term memory management.
//
// It wires a storage backend, a scorer and the retention engine together
// and exposes the memory operations: add, get, search, update, delete,
// statistics, pruning, reordering, and the optimization pipeline.
//
// Store and scorer are injected explicitly at construction; the client
// holds no process-wide implicit state. Cross-session calls share no
// in-process mutable state and may run concurrently; per-key consistency
// is the store's concern (last-write-wins upsert).
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, err := core.NewClient(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	memory, _ := client.AddMemory(ctx, "session_001", "User prefers Go",
//	    core.WithMemoryType(core.TypeKnowledge),
//	    core.WithImportance(0.9))
type Client struct {
	store     storage.MemoryStore
	scorer    retention.Scorer
	pruner    *retention.Pruner
	reorderer *retention.Reorderer
	optimizer *retention.Optimizer

	// provider is the LLM behind AI-assisted scoring, nil when running
	// on heuristics only. Held for Close.
	provider llm.Provider

	cfg *Config

	// node generates unique IDs for memories.
	node *snowflake.Node
}

// NewClient creates a new RecallMem client from configuration.
//
// The storage backend and scorer are initialized from cfg; use
// NewClientWithStore to inject them directly.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, NewMemoryError("NewClient", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := initStorage(cfg.Storage)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	var provider llm.Provider
	var scorer retention.Scorer = retention.NewHeuristicScorer()
	if cfg.Retention.AIScoring {
		provider, err = initLLM(cfg.LLM)
		if err != nil {
			store.Close()
			return nil, NewMemoryError("NewClient", err)
		}
		scorer = retention.NewAIScorer(provider, &retention.AIScorerConfig{
			MaxBatch: cfg.Retention.ScoringBatchSize,
		})
	}

	client := newClient(store, scorer, cfg)
	client.provider = provider
	return client, nil
}

// NewClientWithStore creates a client over an explicitly injected store and
// scorer. A nil scorer selects the heuristic scorer.
func NewClientWithStore(store storage.MemoryStore, scorer retention.Scorer, cfg *Config) (*Client, error) {
	if store == nil {
		return nil, NewMemoryError("NewClientWithStore",
			fmt.Errorf("%w: store is required", ErrInvalidConfig))
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if scorer == nil {
		scorer = retention.NewHeuristicScorer()
	}
	return newClient(store, scorer, cfg), nil
}

func newClient(store storage.MemoryStore, scorer retention.Scorer, cfg *Config) *Client {
	retCfg := &retention.Config{
		MaxMemories:            cfg.Retention.MaxMemories,
		Scope:                  retention.CapacityScope(cfg.Retention.CapacityScope),
		ImportanceThreshold:    cfg.Retention.ImportanceThreshold,
		MaxAgeDays:             cfg.Retention.MaxAgeDays,
		MinAccessCount:         cfg.Retention.MinAccessCount,
		ArchiveAfterDays:       cfg.Retention.ArchiveAfterDays,
		ArchiveImportanceBelow: cfg.Retention.ArchiveImportanceBelow,
	}

	// Node ID 1: a single engine instance per process is the expected
	// deployment; multi-writer setups coordinate through the store.
	node, _ := snowflake.NewNode(1)

	return &Client{
		store:     store,
		scorer:    scorer,
		pruner:    retention.NewPruner(store, scorer, retCfg),
		reorderer: retention.NewReorderer(store, scorer, retCfg),
		optimizer: retention.NewOptimizer(store, scorer, retCfg),
		cfg:       cfg,
		node:      node,
	}
}

// AddMemory stores a new durable memory in the given session.
//
// Both timestamps are set to now and a unique ID is generated. After a
// successful write, the client checks active capacity and runs hybrid
// pruning when it is exceeded. A pruning failure is logged, never returned:
// a failed maintenance cycle must not block the conversation turn that
// triggered it.
func (c *Client) AddMemory(ctx context.Context, sessionID, content string, opts ...AddOption) (*MemoryItem, error) {
	if sessionID == "" {
		return nil, NewMemoryError("AddMemory", fmt.Errorf("%w: session id is required", ErrInvalidInput))
	}
	if content == "" {
		return nil, NewMemoryError("AddMemory", fmt.Errorf("%w: content is required", ErrInvalidInput))
	}

	options := &addOptions{
		memoryType: TypeConversation,
		importance: 0.5,
	}
	for _, opt := range opts {
		opt(options)
	}
	if !options.memoryType.Valid() {
		return nil, NewMemoryError("AddMemory",
			fmt.Errorf("%w: unknown memory type %q", ErrInvalidInput, options.memoryType))
	}

	now := nowUTC()
	item := &MemoryItem{
		ID:              c.node.Generate().String(),
		SessionID:       sessionID,
		Content:         content,
		MemoryType:      options.memoryType,
		ImportanceScore: clampImportance(options.importance),
		LastAccessed:    now,
		CreatedAt:       now,
		Tags:            options.tags,
		Metadata:        options.metadata,
		Embedding:       options.embedding,
	}

	if err := c.store.Insert(ctx, toStorageMemory(item)); err != nil {
		return nil, NewMemoryError("AddMemory", err)
	}

	c.autoPrune(ctx, sessionID)

	return item, nil
}

// autoPrune runs hybrid pruning when the active count exceeds capacity.
// This safety check bounds growth even if no caller ever prunes explicitly.
func (c *Client) autoPrune(ctx context.Context, sessionID string) {
	countOpts := &storage.CountOptions{CrossPartition: true}
	if c.cfg.Retention.CapacityScope == string(retention.ScopeSession) {
		countOpts = &storage.CountOptions{SessionID: sessionID}
	}

	active, err := c.store.Count(ctx, countOpts)
	if err != nil {
		log.Printf("recallmem: capacity check failed: %v", err)
		return
	}

	maxMemories := c.cfg.Retention.MaxMemories
	if maxMemories <= 0 {
		maxMemories = retention.DefaultConfig().MaxMemories
	}
	if active <= maxMemories {
		return
	}

	pruned, err := c.pruner.Prune(ctx, retention.StrategyHybrid, sessionID)
	if err != nil {
		log.Printf("recallmem: auto-prune failed: %v", err)
		return
	}
	log.Printf("recallmem: auto-prune removed %d memories (active %d > max %d)", pruned, active, maxMemories)
}

// GetMemory retrieves a memory by ID and records the access: access_count
// increments by exactly one and last_accessed is set to now.
//
// A failure to persist the access bump is logged, not returned; the read
// itself still succeeds. Returns ErrNotFound if no memory matches.
func (c *Client) GetMemory(ctx context.Context, id, sessionID string) (*MemoryItem, error) {
	m, err := c.store.Get(ctx, id, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewMemoryError("GetMemory", ErrNotFound)
		}
		return nil, NewMemoryError("GetMemory", err)
	}

	m.AccessCount++
	m.LastAccessed = nowUTC()
	if err := c.store.Upsert(ctx, m); err != nil {
		log.Printf("recallmem: failed to record access for memory %s: %v", id, err)
	}

	return fromStorageMemory(m), nil
}

// SearchMemories finds active memories in a session matching the query.
//
// The match is a case-insensitive substring match on content; filters narrow
// by type, tags and minimum importance. Results are sorted by importance,
// then recency of access, both descending.
func (c *Client) SearchMemories(ctx context.Context, sessionID, query string, opts ...SearchOption) ([]*MemoryItem, error) {
	if sessionID == "" {
		return nil, NewMemoryError("SearchMemories", fmt.Errorf("%w: session id is required", ErrInvalidInput))
	}

	options := &searchOptions{limit: defaultSearchLimit}
	for _, opt := range opts {
		opt(options)
	}

	memories, err := c.store.Query(ctx, &storage.QueryOptions{
		SessionID:       sessionID,
		MemoryType:      string(options.memoryType),
		MinImportance:   options.minImportance,
		Tags:            options.tags,
		ContentContains: strings.TrimSpace(query),
	})
	if err != nil {
		return nil, NewMemoryError("SearchMemories", err)
	}

	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].ImportanceScore != memories[j].ImportanceScore {
			return memories[i].ImportanceScore > memories[j].ImportanceScore
		}
		return memories[i].LastAccessed.After(memories[j].LastAccessed)
	})

	if options.limit > 0 && len(memories) > options.limit {
		memories = memories[:options.limit]
	}

	items := make([]*MemoryItem, len(memories))
	for i, m := range memories {
		items[i] = fromStorageMemory(m)
	}
	return items, nil
}

// UpdateImportance sets the importance of a memory, clamping out-of-range
// values to [0, 1]. Returns the updated item.
func (c *Client) UpdateImportance(ctx context.Context, id, sessionID string, importance float64) (*MemoryItem, error) {
	m, err := c.store.Get(ctx, id, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewMemoryError("UpdateImportance", ErrNotFound)
		}
		return nil, NewMemoryError("UpdateImportance", err)
	}

	m.ImportanceScore = clampImportance(importance)
	if err := c.store.Upsert(ctx, m); err != nil {
		return nil, NewMemoryError("UpdateImportance", err)
	}

	return fromStorageMemory(m), nil
}

// DeleteMemory hard-deletes a memory. Returns ErrNotFound if no memory
// matches.
func (c *Client) DeleteMemory(ctx context.Context, id, sessionID string) error {
	if err := c.store.Delete(ctx, id, sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NewMemoryError("DeleteMemory", ErrNotFound)
		}
		return NewMemoryError("DeleteMemory", err)
	}
	return nil
}

// Statistics summarizes the memories in a session, archived included.
func (c *Client) Statistics(ctx context.Context, sessionID string) (*MemoryStats, error) {
	memories, err := c.store.Query(ctx, &storage.QueryOptions{
		SessionID:       sessionID,
		IncludeArchived: true,
	})
	if err != nil {
		return nil, NewMemoryError("Statistics", err)
	}

	stats := &MemoryStats{
		Total:  len(memories),
		ByType: make(map[string]int),
	}

	importanceSum := 0.0
	for _, m := range memories {
		if m.IsArchived {
			stats.Archived++
			continue
		}
		stats.Active++
		stats.ByType[m.MemoryType]++
		stats.TotalAccesses += m.AccessCount
		importanceSum += m.ImportanceScore

		created := m.CreatedAt
		if stats.OldestCreatedAt == nil || created.Before(*stats.OldestCreatedAt) {
			stats.OldestCreatedAt = &created
		}
		if stats.NewestCreatedAt == nil || created.After(*stats.NewestCreatedAt) {
			stats.NewestCreatedAt = &created
		}
	}

	if stats.Active > 0 {
		stats.AverageImportance = importanceSum / float64(stats.Active)
	}
	return stats, nil
}

// PruneMemories runs the named pruning strategy (importance, age,
// access_frequency, hybrid, ai_optimized) and returns the number of
// memories removed. Unknown names fail with retention.ErrInvalidStrategy.
func (c *Client) PruneMemories(ctx context.Context, strategy, sessionID string) (int, error) {
	count, err := c.pruner.Prune(ctx, strategy, sessionID)
	if err != nil {
		return 0, NewMemoryError("PruneMemories", err)
	}
	return count, nil
}

// ReorderMemories runs the named reordering strategy (importance, recency,
// access_frequency, intelligent) and returns the number of memories
// updated. Unknown names fail with retention.ErrInvalidStrategy.
func (c *Client) ReorderMemories(ctx context.Context, strategy, sessionID string) (int, error) {
	count, err := c.reorderer.Reorder(ctx, strategy, sessionID)
	if err != nil {
		return 0, NewMemoryError("ReorderMemories", err)
	}
	return count, nil
}

// Optimize runs the full maintenance pipeline: AI-optimized archival,
// intelligent reordering, the archival sweep, and telemetry. Step failures
// land in the report, never in the returned error.
func (c *Client) Optimize(ctx context.Context, sessionID string) (*retention.Report, error) {
	return c.optimizer.Optimize(ctx, sessionID)
}

// Close closes the client and releases the store and LLM provider.
func (c *Client) Close() error {
	var firstErr error
	if c.provider != nil {
		if err := c.provider.Close(); err != nil {
			firstErr = err
		}
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return NewMemoryError("Close", firstErr)
}

// initStorage creates the storage backend from configuration.
func initStorage(cfg StorageConfig) (storage.MemoryStore, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{
			DBPath:    getStringConfig(cfg.Config, "db_path", "./recallmem.db"),
			TableName: getStringConfig(cfg.Config, "table_name", "memories"),
		})
	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:      getStringConfig(cfg.Config, "host", "localhost"),
			Port:      getIntConfig(cfg.Config, "port", 5432),
			User:      getStringConfig(cfg.Config, "user", "postgres"),
			Password:  getStringConfig(cfg.Config, "password", ""),
			DBName:    getStringConfig(cfg.Config, "db_name", "recallmem"),
			TableName: getStringConfig(cfg.Config, "table_name", "memories"),
			SSLMode:   getStringConfig(cfg.Config, "ssl_mode", "disable"),
		})
	case "mysql":
		return mysql.NewClient(&mysql.Config{
			Host:      getStringConfig(cfg.Config, "host", "127.0.0.1"),
			Port:      getIntConfig(cfg.Config, "port", 3306),
			User:      getStringConfig(cfg.Config, "user", "root"),
			Password:  getStringConfig(cfg.Config, "password", ""),
			DBName:    getStringConfig(cfg.Config, "db_name", "recallmem"),
			TableName: getStringConfig(cfg.Config, "table_name", "memories"),
		})
	default:
		return nil, fmt.Errorf("%w: unsupported storage provider: %s", ErrInvalidConfig, cfg.Provider)
	}
}

// initLLM creates the LLM provider from configuration.
func initLLM(cfg LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewClient(&openai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider: %s", ErrInvalidConfig, cfg.Provider)
	}
}

// getStringConfig reads a string value from a provider config map.
func getStringConfig(config map[string]interface{}, key, defaultValue string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return defaultValue
}

// getIntConfig reads an int value from a provider config map. JSON decoding
// produces float64 numbers, so both shapes are accepted.
func getIntConfig(config map[string]interface{}, key string, defaultValue int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return defaultValue
}

// nowUTC returns the current time in UTC, truncated to microseconds so
// timestamps survive round trips through backends with microsecond columns.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// clampImportance clamps an importance score to [0, 1].
func clampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
