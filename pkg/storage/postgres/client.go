// Package postgres provides a PostgreSQL implementation of the memory store.
//
// PostgreSQL is suitable for multi-process deployments where several agent
// runtimes share one durable memory pool. Tags, metadata and embeddings are
// stored as JSON strings in TEXT columns.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// Client implements storage.MemoryStore using PostgreSQL as the backend.
type Client struct {
	db        *sql.DB
	tableName string
}

// Config contains configuration for creating a PostgreSQL memory store.
type Config struct {
	// Host is the database server host.
	Host string

	// Port is the database server port.
	Port int

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// DBName is the database name.
	DBName string

	// TableName is the name of the table to use. Defaults to "memories".
	TableName string

	// SSLMode is the PostgreSQL sslmode setting. Defaults to "disable".
	SSLMode string
}

// NewClient creates a new PostgreSQL memory store.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.TableName == "" {
		cfg.TableName = "memories"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w: %v", storage.ErrUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w: %v", storage.ErrUnavailable, err)
	}

	client := &Client{
		db:        db,
		tableName: cfg.TableName,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			content TEXT NOT NULL,
			memory_type TEXT NOT NULL,
			importance_score DOUBLE PRECISION DEFAULT 0.5,
			access_count INTEGER DEFAULT 0,
			last_accessed TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			tags TEXT,
			metadata TEXT,
			embedding TEXT,
			priority_score DOUBLE PRECISION DEFAULT 0,
			retention_score DOUBLE PRECISION DEFAULT 0,
			retention_priority INTEGER DEFAULT 0,
			is_archived BOOLEAN DEFAULT FALSE,
			last_reordered TIMESTAMPTZ,
			archived_at TIMESTAMPTZ,
			archive_reason TEXT DEFAULT ''
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w: %v", storage.ErrUnavailable, err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_session ON %s(session_id, is_archived)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w: %v", storage.ErrUnavailable, err)
	}

	return nil
}

// Insert inserts a memory record.
func (c *Client) Insert(ctx context.Context, memory *storage.Memory) error {
	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, session_id, content, memory_type, importance_score, access_count,
		 last_accessed, created_at, tags, metadata, embedding, priority_score,
		 retention_score, retention_priority, is_archived, last_reordered,
		 archived_at, archive_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, c.tableName)

	args, err := encodeArgs(memory)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("Insert: %w: %v", storage.ErrUnavailable, err)
	}

	return nil
}

// Get retrieves a memory by (id, sessionID).
func (c *Client) Get(ctx context.Context, id, sessionID string) (*storage.Memory, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1 AND session_id = $2
	`, columnList, c.tableName)

	row := c.db.QueryRowContext(ctx, query, id, sessionID)

	memory, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w: %v", storage.ErrUnavailable, err)
	}

	return memory, nil
}

// Upsert creates or replaces a memory record, idempotent on id.
func (c *Client) Upsert(ctx context.Context, memory *storage.Memory) error {
	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, session_id, content, memory_type, importance_score, access_count,
		 last_accessed, created_at, tags, metadata, embedding, priority_score,
		 retention_score, retention_priority, is_archived, last_reordered,
		 archived_at, archive_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			content = EXCLUDED.content,
			memory_type = EXCLUDED.memory_type,
			importance_score = EXCLUDED.importance_score,
			access_count = EXCLUDED.access_count,
			last_accessed = EXCLUDED.last_accessed,
			created_at = EXCLUDED.created_at,
			tags = EXCLUDED.tags,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			priority_score = EXCLUDED.priority_score,
			retention_score = EXCLUDED.retention_score,
			retention_priority = EXCLUDED.retention_priority,
			is_archived = EXCLUDED.is_archived,
			last_reordered = EXCLUDED.last_reordered,
			archived_at = EXCLUDED.archived_at,
			archive_reason = EXCLUDED.archive_reason
	`, c.tableName)

	args, err := encodeArgs(memory)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("Upsert: %w: %v", storage.ErrUnavailable, err)
	}

	return nil
}

// Delete removes a memory by (id, sessionID).
func (c *Client) Delete(ctx context.Context, id, sessionID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND session_id = $2", c.tableName)

	result, err := c.db.ExecContext(ctx, query, id, sessionID)
	if err != nil {
		return fmt.Errorf("Delete: %w: %v", storage.ErrUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w: %v", storage.ErrUnavailable, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("Delete: %w", storage.ErrNotFound)
	}

	return nil
}

// Query returns memories matching the given filters.
func (c *Client) Query(ctx context.Context, opts *storage.QueryOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.QueryOptions{}
	}
	if opts.SessionID == "" && !opts.CrossPartition {
		return nil, fmt.Errorf("Query: %w", storage.ErrCrossPartition)
	}

	whereClause, args := buildWhereClause(opts)

	query := fmt.Sprintf(`
		SELECT %s FROM %s %s ORDER BY created_at DESC, id
	`, columnList, c.tableName, whereClause)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Query: %w: %v", storage.ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("Query: %w: %v", storage.ErrUnavailable, err)
		}
		if !matchesTags(memory, opts.Tags) {
			continue
		}
		memories = append(memories, memory)
		if opts.Limit > 0 && len(memories) >= opts.Limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Query: %w: %v", storage.ErrUnavailable, err)
	}

	return memories, nil
}

// Count returns the number of memories matching the given filters.
func (c *Client) Count(ctx context.Context, opts *storage.CountOptions) (int, error) {
	if opts == nil {
		opts = &storage.CountOptions{}
	}
	if opts.SessionID == "" && !opts.CrossPartition {
		return 0, fmt.Errorf("Count: %w", storage.ErrCrossPartition)
	}

	whereClause, args := buildWhereClause(&storage.QueryOptions{
		SessionID:       opts.SessionID,
		Archived:        opts.Archived,
		IncludeArchived: opts.IncludeArchived,
	})

	query := fmt.Sprintf("SELECT COUNT(1) FROM %s %s", c.tableName, whereClause)

	var count int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w: %v", storage.ErrUnavailable, err)
	}

	return count, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// columnList is the shared SELECT column order matched by scanMemory.
const columnList = `id, session_id, content, memory_type, importance_score,
	access_count, last_accessed, created_at, tags, metadata, embedding,
	priority_score, retention_score, retention_priority, is_archived,
	last_reordered, archived_at, archive_reason`

// encodeArgs serializes a memory into the column order used by Insert/Upsert.
func encodeArgs(memory *storage.Memory) ([]interface{}, error) {
	tagsJSON, err := json.Marshal(memory.Tags)
	if err != nil {
		return nil, err
	}
	metadataJSON, err := json.Marshal(memory.Metadata)
	if err != nil {
		return nil, err
	}

	var embeddingJSON interface{}
	if memory.Embedding != nil {
		b, err := json.Marshal(memory.Embedding)
		if err != nil {
			return nil, err
		}
		embeddingJSON = string(b)
	}

	var lastReordered, archivedAt interface{}
	if memory.LastReordered != nil {
		lastReordered = *memory.LastReordered
	}
	if memory.ArchivedAt != nil {
		archivedAt = *memory.ArchivedAt
	}

	return []interface{}{
		memory.ID,
		memory.SessionID,
		memory.Content,
		memory.MemoryType,
		memory.ImportanceScore,
		memory.AccessCount,
		memory.LastAccessed,
		memory.CreatedAt,
		string(tagsJSON),
		string(metadataJSON),
		embeddingJSON,
		memory.PriorityScore,
		memory.RetentionScore,
		memory.RetentionPriority,
		memory.IsArchived,
		lastReordered,
		archivedAt,
		memory.ArchiveReason,
	}, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory scans a memory from a database row or rows.
func scanMemory(scanner rowScanner) (*storage.Memory, error) {
	var memory storage.Memory
	var tagsStr, metadataStr, embeddingStr sql.NullString
	var lastReordered, archivedAt sql.NullTime

	err := scanner.Scan(
		&memory.ID,
		&memory.SessionID,
		&memory.Content,
		&memory.MemoryType,
		&memory.ImportanceScore,
		&memory.AccessCount,
		&memory.LastAccessed,
		&memory.CreatedAt,
		&tagsStr,
		&metadataStr,
		&embeddingStr,
		&memory.PriorityScore,
		&memory.RetentionScore,
		&memory.RetentionPriority,
		&memory.IsArchived,
		&lastReordered,
		&archivedAt,
		&memory.ArchiveReason,
	)
	if err != nil {
		return nil, err
	}

	if tagsStr.Valid && tagsStr.String != "" {
		if err := json.Unmarshal([]byte(tagsStr.String), &memory.Tags); err != nil {
			return nil, fmt.Errorf("parse tags: %w", err)
		}
	}
	if metadataStr.Valid && metadataStr.String != "" {
		if err := json.Unmarshal([]byte(metadataStr.String), &memory.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	if embeddingStr.Valid && embeddingStr.String != "" {
		if err := json.Unmarshal([]byte(embeddingStr.String), &memory.Embedding); err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
	}
	if lastReordered.Valid {
		memory.LastReordered = &lastReordered.Time
	}
	if archivedAt.Valid {
		memory.ArchivedAt = &archivedAt.Time
	}

	return &memory, nil
}
