// Package mysql provides a MySQL implementation of the memory store.
//
// MySQL (and MySQL-protocol compatible databases) suits shared deployments
// that already run a relational fleet. Tags, metadata and embeddings are
// stored as JSON strings in TEXT columns.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// Client implements storage.MemoryStore using MySQL as the backend.
type Client struct {
	db        *sql.DB
	tableName string
}

// Config contains configuration for creating a MySQL memory store.
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
}

// NewClient creates a new MySQL memory store.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.TableName == "" {
		cfg.TableName = "memories"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w: %v", storage.ErrUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w: %v", storage.ErrUnavailable, err)
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
			id VARCHAR(64) PRIMARY KEY,
			session_id VARCHAR(128) NOT NULL,
			content TEXT NOT NULL,
			memory_type VARCHAR(32) NOT NULL,
			importance_score DOUBLE DEFAULT 0.5,
			access_count INT DEFAULT 0,
			last_accessed DATETIME(6) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			tags TEXT,
			metadata TEXT,
			embedding LONGTEXT,
			priority_score DOUBLE DEFAULT 0,
			retention_score DOUBLE DEFAULT 0,
			retention_priority INT DEFAULT 0,
			is_archived BOOLEAN DEFAULT FALSE,
			last_reordered DATETIME(6),
			archived_at DATETIME(6),
			archive_reason VARCHAR(255) DEFAULT '',
			INDEX idx_session (session_id, is_archived)
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		SELECT %s FROM %s WHERE id = ? AND session_id = ?
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			session_id = VALUES(session_id),
			content = VALUES(content),
			memory_type = VALUES(memory_type),
			importance_score = VALUES(importance_score),
			access_count = VALUES(access_count),
			last_accessed = VALUES(last_accessed),
			created_at = VALUES(created_at),
			tags = VALUES(tags),
			metadata = VALUES(metadata),
			embedding = VALUES(embedding),
			priority_score = VALUES(priority_score),
			retention_score = VALUES(retention_score),
			retention_priority = VALUES(retention_priority),
			is_archived = VALUES(is_archived),
			last_reordered = VALUES(last_reordered),
			archived_at = VALUES(archived_at),
			archive_reason = VALUES(archive_reason)
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
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND session_id = ?", c.tableName)

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
