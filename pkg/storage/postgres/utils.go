package postgres

import (
	"fmt"
	"strings"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// buildWhereClause builds a WHERE clause with PostgreSQL-style $n
// placeholders. Tag filters are applied in memory after scanning, since
// tags are persisted as a JSON array in a TEXT column.
func buildWhereClause(opts *storage.QueryOptions) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	add := func(expr string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}

	if opts.SessionID != "" {
		add("session_id = $%d", opts.SessionID)
	}
	if opts.MemoryType != "" {
		add("memory_type = $%d", opts.MemoryType)
	}
	if opts.MinImportance > 0 {
		add("importance_score >= $%d", opts.MinImportance)
	}
	if opts.MaxImportance != nil {
		add("importance_score < $%d", *opts.MaxImportance)
	}
	if opts.CreatedBefore != nil {
		add("created_at < $%d", *opts.CreatedBefore)
	}
	if opts.MaxAccessCount != nil {
		add("access_count < $%d", *opts.MaxAccessCount)
	}
	if opts.Archived != nil {
		add("is_archived = $%d", *opts.Archived)
	} else if !opts.IncludeArchived {
		conditions = append(conditions, "is_archived = FALSE")
	}
	if opts.ContentContains != "" {
		add("LOWER(content) LIKE $%d", "%"+strings.ToLower(opts.ContentContains)+"%")
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// matchesTags reports whether a memory carries every requested tag.
func matchesTags(memory *storage.Memory, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	have := make(map[string]bool, len(memory.Tags))
	for _, t := range memory.Tags {
		have[t] = true
	}
	for _, t := range tags {
		if !have[t] {
			return false
		}
	}
	return true
}
