package mysql

import (
	"strings"

	"github.com/recall-labs/recallmem-go/pkg/storage"
)

// buildWhereClause builds a WHERE clause from query filters.
//
// Tag filters are applied in memory after scanning, since tags are
// persisted as a JSON array in a TEXT column.
func buildWhereClause(opts *storage.QueryOptions) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if opts.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.MemoryType != "" {
		conditions = append(conditions, "memory_type = ?")
		args = append(args, opts.MemoryType)
	}
	if opts.MinImportance > 0 {
		conditions = append(conditions, "importance_score >= ?")
		args = append(args, opts.MinImportance)
	}
	if opts.MaxImportance != nil {
		conditions = append(conditions, "importance_score < ?")
		args = append(args, *opts.MaxImportance)
	}
	if opts.CreatedBefore != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, *opts.CreatedBefore)
	}
	if opts.MaxAccessCount != nil {
		conditions = append(conditions, "access_count < ?")
		args = append(args, *opts.MaxAccessCount)
	}
	if opts.Archived != nil {
		conditions = append(conditions, "is_archived = ?")
		args = append(args, *opts.Archived)
	} else if !opts.IncludeArchived {
		conditions = append(conditions, "is_archived = FALSE")
	}
	if opts.ContentContains != "" {
		conditions = append(conditions, "LOWER(content) LIKE ?")
		args = append(args, "%"+strings.ToLower(opts.ContentContains)+"%")
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
