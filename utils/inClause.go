package utils

import "strings"

// InClause renders "column IN (?,?,...)" with one placeholder per id and
// returns the bind values in the same order. Values are never interpolated.
// An empty id list renders a predicate that matches nothing.
func InClause(column string, ids []uint) (string, []interface{}) {
	if len(ids) == 0 {
		return "1 = 0", nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	return column + " IN (" + placeholders + ")", args
}
