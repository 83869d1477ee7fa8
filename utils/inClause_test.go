package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInClause(t *testing.T) {
	clause, args := InClause("id", []uint{4, 9, 2})
	assert.Equal(t, "id IN (?,?,?)", clause)
	assert.Equal(t, []interface{}{uint(4), uint(9), uint(2)}, args)
}

func TestInClauseSingle(t *testing.T) {
	clause, args := InClause("syllabus_id", []uint{7})
	assert.Equal(t, "syllabus_id IN (?)", clause)
	assert.Len(t, args, 1)
}

func TestInClauseEmpty(t *testing.T) {
	clause, args := InClause("id", nil)
	assert.Equal(t, "1 = 0", clause)
	assert.Empty(t, args)
}
