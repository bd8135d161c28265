package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSQLiteParams(t *testing.T) {
	assert.Equal(t, "file:docvault.db", withSQLiteParams("file:docvault.db"))
	assert.Equal(t, "file:docvault.db?a=1&b=2", withSQLiteParams("file:docvault.db", "a=1", "b=2"))
	assert.Equal(t, "file:t?mode=memory&cache=shared&a=1",
		withSQLiteParams("file:t?mode=memory&cache=shared", "a=1"))
}

func TestSQLiteInMemory(t *testing.T) {
	assert.True(t, sqliteInMemory("file:t_1?mode=memory&cache=shared"))
	assert.True(t, sqliteInMemory(":memory:"))
	assert.False(t, sqliteInMemory("file:docvault.db"))
}
