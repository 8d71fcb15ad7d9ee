package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	items := []struct {
		input string
		name  string
	}{
		{"mysql", "mysql"},
		{"postgres", "postgres"},
		{"postgresql", "postgres"},
		{"sqlite", "sqlite"},
		{"sqlite3", "sqlite"},
		{"Postgres", "postgres"},
	}

	for _, item := range items {
		dialect, err := ByName(item.input)
		require.NoError(t, err, item.input)
		assert.Equal(t, item.name, dialect.Name())
	}

	_, err := ByName("oracle")
	assert.Error(t, err)
}

func TestQuoteIdentifier(t *testing.T) {
	items := []struct {
		dialect string
		input   string
		quoted  string
	}{
		{"mysql", "users", "`users`"},
		{"postgres", "users", `"users"`},
		{"sqlite", "users", `"users"`},
		{"postgres", "u.id", `"u"."id"`},
		{"mysql", "u.id", "`u`.`id`"},
		{"postgres", `"already"`, `"already"`},
		{"mysql", "`already`", "`already`"},
		{"postgres", `we"ird`, `"we""ird"`},
	}

	for _, item := range items {
		dialect, err := ByName(item.dialect)
		require.NoError(t, err)
		assert.Equal(t, item.quoted, dialect.QuoteIdentifier(item.input), item.input)
	}
}

func TestPlaceholders(t *testing.T) {
	mysql, _ := ByName("mysql")
	postgres, _ := ByName("postgres")
	sqlite, _ := ByName("sqlite")

	assert.Equal(t, "?", mysql.Placeholder(3))
	assert.Equal(t, "?", sqlite.Placeholder(3))
	assert.Equal(t, "$3", postgres.Placeholder(3))
}

func TestBulkMatch(t *testing.T) {
	values := []interface{}{1, 2, 3}

	mysql, _ := ByName("mysql")
	fragment, params := mysql.BulkMatch("id", values, 0)
	assert.Equal(t, "`id` IN (?, ?, ?)", fragment)
	assert.Equal(t, values, params)

	postgres, _ := ByName("postgres")
	fragment, params = postgres.BulkMatch("id", values, 2)
	assert.Equal(t, `"id" = ANY($3)`, fragment)
	assert.Equal(t, []interface{}{values}, params)
}
