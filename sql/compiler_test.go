package sql

import (
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/restql/sql-data-api/rest/errors"
	"github.com/restql/sql-data-api/types"
)

func assertSQL(t *testing.T, expected, actual string) {
	t.Helper()
	if expected != actual {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(expected, actual, false)
		t.Errorf("unexpected sql:\n%s", dmp.DiffPrettyText(diffs))
	}
}

func mustDialect(t *testing.T, name string) Dialect {
	t.Helper()
	d, err := ByName(name)
	require.NoError(t, err)
	return d
}

func intPtr(v int) *int { return &v }

func TestSelectGeneration(t *testing.T) {
	whereGroup := []types.Predicate{
		types.NewGroup(types.And,
			types.Cond("age", ">", 18),
			types.Cond("status", "=", "active")),
	}

	items := []struct {
		name    string
		dialect string
		op      *types.Operation
		query   string
		params  []interface{}
	}{
		{
			name:    "filtered select on sqlite",
			dialect: "sqlite",
			op: &types.Operation{
				Kind:   types.OperationRead,
				Table:  "users",
				Fields: []string{"id", "name"},
				Where:  whereGroup,
			},
			query:  `SELECT "id", "name" FROM "users" WHERE "age" > ? AND "status" = ?`,
			params: []interface{}{18, "active"},
		},
		{
			name:    "filtered select on postgres",
			dialect: "postgres",
			op: &types.Operation{
				Kind:   types.OperationRead,
				Table:  "users",
				Fields: []string{"id", "name"},
				Where:  whereGroup,
			},
			query:  `SELECT "id", "name" FROM "users" WHERE "age" > $1 AND "status" = $2`,
			params: []interface{}{18, "active"},
		},
		{
			name:    "filtered select on mysql",
			dialect: "mysql",
			op: &types.Operation{
				Kind:   types.OperationRead,
				Table:  "users",
				Fields: []string{"id", "name"},
				Where:  whereGroup,
			},
			query:  "SELECT `id`, `name` FROM `users` WHERE `age` > ? AND `status` = ?",
			params: []interface{}{18, "active"},
		},
		{
			name:    "absent fields imply star",
			dialect: "sqlite",
			op:      &types.Operation{Kind: types.OperationRead, Table: "users"},
			query:   `SELECT * FROM "users"`,
			params:  nil,
		},
		{
			name:    "or group nested in and parent keeps parentheses on the child only",
			dialect: "sqlite",
			op: &types.Operation{
				Kind:  types.OperationRead,
				Table: "users",
				Where: []types.Predicate{
					types.NewGroup(types.And,
						types.Cond("a", "=", 1),
						types.NewGroup(types.Or,
							types.Cond("b", "=", 2),
							types.Cond("c", "=", 3))),
				},
			},
			query:  `SELECT * FROM "users" WHERE "a" = ? AND ("b" = ? OR "c" = ?)`,
			params: []interface{}{1, 2, 3},
		},
		{
			name:    "null checks render literally and bind nothing",
			dialect: "postgres",
			op: &types.Operation{
				Kind:  types.OperationRead,
				Table: "users",
				Where: []types.Predicate{
					types.Cond("deleted_at", "IS", nil),
					types.Cond("email", "IS NOT", nil),
					types.Cond("age", ">", 18),
				},
			},
			query:  `SELECT * FROM "users" WHERE "deleted_at" IS NULL AND "email" IS NOT NULL AND "age" > $1`,
			params: []interface{}{18},
		},
		{
			name:    "negated group",
			dialect: "sqlite",
			op: &types.Operation{
				Kind:  types.OperationRead,
				Table: "users",
				Where: []types.Predicate{
					types.Not(types.Or,
						types.Cond("a", "=", 1),
						types.Cond("b", "=", 2)),
				},
			},
			query:  `SELECT * FROM "users" WHERE NOT ("a" = ? OR "b" = ?)`,
			params: []interface{}{1, 2},
		},
		{
			name:    "join with column reference binds no parameters",
			dialect: "postgres",
			op: &types.Operation{
				Kind:  types.OperationRead,
				Table: "users",
				Joins: []types.JoinSpec{{
					Kind:  types.LeftJoin,
					Table: "orders",
					Alias: "o",
					On:    []types.Predicate{types.Cond("o.user_id", "=", "users.id")},
				}},
				Where: []types.Predicate{types.Cond("o.total", ">", 100)},
			},
			query:  `SELECT * FROM "users" LEFT JOIN "orders" AS "o" ON "o"."user_id" = "users"."id" WHERE "o"."total" > $1`,
			params: []interface{}{100},
		},
		{
			name:    "group by having order by limit offset",
			dialect: "postgres",
			op: &types.Operation{
				Kind:    types.OperationRead,
				Table:   "orders",
				Fields:  []string{"region"},
				GroupBy: []string{"region"},
				Having:  []types.Predicate{types.Cond("total", ">", 1000)},
				OrderBy: []types.ColumnOrder{{Field: "region", Direction: "DESC"}},
				Limit:   intPtr(10),
				Offset:  intPtr(5),
			},
			query:  `SELECT "region" FROM "orders" GROUP BY "region" HAVING "total" > $1 ORDER BY "region" DESC LIMIT 10 OFFSET 5`,
			params: []interface{}{1000},
		},
		{
			name:    "schema qualified table",
			dialect: "postgres",
			op:      &types.Operation{Kind: types.OperationRead, Table: "users"},
			query:   `SELECT * FROM "app"."users"`,
			params:  nil,
		},
	}

	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			schema := ""
			if item.name == "schema qualified table" {
				schema = "app"
			}
			compiler := NewCompiler(mustDialect(t, item.dialect), schema)
			result, err := compiler.Compile(item.op)
			require.NoError(t, err)
			assertSQL(t, item.query, result.SQL)
			assert.Equal(t, item.params, result.Params)
		})
	}
}

func TestInsertGeneration(t *testing.T) {
	items := []struct {
		name    string
		dialect string
		rows    []map[string]interface{}
		query   string
		params  []interface{}
	}{
		{
			name:    "single row on sqlite",
			dialect: "sqlite",
			rows:    []map[string]interface{}{{"name": "ada", "age": 36}},
			query:   `INSERT INTO "users" ("age", "name") VALUES (?, ?)`,
			params:  []interface{}{36, "ada"},
		},
		{
			name:    "bulk rows on postgres number placeholders sequentially",
			dialect: "postgres",
			rows: []map[string]interface{}{
				{"name": "ada", "age": 36},
				{"name": "grace", "age": 45},
			},
			query:  `INSERT INTO "users" ("age", "name") VALUES ($1, $2), ($3, $4)`,
			params: []interface{}{36, "ada", 45, "grace"},
		},
	}

	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			compiler := NewCompiler(mustDialect(t, item.dialect), "")
			result, err := compiler.Compile(&types.Operation{
				Kind:  types.OperationCreate,
				Table: "users",
				Rows:  item.rows,
			})
			require.NoError(t, err)
			assertSQL(t, item.query, result.SQL)
			assert.Equal(t, item.params, result.Params)
		})
	}

	t.Run("empty row list fails", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "sqlite"), "")
		_, err := compiler.Compile(&types.Operation{Kind: types.OperationCreate, Table: "users"})
		assert.IsType(t, &e.MissingValuesError{}, err)
	})
}

func TestUpdateGeneration(t *testing.T) {
	t.Run("single row excludes id from set", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "postgres"), "")
		result, err := compiler.Compile(&types.Operation{
			Kind:  types.OperationUpdate,
			Table: "users",
			Rows:  []map[string]interface{}{{"id": "7", "name": "ada", "age": 36}},
			Where: []types.Predicate{types.Cond("id", "=", "7")},
		})
		require.NoError(t, err)
		assertSQL(t, `UPDATE "users" SET "age" = $1, "name" = $2 WHERE "id" = $3`, result.SQL)
		assert.Equal(t, []interface{}{36, "ada", "7"}, result.Params)
	})

	t.Run("single row without a filter scopes to the row id", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "sqlite"), "")
		result, err := compiler.Compile(&types.Operation{
			Kind:  types.OperationUpdate,
			Table: "users",
			Rows:  []map[string]interface{}{{"id": 7, "name": "ada"}},
		})
		require.NoError(t, err)
		assertSQL(t, `UPDATE "users" SET "name" = ? WHERE "id" = ?`, result.SQL)
		assert.Equal(t, []interface{}{"ada", 7}, result.Params)
	})

	t.Run("bulk rows fold into case expressions", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "sqlite"), "")
		result, err := compiler.Compile(&types.Operation{
			Kind:  types.OperationUpdate,
			Table: "users",
			Rows: []map[string]interface{}{
				{"id": 1, "name": "ada"},
				{"id": 2, "name": "grace"},
			},
		})
		require.NoError(t, err)
		assertSQL(t,
			`UPDATE "users" SET "name" = CASE WHEN "id" = ? THEN ? WHEN "id" = ? THEN ? ELSE "name" END WHERE "id" IN (?, ?)`,
			result.SQL)
		assert.Equal(t, []interface{}{1, "ada", 2, "grace", 1, 2}, result.Params)
	})

	t.Run("empty row list fails", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "sqlite"), "")
		_, err := compiler.Compile(&types.Operation{Kind: types.OperationUpdate, Table: "users"})
		assert.IsType(t, &e.MissingValuesError{}, err)
	})
}

func TestDeleteGeneration(t *testing.T) {
	t.Run("bulk id equalities use ANY on postgres", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "postgres"), "")
		result, err := compiler.Compile(&types.Operation{
			Kind:  types.OperationDelete,
			Table: "users",
			Where: []types.Predicate{
				types.Cond("id", "=", 1),
				types.Cond("id", "=", 2),
			},
		})
		require.NoError(t, err)
		assertSQL(t, `DELETE FROM "users" WHERE "id" = ANY($1)`, result.SQL)
		assert.Equal(t, []interface{}{[]interface{}{1, 2}}, result.Params)
	})

	t.Run("bulk id equalities use IN on mysql", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "mysql"), "")
		result, err := compiler.Compile(&types.Operation{
			Kind:  types.OperationDelete,
			Table: "users",
			Where: []types.Predicate{
				types.Cond("id", "=", 1),
				types.Cond("id", "=", 2),
			},
		})
		require.NoError(t, err)
		assertSQL(t, "DELETE FROM `users` WHERE `id` IN (?, ?)", result.SQL)
		assert.Equal(t, []interface{}{1, 2}, result.Params)
	})

	t.Run("single id equality keeps the plain shape", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "postgres"), "")
		result, err := compiler.Compile(&types.Operation{
			Kind:  types.OperationDelete,
			Table: "users",
			Where: []types.Predicate{types.Cond("id", "=", 1)},
		})
		require.NoError(t, err)
		assertSQL(t, `DELETE FROM "users" WHERE "id" = $1`, result.SQL)
		assert.Equal(t, []interface{}{1}, result.Params)
	})

	t.Run("mixed predicates skip the bulk path", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "sqlite"), "")
		result, err := compiler.Compile(&types.Operation{
			Kind:  types.OperationDelete,
			Table: "users",
			Where: []types.Predicate{
				types.Cond("id", "=", 1),
				types.Cond("status", "=", "inactive"),
			},
		})
		require.NoError(t, err)
		assertSQL(t, `DELETE FROM "users" WHERE "id" = ? AND "status" = ?`, result.SQL)
		assert.Equal(t, []interface{}{1, "inactive"}, result.Params)
	})

	t.Run("missing filter fails", func(t *testing.T) {
		compiler := NewCompiler(mustDialect(t, "sqlite"), "")
		_, err := compiler.Compile(&types.Operation{Kind: types.OperationDelete, Table: "users"})
		assert.IsType(t, &e.MissingValuesError{}, err)
	})
}

func TestUnknownOperation(t *testing.T) {
	compiler := NewCompiler(mustDialect(t, "sqlite"), "")
	_, err := compiler.Compile(&types.Operation{Kind: "VACUUM", Table: "users"})
	assert.IsType(t, &e.UnsupportedOperationError{}, err)
}

// countBoundLeaves walks a predicate tree counting leaves that bind a value
// (join column references bind nothing).
func countBoundLeaves(preds []types.Predicate, joinScope bool) int {
	count := 0
	for _, p := range preds {
		if p.Group != nil {
			count += countBoundLeaves(p.Group.Children, joinScope)
			continue
		}
		if joinScope && types.IsColumnReference(p.Condition.Value) {
			continue
		}
		count++
	}
	return count
}

func TestParamCountMatchesBoundLeaves(t *testing.T) {
	op := &types.Operation{
		Kind:  types.OperationRead,
		Table: "users",
		Joins: []types.JoinSpec{{
			Kind:  types.InnerJoin,
			Table: "orders",
			On: []types.Predicate{
				types.Cond("orders.user_id", "=", "users.id"),
				types.Cond("orders.status", "=", "open"),
			},
		}},
		Where: []types.Predicate{
			types.NewGroup(types.Or,
				types.Cond("a", "=", 1),
				types.NewGroup(types.And,
					types.Cond("b", ">", 2),
					types.Not(types.Or,
						types.Cond("c", "<", 3),
						types.Cond("d", "!=", 4)))),
		},
	}

	expected := countBoundLeaves(op.Where, false)
	for _, join := range op.Joins {
		expected += countBoundLeaves(join.On, true)
	}

	for _, dialect := range []string{"mysql", "postgres", "sqlite"} {
		compiler := NewCompiler(mustDialect(t, dialect), "")
		result, err := compiler.Compile(op)
		require.NoError(t, err)
		assert.Len(t, result.Params, expected, dialect)
	}
}
