// sql renders validated Operation descriptors into dialect-specific SQL text
// with an ordered parameter list. It assumes its input already passed
// validation and never re-validates or executes anything.
package sql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	e "github.com/restql/sql-data-api/rest/errors"
	"github.com/restql/sql-data-api/types"
)

const idColumn = "id"

// Compiler is stateless between calls; the running placeholder offset is
// threaded through return values, so any number of compilations may run
// concurrently on one Compiler.
type Compiler struct {
	dialect Dialect
	schema  string
}

func NewCompiler(dialect Dialect, schema string) *Compiler {
	return &Compiler{dialect: dialect, schema: schema}
}

// Compile turns one operation descriptor into {sql, params}. An unknown
// operation tag is a programmer error: the parser never emits one.
func (c *Compiler) Compile(op *types.Operation) (*types.CompiledQuery, error) {
	switch op.Kind {
	case types.OperationRead:
		return c.compileSelect(op)
	case types.OperationCreate:
		return c.compileInsert(op)
	case types.OperationUpdate:
		return c.compileUpdate(op)
	case types.OperationDelete:
		return c.compileDelete(op)
	default:
		return nil, e.NewUnsupportedOperationError(
			fmt.Sprintf("unknown operation %q", op.Kind))
	}
}

func (c *Compiler) tableName(table string) string {
	if c.schema != "" {
		return c.dialect.QuoteIdentifier(c.schema) + "." + c.dialect.QuoteIdentifier(table)
	}
	return c.dialect.QuoteIdentifier(table)
}

func (c *Compiler) compileSelect(op *types.Operation) (*types.CompiledQuery, error) {
	fields := op.Fields
	if len(fields) == 0 {
		fields = []string{"*"}
	}
	quoted := make([]string, len(fields))
	for i, field := range fields {
		if field == "*" {
			quoted[i] = "*"
		} else {
			quoted[i] = c.dialect.QuoteIdentifier(field)
		}
	}

	var sb strings.Builder
	var params []interface{}
	offset := 0

	sb.WriteString("SELECT " + strings.Join(quoted, ", ") + " FROM " + c.tableName(op.Table))

	for _, join := range op.Joins {
		fragment, joinParams, next, err := c.compilePredicates(join.On, types.And, offset, true)
		if err != nil {
			return nil, err
		}
		offset = next
		params = append(params, joinParams...)

		sb.WriteString(" " + string(join.Kind) + " JOIN " + c.tableName(join.Table))
		if join.Alias != "" {
			sb.WriteString(" AS " + c.dialect.QuoteIdentifier(join.Alias))
		}
		sb.WriteString(" ON " + fragment)
	}

	if len(op.Where) > 0 {
		fragment, whereParams, next, err := c.compilePredicates(op.Where, types.And, offset, false)
		if err != nil {
			return nil, err
		}
		offset = next
		params = append(params, whereParams...)
		sb.WriteString(" WHERE " + fragment)
	}

	if len(op.GroupBy) > 0 {
		columns := make([]string, len(op.GroupBy))
		for i, field := range op.GroupBy {
			columns[i] = c.dialect.QuoteIdentifier(field)
		}
		sb.WriteString(" GROUP BY " + strings.Join(columns, ", "))
	}

	if len(op.Having) > 0 {
		fragment, havingParams, next, err := c.compilePredicates(op.Having, types.And, offset, false)
		if err != nil {
			return nil, err
		}
		offset = next
		params = append(params, havingParams...)
		sb.WriteString(" HAVING " + fragment)
	}

	if len(op.OrderBy) > 0 {
		orders := make([]string, len(op.OrderBy))
		for i, order := range op.OrderBy {
			direction := order.Direction
			if direction == "" {
				direction = "ASC"
			}
			orders[i] = c.dialect.QuoteIdentifier(order.Field) + " " + direction
		}
		sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}

	// Limit and offset were validated as integers, so inlining them as
	// literals is safe and keeps the parameter list for data values only.
	if op.Limit != nil {
		sb.WriteString(" LIMIT " + strconv.Itoa(*op.Limit))
	}
	if op.Offset != nil {
		sb.WriteString(" OFFSET " + strconv.Itoa(*op.Offset))
	}

	return &types.CompiledQuery{SQL: sb.String(), Params: params}, nil
}

func (c *Compiler) compileInsert(op *types.Operation) (*types.CompiledQuery, error) {
	if len(op.Rows) == 0 {
		return nil, e.NewMissingValuesError("insert requires at least one row of values")
	}

	// Rows are assumed homogeneous; the first row fixes the column list.
	columns := sortedColumns(op.Rows[0], "")
	if len(columns) == 0 {
		return nil, e.NewMissingValuesError("insert rows must contain at least one column")
	}

	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = c.dialect.QuoteIdentifier(column)
	}

	params := make([]interface{}, 0, len(op.Rows)*len(columns))
	tuples := make([]string, len(op.Rows))
	offset := 0
	for i, row := range op.Rows {
		placeholders := make([]string, len(columns))
		for j, column := range columns {
			offset++
			placeholders[j] = c.dialect.Placeholder(offset)
			params = append(params, row[column])
		}
		tuples[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		c.tableName(op.Table), strings.Join(quoted, ", "), strings.Join(tuples, ", "))
	return &types.CompiledQuery{SQL: sql, Params: params}, nil
}

func (c *Compiler) compileUpdate(op *types.Operation) (*types.CompiledQuery, error) {
	if len(op.Rows) == 0 {
		return nil, e.NewMissingValuesError("update requires at least one row of values")
	}
	if len(op.Rows) == 1 {
		return c.compileSingleUpdate(op)
	}
	return c.compileBulkUpdate(op)
}

func (c *Compiler) compileSingleUpdate(op *types.Operation) (*types.CompiledQuery, error) {
	row := op.Rows[0]
	columns := sortedColumns(row, idColumn)
	if len(columns) == 0 {
		return nil, e.NewMissingValuesError("update requires at least one column to set")
	}

	var params []interface{}
	offset := 0
	assignments := make([]string, len(columns))
	for i, column := range columns {
		offset++
		assignments[i] = c.dialect.QuoteIdentifier(column) + " = " + c.dialect.Placeholder(offset)
		params = append(params, row[column])
	}

	sql := "UPDATE " + c.tableName(op.Table) + " SET " + strings.Join(assignments, ", ")

	if len(op.Where) > 0 {
		fragment, whereParams, _, err := c.compilePredicates(op.Where, types.And, offset, false)
		if err != nil {
			return nil, err
		}
		params = append(params, whereParams...)
		sql += " WHERE " + fragment
	} else if id, ok := row[idColumn]; ok {
		// A row carrying an id without a separate filter scopes the update to
		// that row. Without this an id-only single-row body would update the
		// whole table.
		offset++
		sql += " WHERE " + c.dialect.QuoteIdentifier(idColumn) + " = " + c.dialect.Placeholder(offset)
		params = append(params, id)
	}

	return &types.CompiledQuery{SQL: sql, Params: params}, nil
}

// compileBulkUpdate folds multiple rows into a single statement using one
// CASE expression per column, switching on the row id.
func (c *Compiler) compileBulkUpdate(op *types.Operation) (*types.CompiledQuery, error) {
	columns := sortedColumns(op.Rows[0], idColumn)
	if len(columns) == 0 {
		return nil, e.NewMissingValuesError("update requires at least one column to set")
	}

	var params []interface{}
	offset := 0
	quotedID := c.dialect.QuoteIdentifier(idColumn)

	assignments := make([]string, len(columns))
	for i, column := range columns {
		quoted := c.dialect.QuoteIdentifier(column)
		var cb strings.Builder
		cb.WriteString(quoted + " = CASE")
		for _, row := range op.Rows {
			whenPlaceholder := c.dialect.Placeholder(offset + 1)
			thenPlaceholder := c.dialect.Placeholder(offset + 2)
			offset += 2
			cb.WriteString(" WHEN " + quotedID + " = " + whenPlaceholder + " THEN " + thenPlaceholder)
			params = append(params, row[idColumn], row[column])
		}
		cb.WriteString(" ELSE " + quoted + " END")
		assignments[i] = cb.String()
	}

	placeholders := make([]string, len(op.Rows))
	for i, row := range op.Rows {
		offset++
		placeholders[i] = c.dialect.Placeholder(offset)
		params = append(params, row[idColumn])
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s IN (%s)",
		c.tableName(op.Table), strings.Join(assignments, ", "),
		quotedID, strings.Join(placeholders, ", "))
	return &types.CompiledQuery{SQL: sql, Params: params}, nil
}

func (c *Compiler) compileDelete(op *types.Operation) (*types.CompiledQuery, error) {
	if len(op.Where) == 0 {
		return nil, e.NewMissingValuesError("delete requires a filter")
	}

	sql := "DELETE FROM " + c.tableName(op.Table) + " WHERE "

	// The bulk path only activates when every predicate is an id equality
	// and there is more than one, so single deletes keep their plain shape.
	if ids, ok := idEqualityValues(op.Where); ok && len(ids) > 1 {
		fragment, params := c.dialect.BulkMatch(idColumn, ids, 0)
		return &types.CompiledQuery{SQL: sql + fragment, Params: params}, nil
	}

	fragment, params, _, err := c.compilePredicates(op.Where, types.And, 0, false)
	if err != nil {
		return nil, err
	}
	return &types.CompiledQuery{SQL: sql + fragment, Params: params}, nil
}

// compilePredicates renders sibling predicates joined by the parent operator,
// threading the running placeholder offset through the return value.
func (c *Compiler) compilePredicates(preds []types.Predicate, parent types.LogicalOperator, offset int, joinScope bool) (string, []interface{}, int, error) {
	fragments := make([]string, 0, len(preds))
	var params []interface{}

	for _, p := range preds {
		fragment, predParams, next, err := c.compilePredicate(p, parent, offset, joinScope)
		if err != nil {
			return "", nil, offset, err
		}
		offset = next
		fragments = append(fragments, fragment)
		params = append(params, predParams...)
	}

	return strings.Join(fragments, " "+string(parent)+" "), params, offset, nil
}

func (c *Compiler) compilePredicate(p types.Predicate, parent types.LogicalOperator, offset int, joinScope bool) (string, []interface{}, int, error) {
	if cond := p.Condition; cond != nil {
		field := c.dialect.QuoteIdentifier(cond.Field)

		// Inside ON clauses a dotted identifier value is an equi-join
		// column reference, rendered as an identifier and binding nothing.
		if joinScope && types.IsColumnReference(cond.Value) {
			fragment := field + " " + cond.Operator + " " + c.dialect.QuoteIdentifier(cond.Value.(string))
			return fragment, nil, offset, nil
		}

		// Null checks are rendered literally; "IS $1" is not valid SQL on
		// postgres and a parameterized NULL adds nothing on the others.
		if cond.Operator == "IS" || cond.Operator == "IS NOT" {
			return field + " " + cond.Operator + " NULL", nil, offset, nil
		}

		offset++
		fragment := field + " " + cond.Operator + " " + c.dialect.Placeholder(offset)
		return fragment, []interface{}{cond.Value}, offset, nil
	}

	if group := p.Group; group != nil {
		body, params, next, err := c.compilePredicates(group.Children, group.Operator, offset, joinScope)
		if err != nil {
			return "", nil, offset, err
		}

		// Parentheses preserve precedence: always around OR and negated
		// groups, and around AND groups directly under an OR parent.
		wrap := group.Operator == types.Or || group.Negate ||
			(group.Operator == types.And && parent == types.Or)
		if wrap {
			body = "(" + body + ")"
		}
		if group.Negate {
			body = "NOT " + body
		}
		return body, params, next, nil
	}

	return "", nil, offset, e.NewUnsupportedOperationError("cannot compile an empty predicate")
}

func idEqualityValues(preds []types.Predicate) ([]interface{}, bool) {
	values := make([]interface{}, 0, len(preds))
	for _, p := range preds {
		cond := p.Condition
		if cond == nil || cond.Field != idColumn || cond.Operator != "=" {
			return nil, false
		}
		values = append(values, cond.Value)
	}
	return values, true
}

func sortedColumns(row map[string]interface{}, exclude string) []string {
	columns := make([]string, 0, len(row))
	for column := range row {
		if column == exclude {
			continue
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
