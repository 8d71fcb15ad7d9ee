// builder is a convenience SDK for assembling QueryOptions values with method
// chaining. It keeps an explicit stack of open scopes, so groups can nest
// arbitrarily; End closes the innermost open group or join.
package builder

import (
	"errors"
	"fmt"

	"github.com/restql/sql-data-api/types"
)

type scopeKind int

const (
	scopeGroup scopeKind = iota
	scopeJoin
)

type scope struct {
	kind  scopeKind
	group *types.Group
	join  *types.JoinSpec
}

type QueryBuilder struct {
	options types.QueryOptions
	stack   []scope
	err     error
}

func New() *QueryBuilder {
	return &QueryBuilder{}
}

func (b *QueryBuilder) Select(fields ...string) *QueryBuilder {
	b.options.Select = append(b.options.Select, fields...)
	return b
}

// Where adds a leaf condition to the innermost open scope, or to the
// top-level WHERE list when no scope is open.
func (b *QueryBuilder) Where(field, operator string, value interface{}) *QueryBuilder {
	b.addPredicate(types.Cond(field, operator, value))
	return b
}

// BeginGroup opens a nested predicate group; subsequent Where calls attach to
// it until the matching End.
func (b *QueryBuilder) BeginGroup(operator types.LogicalOperator) *QueryBuilder {
	b.stack = append(b.stack, scope{kind: scopeGroup, group: &types.Group{Operator: operator}})
	return b
}

// BeginNotGroup opens a negated group.
func (b *QueryBuilder) BeginNotGroup(operator types.LogicalOperator) *QueryBuilder {
	b.stack = append(b.stack, scope{kind: scopeGroup, group: &types.Group{Operator: operator, Negate: true}})
	return b
}

// Join opens a join scope; On conditions attach to it until End.
func (b *QueryBuilder) Join(kind types.JoinKind, table string) *QueryBuilder {
	b.stack = append(b.stack, scope{kind: scopeJoin, join: &types.JoinSpec{Kind: kind, Table: table}})
	return b
}

// JoinAs opens an aliased join scope.
func (b *QueryBuilder) JoinAs(kind types.JoinKind, table, alias string) *QueryBuilder {
	b.stack = append(b.stack, scope{kind: scopeJoin, join: &types.JoinSpec{Kind: kind, Table: table, Alias: alias}})
	return b
}

// On adds a column-reference condition to the open join.
func (b *QueryBuilder) On(field, operator, columnRef string) *QueryBuilder {
	if len(b.stack) == 0 || b.stack[len(b.stack)-1].kind != scopeJoin {
		b.fail(errors.New("On requires an open join"))
		return b
	}
	join := b.stack[len(b.stack)-1].join
	join.On = append(join.On, types.Cond(field, operator, columnRef))
	return b
}

// End closes the innermost open group or join.
func (b *QueryBuilder) End() *QueryBuilder {
	if len(b.stack) == 0 {
		b.fail(errors.New("End without an open group or join"))
		return b
	}

	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	switch top.kind {
	case scopeGroup:
		b.addPredicate(types.Predicate{Group: top.group})
	case scopeJoin:
		b.options.Joins = append(b.options.Joins, *top.join)
	}
	return b
}

func (b *QueryBuilder) GroupBy(fields ...string) *QueryBuilder {
	b.options.GroupBy = append(b.options.GroupBy, fields...)
	return b
}

// Having adds a condition to the HAVING list. Having conditions do not join
// open WHERE scopes.
func (b *QueryBuilder) Having(field, operator string, value interface{}) *QueryBuilder {
	b.options.Having = append(b.options.Having, types.Cond(field, operator, value))
	return b
}

func (b *QueryBuilder) OrderBy(field, direction string) *QueryBuilder {
	b.options.OrderBy = append(b.options.OrderBy, types.ColumnOrder{Field: field, Direction: direction})
	return b
}

func (b *QueryBuilder) Limit(limit int) *QueryBuilder {
	b.options.Limit = &limit
	return b
}

func (b *QueryBuilder) Offset(offset int) *QueryBuilder {
	b.options.Offset = &offset
	return b
}

// Build returns the assembled options. It fails if any group or join is
// still open, or if a chained call was misused.
func (b *QueryBuilder) Build() (types.QueryOptions, error) {
	if b.err != nil {
		return types.QueryOptions{}, b.err
	}
	if len(b.stack) > 0 {
		return types.QueryOptions{}, fmt.Errorf("%d unclosed scope(s); call End", len(b.stack))
	}
	return b.options, nil
}

func (b *QueryBuilder) addPredicate(p types.Predicate) {
	if len(b.stack) == 0 {
		b.options.Where = append(b.options.Where, p)
		return
	}
	top := b.stack[len(b.stack)-1]
	switch top.kind {
	case scopeGroup:
		top.group.Children = append(top.group.Children, p)
	case scopeJoin:
		top.join.On = append(top.join.On, p)
	}
}

func (b *QueryBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
