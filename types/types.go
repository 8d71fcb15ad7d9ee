// types package contains the public API types that are shared between
// the validator, the request parser and the SQL compiler.
package types

import "regexp"

// LogicalOperator combines the children of a predicate group.
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// JoinKind is the SQL join flavor of a JoinSpec.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
	RightJoin JoinKind = "RIGHT"
	FullJoin  JoinKind = "FULL"
)

// OperationKind tags an Operation descriptor.
type OperationKind string

const (
	OperationCreate OperationKind = "CREATE"
	OperationRead   OperationKind = "READ"
	OperationUpdate OperationKind = "UPDATE"
	OperationDelete OperationKind = "DELETE"
)

// Condition is a leaf predicate comparing a single column against a bound value.
// Inside a join's ON list a string value shaped like "table.column" is treated
// as a column reference instead of a bound value.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Group combines an ordered list of child predicates under one logical operator.
type Group struct {
	Operator LogicalOperator `json:"logicalOperator"`
	Children []Predicate     `json:"conditions"`
	Negate   bool            `json:"negate,omitempty"`
}

// Predicate is the tagged union of Condition and Group. Exactly one of the two
// arms is set; UnmarshalJSON rejects values that are neither or both.
type Predicate struct {
	Condition *Condition
	Group     *Group
}

// Cond builds a leaf predicate.
func Cond(field, operator string, value interface{}) Predicate {
	return Predicate{Condition: &Condition{Field: field, Operator: operator, Value: value}}
}

// NewGroup builds a group predicate.
func NewGroup(operator LogicalOperator, children ...Predicate) Predicate {
	return Predicate{Group: &Group{Operator: operator, Children: children}}
}

// Not builds a negated group predicate.
func Not(operator LogicalOperator, children ...Predicate) Predicate {
	return Predicate{Group: &Group{Operator: operator, Children: children, Negate: true}}
}

// JoinSpec describes one JOIN clause.
type JoinSpec struct {
	Kind  JoinKind    `json:"kind"`
	Table string      `json:"table"`
	Alias string      `json:"alias,omitempty"`
	On    []Predicate `json:"on"`
}

// ColumnOrder is a single ORDER BY entry.
type ColumnOrder struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// QueryOptions is the decoded query descriptor. All fields are optional; an
// absent Select means "*". Sibling predicates in Where/Having are implicitly
// combined with AND.
type QueryOptions struct {
	Select  []string      `json:"select,omitempty"`
	Where   []Predicate   `json:"where,omitempty"`
	Joins   []JoinSpec    `json:"joins,omitempty"`
	GroupBy []string      `json:"groupBy,omitempty"`
	Having  []Predicate   `json:"having,omitempty"`
	OrderBy []ColumnOrder `json:"orderBy,omitempty"`
	Limit   *int          `json:"limit,omitempty"`
	Offset  *int          `json:"offset,omitempty"`
}

// Operation is the normalized descriptor produced by the request parser and
// consumed by the SQL compiler.
type Operation struct {
	Kind    OperationKind
	Table   string
	Fields  []string
	Where   []Predicate
	Joins   []JoinSpec
	GroupBy []string
	Having  []Predicate
	OrderBy []ColumnOrder
	Limit   *int
	Offset  *int
	Rows    []map[string]interface{}
}

// CompiledQuery is the sole output crossing the boundary to an external
// database client. Params are ordered by placeholder position in SQL.
type CompiledQuery struct {
	SQL    string        `json:"sql"`
	Params []interface{} `json:"params"`
}

// SQLOperators contains the SQL operator for a given short REST operator
// name. The validator translates these during normalization.
var SQLOperators = map[string]string{
	"eq":      "=",
	"notEq":   "!=",
	"gt":      ">",
	"gte":     ">=",
	"lt":      "<",
	"lte":     "<=",
	"like":    "LIKE",
	"notLike": "NOT LIKE",
	"is":      "IS",
	"isNot":   "IS NOT",
}

var columnReferencePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)

// IsColumnReference reports whether a condition value is a dotted identifier
// string denoting another column rather than a bound value.
func IsColumnReference(value interface{}) bool {
	s, ok := value.(string)
	return ok && columnReferencePattern.MatchString(s)
}
