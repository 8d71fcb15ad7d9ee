// validation walks untrusted decoded query descriptors, enforcing structural
// limits and injection-resistance rules before anything reaches the compiler.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	e "github.com/restql/sql-data-api/rest/errors"
	"github.com/restql/sql-data-api/types"
)

// Substrings that have no business inside a field name or a bound value.
// Values are parameterized downstream, but rejecting these early keeps
// tautologies and stacked statements out of logs and error paths too.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`;\s*$`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
	regexp.MustCompile(`\*/`),
	regexp.MustCompile(`(?i)\bOR\s*'[^']*'\s*=`),
	regexp.MustCompile(`(?i)\bUNION\s+SELECT\b`),
	regexp.MustCompile(`(?i);\s*DROP\b`),
	regexp.MustCompile(`(?i);\s*DELETE\b`),
}

var valueCharPattern = regexp.MustCompile(`^[^'"\\;]*$`)

var sqlKeywordPattern = regexp.MustCompile(
	`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|EXEC|EXECUTE|UNION|GRANT|REVOKE|MERGE)\b`)

var wordOperatorPattern = regexp.MustCompile(`^[A-Za-z ]+$`)

// Validate checks an untrusted QueryOptions value against the given limits
// and returns a normalized copy. It fails fast with a *errors.ValidationError
// on the first rule broken and never mutates its input.
func Validate(raw types.QueryOptions, opts Options) (types.QueryOptions, error) {
	v := &queryValidator{opts: opts.withDefaults()}
	return v.validateOptions(raw)
}

type queryValidator struct {
	opts Options
}

func (v *queryValidator) validateOptions(raw types.QueryOptions) (types.QueryOptions, error) {
	out := types.QueryOptions{}

	if len(raw.Select) > v.opts.MaxSelectFields {
		return out, e.NewValidationError(e.KindSelect,
			fmt.Sprintf("select exceeds the maximum of %d fields", v.opts.MaxSelectFields))
	}
	for _, field := range raw.Select {
		if field == "*" {
			continue
		}
		if err := v.checkField(field); err != nil {
			return out, err
		}
	}
	out.Select = append([]string(nil), raw.Select...)

	where, err := v.validatePredicates(raw.Where, 1, false)
	if err != nil {
		return out, err
	}
	out.Where = where

	for _, join := range raw.Joins {
		normalized, err := v.validateJoin(join)
		if err != nil {
			return out, err
		}
		out.Joins = append(out.Joins, normalized)
	}

	if len(raw.GroupBy) > v.opts.MaxGroupByFields {
		return out, e.NewValidationError(e.KindGroupBy,
			fmt.Sprintf("groupBy exceeds the maximum of %d fields", v.opts.MaxGroupByFields))
	}
	for _, field := range raw.GroupBy {
		if err := v.checkField(field); err != nil {
			return out, err
		}
	}
	out.GroupBy = append([]string(nil), raw.GroupBy...)

	having, err := v.validatePredicates(raw.Having, 1, false)
	if err != nil {
		return out, err
	}
	out.Having = having

	for _, order := range raw.OrderBy {
		if err := v.checkField(order.Field); err != nil {
			return out, err
		}
		direction := strings.ToUpper(order.Direction)
		if direction == "" {
			direction = "ASC"
		}
		if direction != "ASC" && direction != "DESC" {
			return out, e.NewValidationError(e.KindOrderBy,
				fmt.Sprintf("order direction must be ASC or DESC, got %q", order.Direction))
		}
		out.OrderBy = append(out.OrderBy, types.ColumnOrder{Field: order.Field, Direction: direction})
	}

	if raw.Limit != nil {
		if *raw.Limit <= 0 {
			return out, e.NewValidationError(e.KindPagination, "limit must be a positive integer")
		}
		limit := *raw.Limit
		out.Limit = &limit
	}
	if raw.Offset != nil {
		if *raw.Offset < 0 {
			return out, e.NewValidationError(e.KindPagination, "offset must not be negative")
		}
		offset := *raw.Offset
		out.Offset = &offset
	}

	return out, nil
}

func (v *queryValidator) validateJoin(join types.JoinSpec) (types.JoinSpec, error) {
	out := types.JoinSpec{}

	kind := types.JoinKind(strings.ToUpper(string(join.Kind)))
	switch kind {
	case types.InnerJoin, types.LeftJoin, types.RightJoin, types.FullJoin:
	default:
		return out, e.NewValidationError(e.KindShape,
			fmt.Sprintf("unknown join kind %q", join.Kind))
	}

	if err := v.checkTableIdentifier(join.Table); err != nil {
		return out, err
	}
	if join.Alias != "" {
		if err := v.checkTableIdentifier(join.Alias); err != nil {
			return out, err
		}
	}

	on, err := v.validatePredicates(join.On, 1, true)
	if err != nil {
		return out, err
	}

	return types.JoinSpec{Kind: kind, Table: join.Table, Alias: join.Alias, On: on}, nil
}

func (v *queryValidator) validatePredicates(preds []types.Predicate, depth int, joinScope bool) ([]types.Predicate, error) {
	if len(preds) == 0 {
		return nil, nil
	}
	out := make([]types.Predicate, 0, len(preds))
	for _, p := range preds {
		normalized, err := v.validatePredicate(p, depth, joinScope)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}
	return out, nil
}

func (v *queryValidator) validatePredicate(p types.Predicate, depth int, joinScope bool) (types.Predicate, error) {
	if p.Condition != nil && p.Group != nil {
		return types.Predicate{}, e.NewValidationError(e.KindShape,
			"predicate cannot be both a condition and a group")
	}

	if p.Group != nil {
		if depth > v.opts.MaxQueryDepth {
			return types.Predicate{}, e.NewValidationError(e.KindMaxDepth,
				fmt.Sprintf("query exceeds the maximum depth of %d", v.opts.MaxQueryDepth))
		}

		operator := types.LogicalOperator(strings.ToUpper(string(p.Group.Operator)))
		if !v.logicalOperatorAllowed(operator) {
			return types.Predicate{}, e.NewValidationError(e.KindLogicalOperator,
				fmt.Sprintf("logical operator %q is not allowed", p.Group.Operator))
		}
		if len(p.Group.Children) > v.opts.MaxConditionsPerGroup {
			return types.Predicate{}, e.NewValidationError(e.KindGroupSize,
				fmt.Sprintf("group exceeds the maximum of %d conditions", v.opts.MaxConditionsPerGroup))
		}

		children, err := v.validatePredicates(p.Group.Children, depth+1, joinScope)
		if err != nil {
			return types.Predicate{}, err
		}
		return types.Predicate{Group: &types.Group{
			Operator: operator,
			Children: children,
			Negate:   p.Group.Negate,
		}}, nil
	}

	if p.Condition == nil {
		return types.Predicate{}, e.NewValidationError(e.KindShape, "empty predicate")
	}

	cond := p.Condition
	if err := v.checkField(cond.Field); err != nil {
		return types.Predicate{}, err
	}

	// Short REST names (eq, gt, like, ...) translate to their SQL form first;
	// word operators are then normalized to upper case.
	operator := cond.Operator
	if sqlOperator, ok := types.SQLOperators[operator]; ok {
		operator = sqlOperator
	} else if wordOperatorPattern.MatchString(operator) {
		operator = strings.ToUpper(operator)
	}
	if !v.operatorAllowed(operator) {
		return types.Predicate{}, e.NewValidationError(e.KindOperator,
			fmt.Sprintf("operator %q is not allowed", cond.Operator))
	}
	if (operator == "IS" || operator == "IS NOT") && cond.Value != nil {
		return types.Predicate{}, e.NewValidationError(e.KindValue,
			fmt.Sprintf("operator %q accepts only a null value", operator))
	}

	// Dotted column references inside a join's ON tree are identifiers, not
	// bound values, and get the identifier treatment.
	if joinScope && types.IsColumnReference(cond.Value) {
		if err := v.checkField(cond.Value.(string)); err != nil {
			return types.Predicate{}, err
		}
	} else if err := v.checkValue(cond.Value); err != nil {
		return types.Predicate{}, err
	}

	return types.Cond(cond.Field, operator, cond.Value), nil
}

func (v *queryValidator) checkField(field string) error {
	if !v.opts.FieldPattern.MatchString(field) {
		return e.NewValidationError(e.KindField,
			fmt.Sprintf("field %q does not match the allowed pattern", field))
	}
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(field) {
			return e.NewValidationError(e.KindField,
				fmt.Sprintf("field %q contains a forbidden sequence", field))
		}
	}
	return nil
}

func (v *queryValidator) checkTableIdentifier(name string) error {
	if !tablePattern.MatchString(name) {
		return e.NewValidationError(e.KindIdentifier,
			fmt.Sprintf("identifier %q must start with a letter and contain only letters, digits or underscores", name))
	}
	return nil
}

func (v *queryValidator) checkValue(value interface{}) error {
	if value == nil {
		return nil
	}

	switch value.(type) {
	case time.Time:
		return nil
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr:
		return e.NewValidationError(e.KindValue, "value must be a scalar")
	}

	stringified := fmt.Sprintf("%v", value)
	if len(stringified) > v.opts.MaxValueLength {
		return e.NewValidationError(e.KindValue,
			fmt.Sprintf("value exceeds the maximum length of %d", v.opts.MaxValueLength))
	}

	// Non-string scalars cannot carry injection payloads.
	s, ok := value.(string)
	if !ok {
		return nil
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(s) {
			return e.NewValidationError(e.KindValue, "value contains a forbidden sequence")
		}
	}
	if !valueCharPattern.MatchString(s) {
		return e.NewValidationError(e.KindValue,
			"value must not contain quotes, backslashes or semicolons")
	}
	if v.opts.PreventSQLKeywords && sqlKeywordPattern.MatchString(s) {
		return e.NewValidationError(e.KindSQLKeyword, "value contains a reserved SQL keyword")
	}

	return nil
}

func (v *queryValidator) operatorAllowed(operator string) bool {
	for _, allowed := range v.opts.AllowedOperators {
		if operator == allowed {
			return true
		}
	}
	return false
}

func (v *queryValidator) logicalOperatorAllowed(operator types.LogicalOperator) bool {
	for _, allowed := range v.opts.AllowedLogicalOperators {
		if operator == allowed {
			return true
		}
	}
	return false
}
