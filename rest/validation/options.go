package validation

import (
	"regexp"

	"github.com/restql/sql-data-api/types"
)

// ComparisonOperators is the full operator enum; AllowedOperators defaults to
// it. IS and IS NOT accept only null values.
var ComparisonOperators = []string{
	"=", "!=", "<>", ">", ">=", "<", "<=", "LIKE", "NOT LIKE", "IS", "IS NOT",
}

const (
	DefaultMaxQueryDepth         = 5
	DefaultMaxConditionsPerGroup = 10
	DefaultMaxSelectFields       = 50
	DefaultMaxGroupByFields      = 10
	DefaultMaxValueLength        = 1000
)

// Fields may be qualified ("u.id"); tables and aliases may not, and must
// start with a letter. Identifiers are never parameterized downstream, so the
// table pattern is deliberately stricter than the field pattern.
var (
	DefaultFieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)
	tablePattern        = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)
)

// Options bound the shape of untrusted query descriptors. The zero value of
// each field falls back to its default.
type Options struct {
	MaxQueryDepth           int
	MaxConditionsPerGroup   int
	MaxSelectFields         int
	MaxGroupByFields        int
	AllowedOperators        []string
	AllowedLogicalOperators []types.LogicalOperator
	FieldPattern            *regexp.Regexp
	MaxValueLength          int
	PreventSQLKeywords      bool
}

// DefaultOptions returns the limits applied when the caller does not override
// them. SQL keyword screening of values is on by default.
func DefaultOptions() Options {
	return Options{
		MaxQueryDepth:           DefaultMaxQueryDepth,
		MaxConditionsPerGroup:   DefaultMaxConditionsPerGroup,
		MaxSelectFields:         DefaultMaxSelectFields,
		MaxGroupByFields:        DefaultMaxGroupByFields,
		AllowedOperators:        ComparisonOperators,
		AllowedLogicalOperators: []types.LogicalOperator{types.And, types.Or},
		FieldPattern:            DefaultFieldPattern,
		MaxValueLength:          DefaultMaxValueLength,
		PreventSQLKeywords:      true,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.MaxQueryDepth <= 0 {
		o.MaxQueryDepth = defaults.MaxQueryDepth
	}
	if o.MaxConditionsPerGroup <= 0 {
		o.MaxConditionsPerGroup = defaults.MaxConditionsPerGroup
	}
	if o.MaxSelectFields <= 0 {
		o.MaxSelectFields = defaults.MaxSelectFields
	}
	if o.MaxGroupByFields <= 0 {
		o.MaxGroupByFields = defaults.MaxGroupByFields
	}
	if len(o.AllowedOperators) == 0 {
		o.AllowedOperators = defaults.AllowedOperators
	}
	if len(o.AllowedLogicalOperators) == 0 {
		o.AllowedLogicalOperators = defaults.AllowedLogicalOperators
	}
	if o.FieldPattern == nil {
		o.FieldPattern = defaults.FieldPattern
	}
	if o.MaxValueLength <= 0 {
		o.MaxValueLength = defaults.MaxValueLength
	}
	return o
}
