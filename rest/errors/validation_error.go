package errors

// ValidationKind tags a ValidationError with the rule that was broken.
type ValidationKind string

const (
	KindMaxDepth        ValidationKind = "max_depth"
	KindGroupSize       ValidationKind = "group_size"
	KindLogicalOperator ValidationKind = "logical_operator"
	KindOperator        ValidationKind = "operator"
	KindField           ValidationKind = "field"
	KindIdentifier      ValidationKind = "identifier"
	KindValue           ValidationKind = "value"
	KindSQLKeyword      ValidationKind = "sql_keyword"
	KindSelect          ValidationKind = "select"
	KindGroupBy         ValidationKind = "group_by"
	KindOrderBy         ValidationKind = "order_by"
	KindPagination      ValidationKind = "pagination"
	KindShape           ValidationKind = "shape"
)

// ValidationError marks a structural or security violation in untrusted
// input. Always caller-recoverable; adapters map it to a client error.
type ValidationError struct {
	Kind ValidationKind
	msg  string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func NewValidationError(kind ValidationKind, text string) error {
	return &ValidationError{Kind: kind, msg: text}
}
