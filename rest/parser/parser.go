// parser reshapes a REST envelope (verb, resource path, validated query
// options, body) into a single normalized Operation descriptor. It performs
// no escaping and no SQL-specific logic.
package parser

import (
	"fmt"
	"net/http"
	"strings"

	e "github.com/restql/sql-data-api/rest/errors"
	"github.com/restql/sql-data-api/types"
)

// The second path segment "list" is a reserved marker meaning "no resource
// id"; it lets clients address collection routes explicitly.
const reservedListSegment = "list"

const idColumn = "id"

// Envelope is the framework-independent request shape handed in by an
// adapter. Query is expected to have passed validation already.
type Envelope struct {
	Method string
	Path   string
	Query  types.QueryOptions
	Body   interface{}
}

// Parse combines verb, path and payload into one Operation. It fails with an
// *errors.UnsupportedOperationError for unrecognized verbs and an
// *errors.MissingValuesError for mutations with an empty payload.
func Parse(env Envelope) (*types.Operation, error) {
	table, resourceID, err := splitPath(env.Path)
	if err != nil {
		return nil, err
	}

	switch env.Method {
	case http.MethodPost:
		return parseCreate(table, env)
	case http.MethodGet:
		return parseRead(table, resourceID, env)
	case http.MethodPut:
		return parseUpdate(table, resourceID, env)
	case http.MethodDelete:
		return parseDelete(table, resourceID, env)
	default:
		return nil, e.NewUnsupportedOperationError(
			fmt.Sprintf("unsupported method %q", env.Method))
	}
}

func splitPath(path string) (table string, resourceID string, err error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", "", e.NewValidationError(e.KindIdentifier, "path must contain a table name")
	}
	table = segments[0]
	if len(segments) > 1 && segments[1] != reservedListSegment {
		resourceID = segments[1]
	}
	return table, resourceID, nil
}

func parseCreate(table string, env Envelope) (*types.Operation, error) {
	rows, err := bodyRows(env.Body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, e.NewMissingValuesError("create requires at least one row of values")
	}
	return &types.Operation{Kind: types.OperationCreate, Table: table, Rows: rows}, nil
}

func parseRead(table, resourceID string, env Envelope) (*types.Operation, error) {
	op := &types.Operation{
		Kind:    types.OperationRead,
		Table:   table,
		Fields:  env.Query.Select,
		Where:   env.Query.Where,
		Joins:   env.Query.Joins,
		GroupBy: env.Query.GroupBy,
		Having:  env.Query.Having,
		OrderBy: env.Query.OrderBy,
		Limit:   env.Query.Limit,
		Offset:  env.Query.Offset,
	}
	if len(op.Fields) == 0 {
		op.Fields = []string{"*"}
	}

	// Path-based identity lookup takes precedence over query-string filters.
	if resourceID != "" {
		one := 1
		op.Where = []types.Predicate{types.Cond(idColumn, "=", resourceID)}
		op.Limit = &one
	}

	return op, nil
}

func parseUpdate(table, resourceID string, env Envelope) (*types.Operation, error) {
	op := &types.Operation{Kind: types.OperationUpdate, Table: table, Where: env.Query.Where}

	if resourceID != "" {
		row, ok := env.Body.(map[string]interface{})
		if !ok || len(row) == 0 {
			return nil, e.NewMissingValuesError("update requires a body with column values")
		}
		merged := make(map[string]interface{}, len(row)+1)
		for k, v := range row {
			merged[k] = v
		}
		merged[idColumn] = resourceID
		op.Rows = []map[string]interface{}{merged}
		op.Where = []types.Predicate{types.Cond(idColumn, "=", resourceID)}
		return op, nil
	}

	rows, err := bodyRows(env.Body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, e.NewMissingValuesError("update requires at least one row of values")
	}
	for _, row := range rows {
		if _, ok := row[idColumn]; !ok {
			return nil, e.NewMissingValuesError("bulk update rows must each carry an id")
		}
	}
	op.Rows = rows
	return op, nil
}

func parseDelete(table, resourceID string, env Envelope) (*types.Operation, error) {
	op := &types.Operation{Kind: types.OperationDelete, Table: table, Where: env.Query.Where}

	if resourceID != "" {
		op.Where = []types.Predicate{types.Cond(idColumn, "=", resourceID)}
		return op, nil
	}

	if env.Body != nil {
		rows, err := bodyRows(env.Body)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			where := make([]types.Predicate, 0, len(rows))
			for _, row := range rows {
				id, ok := row[idColumn]
				if !ok {
					return nil, e.NewMissingValuesError("bulk delete rows must each carry an id")
				}
				where = append(where, types.Cond(idColumn, "=", id))
			}
			op.Where = where
		}
	}

	if len(op.Where) == 0 {
		return nil, e.NewMissingValuesError("delete requires a filter or a body with ids")
	}
	return op, nil
}

// bodyRows normalizes a decoded JSON body into a row list: a single map
// becomes a one-element list, a sequence is taken as-is (bulk mutation).
func bodyRows(body interface{}) ([]map[string]interface{}, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		if len(b) == 0 {
			return nil, nil
		}
		return []map[string]interface{}{b}, nil
	case []map[string]interface{}:
		return b, nil
	case []interface{}:
		rows := make([]map[string]interface{}, 0, len(b))
		for _, item := range b {
			row, ok := item.(map[string]interface{})
			if !ok {
				return nil, e.NewValidationError(e.KindShape, "body rows must be objects")
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		return nil, e.NewValidationError(e.KindShape, "body must be an object or a list of objects")
	}
}
